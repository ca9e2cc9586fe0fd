package circulation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/docstore"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

var (
	librarian = circulation.Actor{Username: "admin", Role: entities.UserRoleLibrarian}
	john      = circulation.Actor{Username: "john_doe", Role: entities.UserRoleRegular}
	jane      = circulation.Actor{Username: "jane", Role: entities.UserRoleRegular}
	nobody    = circulation.Actor{}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func setupEngine(t *testing.T) (*circulation.Engine, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)}
	store := docstore.NewMemory()
	t.Cleanup(func() { store.Close() })
	return circulation.NewEngine(store, circulation.WithClock(clock.Now)), clock
}

func addBook(t *testing.T, engine *circulation.Engine, title string, copies int) *entities.Book {
	book, err := engine.AddBook(context.Background(), librarian, title, "Some Author", "", copies)
	require.NoError(t, err)
	return book
}

func checkOut(t *testing.T, engine *circulation.Engine, actor circulation.Actor, bookID uint) *entities.Loan {
	ctx := context.Background()
	req, err := engine.SubmitCheckoutRequest(ctx, actor, bookID)
	require.NoError(t, err)
	decision, err := engine.DecideCheckout(ctx, librarian, req.ID, true)
	require.NoError(t, err)
	require.NotNil(t, decision.Loan)
	return decision.Loan
}

func TestEngine_SubmitCheckoutRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("queues a pending request", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 2)

		req, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.RequestTypeCheckout, req.Type)
		assert.Equal(t, entities.RequestStatusPending, req.Status)
		assert.Equal(t, "john_doe", req.Requester)

		mine, err := engine.MyRequests(ctx, john)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "1984", mine[0].Title)
	})

	t.Run("requires a session", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 2)

		_, err := engine.SubmitCheckoutRequest(ctx, nobody, book.ID)
		assert.ErrorIs(t, err, circulation.ErrNotAuthenticated)
	})

	t.Run("unknown book", func(t *testing.T) {
		engine, _ := setupEngine(t)

		_, err := engine.SubmitCheckoutRequest(ctx, john, 99)
		assert.ErrorIs(t, err, circulation.ErrBookNotFound)
	})

	t.Run("no copies on the shelf", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "Out of print", 0)

		_, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
		assert.ErrorIs(t, err, circulation.ErrBookUnavailable)
	})

	t.Run("duplicate pending request", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 2)

		_, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
		require.NoError(t, err)
		_, err = engine.SubmitCheckoutRequest(ctx, john, book.ID)
		assert.ErrorIs(t, err, circulation.ErrDuplicateRequest)

		pending, err := engine.ListPendingRequests(ctx, librarian)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("five active loans is the limit", func(t *testing.T) {
		engine, _ := setupEngine(t)
		for i := 0; i < 5; i++ {
			book := addBook(t, engine, fmt.Sprintf("Book %d", i), 1)
			checkOut(t, engine, john, book.ID)
		}
		sixth := addBook(t, engine, "Book 6", 1)

		_, err := engine.SubmitCheckoutRequest(ctx, john, sixth.ID)
		assert.ErrorIs(t, err, circulation.ErrLimitExceeded)

		_, err = engine.SubmitCheckoutRequest(ctx, jane, sixth.ID)
		assert.NoError(t, err, "the limit is per requester")
	})
}

func TestEngine_DecideCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("approval lends a copy", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 2)

		req, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
		require.NoError(t, err)

		decision, err := engine.DecideCheckout(ctx, librarian, req.ID, true)
		require.NoError(t, err)
		assert.Equal(t, entities.RequestStatusApproved, decision.Request.Status)
		assert.Equal(t, "admin", decision.Request.DecidedBy)
		require.NotNil(t, decision.Loan)
		assert.Equal(t, time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC), decision.Loan.StartDate)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), decision.Loan.DueDate)

		after, err := engine.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, after.AvailableCopies)
		assert.Equal(t, 1, after.TimesBorrowed)

		checkouts, err := engine.MyCheckouts(ctx, john)
		require.NoError(t, err)
		require.Len(t, checkouts, 1)
		assert.False(t, checkouts[0].Overdue)
	})

	t.Run("denial leaves the catalog alone", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 2)
		req, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
		require.NoError(t, err)

		decision, err := engine.DecideCheckout(ctx, librarian, req.ID, false)
		require.NoError(t, err)
		assert.Equal(t, entities.RequestStatusDenied, decision.Request.Status)
		assert.Nil(t, decision.Loan)

		after, err := engine.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, after.AvailableCopies)
	})

	t.Run("non-librarian is forbidden and the request is untouched", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 2)
		req, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
		require.NoError(t, err)

		_, err = engine.DecideCheckout(ctx, john, req.ID, true)
		assert.ErrorIs(t, err, circulation.ErrForbidden)

		_, err = engine.DecideCheckout(ctx, nobody, req.ID, true)
		assert.ErrorIs(t, err, circulation.ErrNotAuthenticated)

		pending, err := engine.ListPendingRequests(ctx, librarian)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, entities.RequestStatusPending, pending[0].Status)
	})

	t.Run("already decided request is not found", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 2)
		req, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
		require.NoError(t, err)
		_, err = engine.DecideCheckout(ctx, librarian, req.ID, false)
		require.NoError(t, err)

		_, err = engine.DecideCheckout(ctx, librarian, req.ID, true)
		assert.ErrorIs(t, err, circulation.ErrRequestNotFound)

		_, err = engine.DecideCheckout(ctx, librarian, 999, true)
		assert.ErrorIs(t, err, circulation.ErrRequestNotFound)
	})

	t.Run("last copy goes to the first approval", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "Rare", 1)

		reqA, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
		require.NoError(t, err)
		reqB, err := engine.SubmitCheckoutRequest(ctx, jane, book.ID)
		require.NoError(t, err)

		_, err = engine.DecideCheckout(ctx, librarian, reqA.ID, true)
		require.NoError(t, err)

		decision, err := engine.DecideCheckout(ctx, librarian, reqB.ID, true)
		assert.ErrorIs(t, err, circulation.ErrBookNoLongerAvailable)
		require.NotNil(t, decision)
		assert.Equal(t, entities.RequestStatusDenied, decision.Request.Status)
		assert.Nil(t, decision.Loan)

		after, err := engine.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, after.AvailableCopies)

		pending, err := engine.ListPendingRequests(ctx, librarian)
		require.NoError(t, err)
		assert.Empty(t, pending, "auto-denial is persisted")
	})

	t.Run("approval re-checks the loan limit", func(t *testing.T) {
		engine, _ := setupEngine(t)
		var queued []*entities.Request
		for i := 0; i < 6; i++ {
			book := addBook(t, engine, fmt.Sprintf("Book %d", i), 1)
			req, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
			require.NoError(t, err)
			queued = append(queued, req)
		}
		for _, req := range queued[:5] {
			_, err := engine.DecideCheckout(ctx, librarian, req.ID, true)
			require.NoError(t, err)
		}

		decision, err := engine.DecideCheckout(ctx, librarian, queued[5].ID, true)
		assert.ErrorIs(t, err, circulation.ErrLimitExceeded)
		assert.Equal(t, entities.RequestStatusDenied, decision.Request.Status)

		checkouts, err := engine.MyCheckouts(ctx, john)
		require.NoError(t, err)
		assert.Len(t, checkouts, 5)
	})

	t.Run("stored loan period overrides the default", func(t *testing.T) {
		engine, _ := setupEngine(t)
		require.NoError(t, engine.SetLoanPeriod(ctx, librarian, 14))
		book := addBook(t, engine, "1984", 1)

		loan := checkOut(t, engine, john, book.ID)
		assert.Equal(t, time.Date(2024, 12, 16, 0, 0, 0, 0, time.UTC), loan.DueDate)
	})
}

func TestEngine_Return(t *testing.T) {
	ctx := context.Background()

	t.Run("submit requires an active loan", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 1)

		_, err := engine.SubmitReturnRequest(ctx, john, book.ID)
		assert.ErrorIs(t, err, circulation.ErrNoActiveLoan)

		_, err = engine.SubmitReturnRequest(ctx, nobody, book.ID)
		assert.ErrorIs(t, err, circulation.ErrNotAuthenticated)
	})

	t.Run("duplicate return request", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 1)
		checkOut(t, engine, john, book.ID)

		_, err := engine.SubmitReturnRequest(ctx, john, book.ID)
		require.NoError(t, err)
		_, err = engine.SubmitReturnRequest(ctx, john, book.ID)
		assert.ErrorIs(t, err, circulation.ErrDuplicateRequest)
	})

	t.Run("on-time return has no fine", func(t *testing.T) {
		engine, clock := setupEngine(t)
		book := addBook(t, engine, "1984", 1)
		checkOut(t, engine, john, book.ID)

		clock.Set(time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC))
		req, err := engine.SubmitReturnRequest(ctx, john, book.ID)
		require.NoError(t, err)

		decision, err := engine.DecideReturn(ctx, librarian, req.ID, true)
		require.NoError(t, err)
		assert.True(t, decision.Fine.IsZero())
		assert.True(t, decision.Loan.Returned)

		fines, total, err := engine.MyFines(ctx, john)
		require.NoError(t, err)
		assert.Empty(t, fines)
		assert.True(t, total.IsZero())

		after, err := engine.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, after.AvailableCopies)
	})

	t.Run("late return records a fine", func(t *testing.T) {
		engine, clock := setupEngine(t)
		book := addBook(t, engine, "1984", 1)
		loan := checkOut(t, engine, john, book.ID)
		require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), loan.DueDate)

		clock.Set(time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC))
		req, err := engine.SubmitReturnRequest(ctx, john, book.ID)
		require.NoError(t, err)

		decision, err := engine.DecideReturn(ctx, librarian, req.ID, true)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1.50").Equal(decision.Fine))
		assert.Equal(t, 3, decision.DaysLate)

		fines, total, err := engine.MyFines(ctx, john)
		require.NoError(t, err)
		require.Len(t, fines, 1)
		assert.Equal(t, loan.ID, fines[0].LoanID)
		assert.True(t, decimal.RequireFromString("1.5").Equal(total))
	})

	t.Run("loan closes only once", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 1)
		checkOut(t, engine, john, book.ID)

		req, err := engine.SubmitReturnRequest(ctx, john, book.ID)
		require.NoError(t, err)
		_, err = engine.DecideReturn(ctx, librarian, req.ID, true)
		require.NoError(t, err)

		_, err = engine.DecideReturn(ctx, librarian, req.ID, true)
		assert.ErrorIs(t, err, circulation.ErrRequestNotFound)

		_, err = engine.SubmitReturnRequest(ctx, john, book.ID)
		assert.ErrorIs(t, err, circulation.ErrNoActiveLoan)

		after, err := engine.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, after.AvailableCopies)
	})

	t.Run("denied return keeps the loan open", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 1)
		checkOut(t, engine, john, book.ID)
		req, err := engine.SubmitReturnRequest(ctx, john, book.ID)
		require.NoError(t, err)

		decision, err := engine.DecideReturn(ctx, librarian, req.ID, false)
		require.NoError(t, err)
		assert.Equal(t, entities.RequestStatusDenied, decision.Request.Status)

		checkouts, err := engine.MyCheckouts(ctx, john)
		require.NoError(t, err)
		assert.Len(t, checkouts, 1)
	})

	t.Run("checkout decision does not accept a return request", func(t *testing.T) {
		engine, _ := setupEngine(t)
		book := addBook(t, engine, "1984", 1)
		checkOut(t, engine, john, book.ID)
		req, err := engine.SubmitReturnRequest(ctx, john, book.ID)
		require.NoError(t, err)

		_, err = engine.DecideCheckout(ctx, librarian, req.ID, true)
		assert.ErrorIs(t, err, circulation.ErrRequestNotFound)
	})
}

func TestEngine_DenyRequest(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupEngine(t)
	book := addBook(t, engine, "1984", 1)
	req, err := engine.SubmitCheckoutRequest(ctx, john, book.ID)
	require.NoError(t, err)

	_, err = engine.DenyRequest(ctx, john, req.ID)
	assert.ErrorIs(t, err, circulation.ErrForbidden)

	denied, err := engine.DenyRequest(ctx, librarian, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusDenied, denied.Status)

	_, err = engine.DenyRequest(ctx, librarian, req.ID)
	assert.ErrorIs(t, err, circulation.ErrRequestNotFound)

	_, err = engine.SubmitCheckoutRequest(ctx, john, book.ID)
	assert.NoError(t, err, "a denied request no longer blocks a new one")
}

func TestEngine_AddBook(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupEngine(t)

	_, err := engine.AddBook(ctx, john, "Dune", "Frank Herbert", "", 1)
	assert.ErrorIs(t, err, circulation.ErrForbidden)

	_, err = engine.AddBook(ctx, librarian, "  ", "Frank Herbert", "", 1)
	assert.ErrorIs(t, err, circulation.ErrValidationFailed)

	_, err = engine.AddBook(ctx, librarian, "Dune", "Frank Herbert", "", -1)
	assert.ErrorIs(t, err, circulation.ErrValidationFailed)

	book, err := engine.AddBook(ctx, librarian, "Dune", "Frank Herbert", "9780441013593", 3)
	require.NoError(t, err)
	assert.NotZero(t, book.ID)
	assert.Equal(t, 3, book.AvailableCopies)

	books, err := engine.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestEngine_LoanPeriod(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupEngine(t)

	days, err := engine.LoanPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, circulation.DefaultLoanPeriodDays, days)

	assert.ErrorIs(t, engine.SetLoanPeriod(ctx, john, 10), circulation.ErrForbidden)
	assert.ErrorIs(t, engine.SetLoanPeriod(ctx, librarian, 0), circulation.ErrValidationFailed)
	assert.ErrorIs(t, engine.SetLoanPeriod(ctx, librarian, 400), circulation.ErrValidationFailed)

	require.NoError(t, engine.SetLoanPeriod(ctx, librarian, 21))
	days, err = engine.LoanPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, days)
}

func TestEngine_Settings(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupEngine(t)

	_, err := engine.Settings(ctx, john)
	assert.ErrorIs(t, err, circulation.ErrForbidden)

	require.NoError(t, engine.SetLoanPeriod(ctx, librarian, 14))
	values, err := engine.Settings(ctx, librarian)
	require.NoError(t, err)
	assert.Equal(t, "14", values[entities.SettingKeyLoanPeriodDays])
}

func TestEngine_ConcurrentApprovalsNeverOverLend(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupEngine(t)
	book := addBook(t, engine, "Popular", 2)

	var requests []*entities.Request
	for i := 0; i < 6; i++ {
		actor := circulation.Actor{Username: fmt.Sprintf("reader%d", i), Role: entities.UserRoleRegular}
		req, err := engine.SubmitCheckoutRequest(ctx, actor, book.ID)
		require.NoError(t, err)
		requests = append(requests, req)
	}

	var wg sync.WaitGroup
	for _, req := range requests {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, _ = engine.DecideCheckout(ctx, librarian, id, true)
		}(req.ID)
	}
	wg.Wait()

	after, err := engine.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.AvailableCopies)
	assert.Equal(t, 2, after.TimesBorrowed)

	stats, err := engine.Stats(ctx, librarian)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveLoans)
	assert.Equal(t, 0, stats.PendingRequests)
}
