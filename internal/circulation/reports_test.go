package circulation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

func returnBook(t *testing.T, engine *circulation.Engine, actor circulation.Actor, bookID uint) *circulation.Decision {
	ctx := context.Background()
	req, err := engine.SubmitReturnRequest(ctx, actor, bookID)
	require.NoError(t, err)
	decision, err := engine.DecideReturn(ctx, librarian, req.ID, true)
	require.NoError(t, err)
	return decision
}

func TestEngine_Stats(t *testing.T) {
	ctx := context.Background()
	engine, clock := setupEngine(t)

	potter := addBook(t, engine, "Harry Potter", 3)
	orwell := addBook(t, engine, "1984", 2)
	addBook(t, engine, "To Kill a Mockingbird", 2)

	checkOut(t, engine, john, potter.ID)
	clock.Set(time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC))
	checkOut(t, engine, jane, orwell.ID)
	_, err := engine.SubmitCheckoutRequest(ctx, jane, potter.ID)
	require.NoError(t, err)

	// john's loan is due 2025-01-01, jane's 2025-01-19
	clock.Set(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	stats, err := engine.Stats(ctx, librarian)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalBooks)
	assert.Equal(t, 2, stats.ActiveLoans)
	assert.Equal(t, 0, stats.OverdueLoans, "a loan is not overdue on its due date")
	assert.Equal(t, 1, stats.PendingRequests)

	clock.Set(time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC))
	stats, err = engine.Stats(ctx, librarian)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OverdueLoans)

	_, err = engine.Stats(ctx, john)
	assert.ErrorIs(t, err, circulation.ErrForbidden)
}

func TestEngine_Analytics(t *testing.T) {
	ctx := context.Background()
	engine, clock := setupEngine(t)

	first := addBook(t, engine, "First", 2)
	second := addBook(t, engine, "Second", 2)
	third := addBook(t, engine, "Third", 2)
	never := addBook(t, engine, "Never Borrowed", 1)

	// Second: 2 loans, First and Third: 1 each
	checkOut(t, engine, john, second.ID)
	checkOut(t, engine, jane, second.ID)
	checkOut(t, engine, john, third.ID)
	checkOut(t, engine, jane, first.ID)

	clock.Set(time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC))
	decision := returnBook(t, engine, jane, second.ID)
	require.True(t, decimal.RequireFromString("1.5").Equal(decision.Fine))

	report, err := engine.Analytics(ctx, librarian)
	require.NoError(t, err)

	require.Len(t, report.MostBorrowed, 3)
	assert.Equal(t, second.ID, report.MostBorrowed[0].BookID)
	assert.Equal(t, 2, report.MostBorrowed[0].Count)
	assert.Equal(t, first.ID, report.MostBorrowed[1].BookID, "ties keep catalog order")
	assert.Equal(t, third.ID, report.MostBorrowed[2].BookID)
	for _, entry := range report.MostBorrowed {
		assert.NotEqual(t, never.ID, entry.BookID)
	}

	assert.Equal(t, 2, report.ActiveBorrowers)
	assert.True(t, decimal.RequireFromString("1.5").Equal(report.TotalFines))
	assert.Len(t, report.ActiveLoans, 3)

	require.Len(t, report.OverdueLoans, 3)
	for _, overdue := range report.OverdueLoans {
		assert.Equal(t, 3, overdue.DaysLate)
		assert.True(t, decimal.RequireFromString("1.5").Equal(overdue.Fine))
		assert.NotEmpty(t, overdue.Title)
	}
}

func TestEngine_AnalyticsTopFive(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupEngine(t)

	for i := 0; i < 7; i++ {
		book := addBook(t, engine, string(rune('A'+i)), 1)
		checkOut(t, engine, circulation.Actor{Username: string(rune('a' + i)), Role: john.Role}, book.ID)
	}

	report, err := engine.Analytics(ctx, librarian)
	require.NoError(t, err)
	require.Len(t, report.MostBorrowed, 5)
	assert.Equal(t, "A", report.MostBorrowed[0].Title)
	assert.Equal(t, "E", report.MostBorrowed[4].Title)
	assert.Equal(t, 7, report.ActiveBorrowers)
}

func TestEngine_OverdueLoans(t *testing.T) {
	ctx := context.Background()
	engine, _ := setupEngine(t)
	book := addBook(t, engine, "1984", 1)
	checkOut(t, engine, john, book.ID)

	overdue, err := engine.OverdueLoans(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, overdue)

	overdue, err = engine.OverdueLoans(ctx, time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "john_doe", overdue[0].Requester)
	assert.Equal(t, 10, overdue[0].DaysLate)
	assert.True(t, decimal.RequireFromString("5").Equal(overdue[0].Fine))
}
