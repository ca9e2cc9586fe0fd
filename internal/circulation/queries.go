package circulation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// RequestView is a request joined with its book's title and author.
type RequestView struct {
	entities.Request
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Checkout is an active loan as seen by its holder.
type Checkout struct {
	entities.Loan
	Title    string          `json:"title"`
	Author   string          `json:"author"`
	Overdue  bool            `json:"overdue"`
	DaysLate int             `json:"days_late"`
	Fine     decimal.Decimal `json:"fine"`
}

// OverdueLoan is an active loan past its due date with the fine accrued so far.
type OverdueLoan struct {
	entities.Loan
	Title    string          `json:"title"`
	DaysLate int             `json:"days_late"`
	Fine     decimal.Decimal `json:"fine"`
}

func (e *Engine) ListBooks(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := e.view(ctx, func(tx Tx) error {
		var err error
		books, err = tx.ListBooks()
		return err
	})
	return books, err
}

func (e *Engine) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	var book *entities.Book
	err := e.view(ctx, func(tx Tx) error {
		var err error
		book, err = tx.GetBook(id)
		return err
	})
	return book, err
}

// AddBook adds a title to the catalog with every copy available.
func (e *Engine) AddBook(ctx context.Context, actor Actor, title, author, isbn string, copies int) (*entities.Book, error) {
	if err := requireLibrarian(actor); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return nil, Validation("title and author are required")
	}
	if copies < 0 {
		return nil, Validation("copies must not be negative")
	}

	book := entities.NewBook(title, author, strings.TrimSpace(isbn), copies)
	err := e.update(ctx, func(tx Tx) error {
		return tx.CreateBook(&book)
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListPendingRequests returns every pending request, oldest first.
func (e *Engine) ListPendingRequests(ctx context.Context, actor Actor) ([]RequestView, error) {
	if err := requireLibrarian(actor); err != nil {
		return nil, err
	}
	return e.requestViews(ctx, RequestFilter{Status: entities.RequestStatusPending})
}

// MyRequests returns the actor's own pending requests.
func (e *Engine) MyRequests(ctx context.Context, actor Actor) ([]RequestView, error) {
	if !actor.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	return e.requestViews(ctx, RequestFilter{Requester: actor.Username, Status: entities.RequestStatusPending})
}

func (e *Engine) requestViews(ctx context.Context, filter RequestFilter) ([]RequestView, error) {
	views := []RequestView{}
	err := e.view(ctx, func(tx Tx) error {
		requests, err := tx.ListRequests(filter)
		if err != nil {
			return err
		}
		books, err := booksByID(tx)
		if err != nil {
			return err
		}
		for _, req := range requests {
			book := books[req.BookID]
			views = append(views, RequestView{Request: req, Title: book.Title, Author: book.Author})
		}
		return nil
	})
	return views, err
}

// MyCheckouts returns the actor's active loans flagged for overdue status.
func (e *Engine) MyCheckouts(ctx context.Context, actor Actor) ([]Checkout, error) {
	if !actor.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	today := e.Today()

	checkouts := []Checkout{}
	err := e.view(ctx, func(tx Tx) error {
		loans, err := tx.ListLoans(LoanFilter{Requester: actor.Username, ActiveOnly: true})
		if err != nil {
			return err
		}
		books, err := booksByID(tx)
		if err != nil {
			return err
		}
		for _, loan := range loans {
			book := books[loan.BookID]
			checkouts = append(checkouts, Checkout{
				Loan:     loan,
				Title:    book.Title,
				Author:   book.Author,
				Overdue:  IsOverdue(loan.DueDate, today),
				DaysLate: DaysLate(loan.DueDate, today),
				Fine:     Fine(loan.DueDate, today, e.policy.FinePerDay),
			})
		}
		return nil
	})
	return checkouts, err
}

// MyFines returns the fines recorded against the actor and their total.
func (e *Engine) MyFines(ctx context.Context, actor Actor) ([]entities.FineRecord, decimal.Decimal, error) {
	if !actor.Authenticated() {
		return nil, decimal.Zero, ErrNotAuthenticated
	}
	var fines []entities.FineRecord
	err := e.view(ctx, func(tx Tx) error {
		var err error
		fines, err = tx.ListFines(actor.Username)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return fines, sumFines(fines), nil
}

// OverdueLoans lists active loans overdue as of asOf. It is a system
// report with no caller checks, used by the sweep scheduler and the CLI.
func (e *Engine) OverdueLoans(ctx context.Context, asOf time.Time) ([]OverdueLoan, error) {
	overdue := []OverdueLoan{}
	err := e.view(ctx, func(tx Tx) error {
		var err error
		overdue, err = e.overdueLoans(tx, asOf)
		return err
	})
	return overdue, err
}

func (e *Engine) overdueLoans(tx Tx, asOf time.Time) ([]OverdueLoan, error) {
	loans, err := tx.ListLoans(LoanFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	books, err := booksByID(tx)
	if err != nil {
		return nil, err
	}
	overdue := []OverdueLoan{}
	for _, loan := range loans {
		if !IsOverdue(loan.DueDate, asOf) {
			continue
		}
		overdue = append(overdue, OverdueLoan{
			Loan:     loan,
			Title:    books[loan.BookID].Title,
			DaysLate: DaysLate(loan.DueDate, asOf),
			Fine:     Fine(loan.DueDate, asOf, e.policy.FinePerDay),
		})
	}
	return overdue, nil
}

// LoanPeriod returns the loan period in days: the stored setting when
// present, otherwise the policy default.
func (e *Engine) LoanPeriod(ctx context.Context) (int, error) {
	var days int
	err := e.view(ctx, func(tx Tx) error {
		var err error
		days, err = loanPeriodDays(tx, e.policy.LoanPeriodDays)
		return err
	})
	return days, err
}

func (e *Engine) SetLoanPeriod(ctx context.Context, actor Actor, days int) error {
	if err := requireLibrarian(actor); err != nil {
		return err
	}
	if days < 1 || days > MaxLoanPeriodDays {
		return Validation("loan period must be between 1 and %d days", MaxLoanPeriodDays)
	}
	return e.update(ctx, func(tx Tx) error {
		return tx.PutSetting(entities.SettingKeyLoanPeriodDays, strconv.Itoa(days))
	})
}

// Settings lists every stored runtime setting. Keys never set are absent.
func (e *Engine) Settings(ctx context.Context, actor Actor) (map[string]string, error) {
	if err := requireLibrarian(actor); err != nil {
		return nil, err
	}
	var values map[string]string
	err := e.view(ctx, func(tx Tx) error {
		var err error
		values, err = tx.ListSettings()
		return err
	})
	return values, err
}

func booksByID(tx Tx) (map[uint]entities.Book, error) {
	books, err := tx.ListBooks()
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]entities.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	return byID, nil
}

func sumFines(fines []entities.FineRecord) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fines {
		total = total.Add(f.Amount)
	}
	return total
}
