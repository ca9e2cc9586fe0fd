package circulation

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrlokans/checkoutdesk/internal/entities"
)

const (
	DefaultLoanPeriodDays = 30
	DefaultMaxActiveLoans = 5
	MaxLoanPeriodDays     = 365
)

// Policy holds the configurable circulation rules.
type Policy struct {
	LoanPeriodDays int
	MaxActiveLoans int
	FinePerDay     decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays: DefaultLoanPeriodDays,
		MaxActiveLoans: DefaultMaxActiveLoans,
		FinePerDay:     DefaultFinePerDay,
	}
}

// Actor is the caller of a workflow operation. The zero Actor has no session.
type Actor struct {
	Username string
	Role     entities.UserRole
}

func (a Actor) Authenticated() bool {
	return a.Username != ""
}

func (a Actor) IsLibrarian() bool {
	return a.Authenticated() && a.Role == entities.UserRoleLibrarian
}

// Decision is the outcome of a librarian decision on a request.
type Decision struct {
	Request  entities.Request `json:"request"`
	Loan     *entities.Loan   `json:"loan,omitempty"`
	Fine     decimal.Decimal  `json:"fine"`
	DaysLate int              `json:"days_late"`
}

type Engine struct {
	store  Store
	policy Policy
	now    func() time.Time
	mu     sync.Mutex
}

type Option func(*Engine)

func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		if p.LoanPeriodDays <= 0 {
			p.LoanPeriodDays = DefaultLoanPeriodDays
		}
		if p.MaxActiveLoans <= 0 {
			p.MaxActiveLoans = DefaultMaxActiveLoans
		}
		if p.FinePerDay.IsNegative() {
			p.FinePerDay = DefaultFinePerDay
		}
		e.policy = p
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		policy: DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) Today() time.Time {
	return CalendarDate(e.now())
}

func (e *Engine) update(ctx context.Context, fn func(tx Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Update(ctx, fn)
}

func (e *Engine) view(ctx context.Context, fn func(tx Tx) error) error {
	return e.store.View(ctx, fn)
}

func requireLibrarian(actor Actor) error {
	if !actor.Authenticated() {
		return ErrNotAuthenticated
	}
	if !actor.IsLibrarian() {
		return ErrForbidden.WithRequester(actor.Username)
	}
	return nil
}

// SubmitCheckoutRequest queues a checkout of bookID for the actor.
func (e *Engine) SubmitCheckoutRequest(ctx context.Context, actor Actor, bookID uint) (*entities.Request, error) {
	if !actor.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	var created *entities.Request
	err := e.update(ctx, func(tx Tx) error {
		book, err := tx.GetBook(bookID)
		if err != nil {
			return err
		}
		if !book.IsAvailable() {
			return ErrBookUnavailable.WithBook(bookID)
		}

		active, err := tx.ListLoans(LoanFilter{Requester: actor.Username, ActiveOnly: true})
		if err != nil {
			return err
		}
		if len(active) >= e.policy.MaxActiveLoans {
			return ErrLimitExceeded.WithRequester(actor.Username).WithBook(bookID)
		}

		pending, err := tx.FindPendingRequest(actor.Username, bookID, entities.RequestTypeCheckout)
		if err != nil {
			return err
		}
		if pending != nil {
			return ErrDuplicateRequest.WithRequest(pending.ID).WithBook(bookID)
		}

		req := &entities.Request{
			Type:      entities.RequestTypeCheckout,
			Requester: actor.Username,
			BookID:    bookID,
			Status:    entities.RequestStatusPending,
			CreatedAt: e.now(),
		}
		if err := tx.CreateRequest(req); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SubmitReturnRequest queues a return of bookID for the actor.
func (e *Engine) SubmitReturnRequest(ctx context.Context, actor Actor, bookID uint) (*entities.Request, error) {
	if !actor.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	var created *entities.Request
	err := e.update(ctx, func(tx Tx) error {
		loan, err := tx.FindActiveLoan(actor.Username, bookID)
		if err != nil {
			return err
		}
		if loan == nil {
			return ErrNoActiveLoan.WithRequester(actor.Username).WithBook(bookID)
		}

		pending, err := tx.FindPendingRequest(actor.Username, bookID, entities.RequestTypeReturn)
		if err != nil {
			return err
		}
		if pending != nil {
			return ErrDuplicateRequest.WithRequest(pending.ID).WithBook(bookID)
		}

		req := &entities.Request{
			Type:      entities.RequestTypeReturn,
			Requester: actor.Username,
			BookID:    bookID,
			Status:    entities.RequestStatusPending,
			CreatedAt: e.now(),
		}
		if err := tx.CreateRequest(req); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DecideCheckout approves or denies a pending checkout request.
//
// An approval that can no longer be honoured is persisted as a denial;
// the returned Decision then describes the denied request and err says why.
func (e *Engine) DecideCheckout(ctx context.Context, actor Actor, requestID uint, approve bool) (*Decision, error) {
	if err := requireLibrarian(actor); err != nil {
		return nil, err
	}

	var decision Decision
	var refused error
	err := e.update(ctx, func(tx Tx) error {
		req, err := pendingRequest(tx, requestID, entities.RequestTypeCheckout)
		if err != nil {
			return err
		}
		now := e.now()

		if !approve {
			req.Deny(actor.Username, now, "")
			decision = Decision{Request: *req}
			return tx.SaveRequest(req)
		}

		book, err := tx.GetBook(req.BookID)
		if err != nil {
			return err
		}
		if !book.IsAvailable() {
			refused = ErrBookNoLongerAvailable.WithRequest(req.ID).WithBook(book.ID)
			req.Deny(actor.Username, now, refused.Error())
			decision = Decision{Request: *req}
			return tx.SaveRequest(req)
		}

		active, err := tx.ListLoans(LoanFilter{Requester: req.Requester, ActiveOnly: true})
		if err != nil {
			return err
		}
		if len(active) >= e.policy.MaxActiveLoans {
			refused = ErrLimitExceeded.WithRequest(req.ID).WithRequester(req.Requester)
			req.Deny(actor.Username, now, refused.Error())
			decision = Decision{Request: *req}
			return tx.SaveRequest(req)
		}

		if err := book.CheckOut(); err != nil {
			return err
		}
		if err := tx.SaveBook(book); err != nil {
			return err
		}

		period, err := loanPeriodDays(tx, e.policy.LoanPeriodDays)
		if err != nil {
			return err
		}
		today := CalendarDate(now)
		loan := &entities.Loan{
			BookID:    book.ID,
			Requester: req.Requester,
			RequestID: req.ID,
			StartDate: today,
			DueDate:   DueDate(today, period),
			CreatedAt: now,
		}
		if err := tx.CreateLoan(loan); err != nil {
			return err
		}

		req.Approve(actor.Username, now)
		if err := tx.SaveRequest(req); err != nil {
			return err
		}
		decision = Decision{Request: *req, Loan: loan}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &decision, refused
}

// DecideReturn approves or denies a pending return request. Approval
// closes the loan, restocks the book and records any overdue fine.
func (e *Engine) DecideReturn(ctx context.Context, actor Actor, requestID uint, approve bool) (*Decision, error) {
	if err := requireLibrarian(actor); err != nil {
		return nil, err
	}

	var decision Decision
	var refused error
	err := e.update(ctx, func(tx Tx) error {
		req, err := pendingRequest(tx, requestID, entities.RequestTypeReturn)
		if err != nil {
			return err
		}
		now := e.now()

		if !approve {
			req.Deny(actor.Username, now, "")
			decision = Decision{Request: *req}
			return tx.SaveRequest(req)
		}

		loan, err := tx.FindActiveLoan(req.Requester, req.BookID)
		if err != nil {
			return err
		}
		if loan == nil {
			refused = ErrNoActiveLoan.WithRequest(req.ID).WithRequester(req.Requester).WithBook(req.BookID)
			req.Deny(actor.Username, now, refused.Error())
			decision = Decision{Request: *req}
			return tx.SaveRequest(req)
		}

		today := CalendarDate(now)
		daysLate := DaysLate(loan.DueDate, today)
		fine := Fine(loan.DueDate, today, e.policy.FinePerDay)

		if err := loan.MarkReturned(today); err != nil {
			return err
		}
		if err := tx.SaveLoan(loan); err != nil {
			return err
		}

		book, err := tx.GetBook(req.BookID)
		if err != nil {
			return err
		}
		book.CheckIn()
		if err := tx.SaveBook(book); err != nil {
			return err
		}

		if fine.IsPositive() {
			record := &entities.FineRecord{
				Requester: req.Requester,
				LoanID:    loan.ID,
				BookID:    loan.BookID,
				DaysLate:  daysLate,
				Amount:    fine,
				Date:      today,
				CreatedAt: now,
			}
			if err := tx.CreateFine(record); err != nil {
				return err
			}
		}

		req.Approve(actor.Username, now)
		if err := tx.SaveRequest(req); err != nil {
			return err
		}
		decision = Decision{Request: *req, Loan: loan, Fine: fine, DaysLate: daysLate}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &decision, refused
}

// DenyRequest denies any pending request.
func (e *Engine) DenyRequest(ctx context.Context, actor Actor, requestID uint) (*entities.Request, error) {
	if err := requireLibrarian(actor); err != nil {
		return nil, err
	}

	var denied *entities.Request
	err := e.update(ctx, func(tx Tx) error {
		req, err := pendingRequest(tx, requestID, "")
		if err != nil {
			return err
		}
		req.Deny(actor.Username, e.now(), "")
		if err := tx.SaveRequest(req); err != nil {
			return err
		}
		denied = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return denied, nil
}

// pendingRequest loads a request that is still pending and, when reqType
// is set, of that type. Anything else reads as not found.
func pendingRequest(tx Tx, id uint, reqType entities.RequestType) (*entities.Request, error) {
	req, err := tx.GetRequest(id)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() || (reqType != "" && req.Type != reqType) {
		return nil, ErrRequestNotFound.WithRequest(id)
	}
	return req, nil
}

func loanPeriodDays(tx Tx, fallback int) (int, error) {
	raw, err := tx.GetSetting(entities.SettingKeyLoanPeriodDays)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		log.Printf("Ignoring invalid %s setting %q", entities.SettingKeyLoanPeriodDays, raw)
		return fallback, nil
	}
	return days, nil
}
