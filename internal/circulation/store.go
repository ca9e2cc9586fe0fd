package circulation

import (
	"context"

	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// Store persists circulation state. Update runs fn atomically: either every
// write fn made is kept or none is. View gives fn a read-only snapshot.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the set of record operations available inside a Store call.
// Lookups of a single record return the package's NotFound errors;
// Find* methods return nil, nil when nothing matches.
type Tx interface {
	GetBook(id uint) (*entities.Book, error)
	ListBooks() ([]entities.Book, error)
	CreateBook(book *entities.Book) error
	SaveBook(book *entities.Book) error

	GetAccount(username string) (*entities.Account, error)
	CreateAccount(account *entities.Account) error
	CountAccounts() (int64, error)
	CountAccountsByRole(role entities.UserRole) (int64, error)

	GetRequest(id uint) (*entities.Request, error)
	FindPendingRequest(requester string, bookID uint, reqType entities.RequestType) (*entities.Request, error)
	ListRequests(filter RequestFilter) ([]entities.Request, error)
	CreateRequest(req *entities.Request) error
	SaveRequest(req *entities.Request) error

	FindActiveLoan(requester string, bookID uint) (*entities.Loan, error)
	ListLoans(filter LoanFilter) ([]entities.Loan, error)
	CreateLoan(loan *entities.Loan) error
	SaveLoan(loan *entities.Loan) error

	ListFines(requester string) ([]entities.FineRecord, error)
	CreateFine(fine *entities.FineRecord) error

	// GetSetting returns "" for unknown keys.
	GetSetting(key string) (string, error)
	PutSetting(key, value string) error
	ListSettings() (map[string]string, error)
}

// RequestFilter narrows ListRequests. Zero fields match everything.
// Results are ordered by id.
type RequestFilter struct {
	Requester string
	Status    entities.RequestStatus
	Type      entities.RequestType
}

// LoanFilter narrows ListLoans. Zero fields match everything.
// Results are ordered by id.
type LoanFilter struct {
	Requester  string
	BookID     uint
	ActiveOnly bool
}
