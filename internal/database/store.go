package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/database/accounts"
	"github.com/mrlokans/checkoutdesk/internal/database/settings"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

var ErrReadOnly = errors.New("database: write attempted in a read-only view")

// Store runs circulation transactions on top of gorm.
type Store struct {
	db     *gorm.DB
	closer func() error
}

// NewStore wraps an open database. Closing the store closes the database.
func NewStore(database *Database) *Store {
	return &Store{db: database.DB, closer: database.Close}
}

func (s *Store) Update(ctx context.Context, fn func(tx circulation.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{db: gtx})
	})
}

func (s *Store) View(ctx context.Context, fn func(tx circulation.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{db: gtx, readOnly: true})
	})
}

func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

type tx struct {
	db       *gorm.DB
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

// forUpdate locks selected rows on PostgreSQL. SQLite has no row locks;
// its single connection already serializes writers.
func (t *tx) forUpdate() *gorm.DB {
	if !t.readOnly && t.db.Dialector.Name() == DriverPostgres {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func (t *tx) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := t.forUpdate().First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, circulation.ErrBookNotFound.WithBook(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	return &book, nil
}

func (t *tx) ListBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := t.db.Order("id ASC").Find(&books).Error
	return books, err
}

func (t *tx) CreateBook(book *entities.Book) error {
	if err := t.writable(); err != nil {
		return err
	}
	return t.db.Create(book).Error
}

func (t *tx) SaveBook(book *entities.Book) error {
	if err := t.writable(); err != nil {
		return err
	}
	return t.db.Save(book).Error
}

func (t *tx) GetAccount(username string) (*entities.Account, error) {
	account, err := accounts.NewRepository(t.db).GetByUsername(username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, circulation.ErrAccountNotFound.WithRequester(username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

func (t *tx) CreateAccount(account *entities.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	err := accounts.NewRepository(t.db).Create(account)
	if errors.Is(err, accounts.ErrUsernameTaken) {
		return circulation.Validation("username already exists")
	}
	return err
}

func (t *tx) CountAccounts() (int64, error) {
	return accounts.NewRepository(t.db).Count()
}

func (t *tx) CountAccountsByRole(role entities.UserRole) (int64, error) {
	return accounts.NewRepository(t.db).CountByRole(role)
}

func (t *tx) GetRequest(id uint) (*entities.Request, error) {
	var req entities.Request
	err := t.forUpdate().First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, circulation.ErrRequestNotFound.WithRequest(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return &req, nil
}

func (t *tx) FindPendingRequest(requester string, bookID uint, reqType entities.RequestType) (*entities.Request, error) {
	var reqs []entities.Request
	err := t.db.
		Where("requester = ? AND book_id = ? AND type = ? AND status = ?", requester, bookID, reqType, entities.RequestStatusPending).
		Limit(1).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

func (t *tx) ListRequests(filter circulation.RequestFilter) ([]entities.Request, error) {
	query := t.db.Model(&entities.Request{})
	if filter.Requester != "" {
		query = query.Where("requester = ?", filter.Requester)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var reqs []entities.Request
	err := query.Order("id ASC").Find(&reqs).Error
	return reqs, err
}

func (t *tx) CreateRequest(req *entities.Request) error {
	if err := t.writable(); err != nil {
		return err
	}
	return t.db.Create(req).Error
}

func (t *tx) SaveRequest(req *entities.Request) error {
	if err := t.writable(); err != nil {
		return err
	}
	return t.db.Save(req).Error
}

func (t *tx) FindActiveLoan(requester string, bookID uint) (*entities.Loan, error) {
	var loans []entities.Loan
	err := t.forUpdate().
		Where("requester = ? AND book_id = ? AND returned = ?", requester, bookID, false).
		Order("id ASC").
		Limit(1).
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, nil
	}
	loan := normalizeLoan(loans[0])
	return &loan, nil
}

func (t *tx) ListLoans(filter circulation.LoanFilter) ([]entities.Loan, error) {
	query := t.db.Model(&entities.Loan{})
	if filter.Requester != "" {
		query = query.Where("requester = ?", filter.Requester)
	}
	if filter.BookID != 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}
	if filter.ActiveOnly {
		query = query.Where("returned = ?", false)
	}

	var loans []entities.Loan
	if err := query.Order("id ASC").Find(&loans).Error; err != nil {
		return nil, err
	}
	for i := range loans {
		loans[i] = normalizeLoan(loans[i])
	}
	return loans, nil
}

func (t *tx) CreateLoan(loan *entities.Loan) error {
	if err := t.writable(); err != nil {
		return err
	}
	return t.db.Create(loan).Error
}

func (t *tx) SaveLoan(loan *entities.Loan) error {
	if err := t.writable(); err != nil {
		return err
	}
	return t.db.Save(loan).Error
}

func (t *tx) ListFines(requester string) ([]entities.FineRecord, error) {
	query := t.db.Model(&entities.FineRecord{})
	if requester != "" {
		query = query.Where("requester = ?", requester)
	}
	var fines []entities.FineRecord
	err := query.Order("id ASC").Find(&fines).Error
	return fines, err
}

func (t *tx) CreateFine(fine *entities.FineRecord) error {
	if err := t.writable(); err != nil {
		return err
	}
	return t.db.Create(fine).Error
}

func (t *tx) GetSetting(key string) (string, error) {
	return settings.NewRepository(t.db).Get(key)
}

func (t *tx) PutSetting(key, value string) error {
	if err := t.writable(); err != nil {
		return err
	}
	return settings.NewRepository(t.db).Put(key, value)
}

func (t *tx) ListSettings() (map[string]string, error) {
	return settings.NewRepository(t.db).All()
}

// normalizeLoan brings dates back to UTC; drivers may return them in local time.
func normalizeLoan(loan entities.Loan) entities.Loan {
	loan.StartDate = loan.StartDate.UTC()
	loan.DueDate = loan.DueDate.UTC()
	return loan
}
