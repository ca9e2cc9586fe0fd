package docstore

import (
	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

const (
	idBooks    = "books"
	idAccounts = "accounts"
	idRequests = "requests"
	idLoans    = "loans"
	idFines    = "fines"
)

type tx struct {
	doc      *Document
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *tx) GetBook(id uint) (*entities.Book, error) {
	for _, b := range t.doc.Books {
		if b.ID == id {
			book := b
			return &book, nil
		}
	}
	return nil, circulation.ErrBookNotFound.WithBook(id)
}

func (t *tx) ListBooks() ([]entities.Book, error) {
	return append([]entities.Book{}, t.doc.Books...), nil
}

func (t *tx) CreateBook(book *entities.Book) error {
	if err := t.writable(); err != nil {
		return err
	}
	book.ID = t.doc.nextID(idBooks)
	t.doc.Books = append(t.doc.Books, *book)
	return nil
}

func (t *tx) SaveBook(book *entities.Book) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i := range t.doc.Books {
		if t.doc.Books[i].ID == book.ID {
			t.doc.Books[i] = *book
			return nil
		}
	}
	return circulation.ErrBookNotFound.WithBook(book.ID)
}

func (t *tx) GetAccount(username string) (*entities.Account, error) {
	for _, a := range t.doc.Accounts {
		if a.Username == username {
			account := a
			return &account, nil
		}
	}
	return nil, circulation.ErrAccountNotFound.WithRequester(username)
}

func (t *tx) CreateAccount(account *entities.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, a := range t.doc.Accounts {
		if a.Username == account.Username {
			return circulation.Validation("username already exists")
		}
	}
	account.ID = t.doc.nextID(idAccounts)
	t.doc.Accounts = append(t.doc.Accounts, *account)
	return nil
}

func (t *tx) CountAccounts() (int64, error) {
	return int64(len(t.doc.Accounts)), nil
}

func (t *tx) CountAccountsByRole(role entities.UserRole) (int64, error) {
	var count int64
	for _, a := range t.doc.Accounts {
		if a.Role == role {
			count++
		}
	}
	return count, nil
}

func (t *tx) GetRequest(id uint) (*entities.Request, error) {
	for _, r := range t.doc.Requests {
		if r.ID == id {
			req := r
			return &req, nil
		}
	}
	return nil, circulation.ErrRequestNotFound.WithRequest(id)
}

func (t *tx) FindPendingRequest(requester string, bookID uint, reqType entities.RequestType) (*entities.Request, error) {
	for _, r := range t.doc.Requests {
		if r.Requester == requester && r.BookID == bookID && r.Type == reqType && r.IsPending() {
			req := r
			return &req, nil
		}
	}
	return nil, nil
}

func (t *tx) ListRequests(filter circulation.RequestFilter) ([]entities.Request, error) {
	out := []entities.Request{}
	for _, r := range t.doc.Requests {
		if filter.Requester != "" && r.Requester != filter.Requester {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *tx) CreateRequest(req *entities.Request) error {
	if err := t.writable(); err != nil {
		return err
	}
	req.ID = t.doc.nextID(idRequests)
	t.doc.Requests = append(t.doc.Requests, *req)
	return nil
}

func (t *tx) SaveRequest(req *entities.Request) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i := range t.doc.Requests {
		if t.doc.Requests[i].ID == req.ID {
			t.doc.Requests[i] = *req
			return nil
		}
	}
	return circulation.ErrRequestNotFound.WithRequest(req.ID)
}

func (t *tx) FindActiveLoan(requester string, bookID uint) (*entities.Loan, error) {
	for _, l := range t.doc.Loans {
		if l.Requester == requester && l.BookID == bookID && !l.Returned {
			loan := l
			return &loan, nil
		}
	}
	return nil, nil
}

func (t *tx) ListLoans(filter circulation.LoanFilter) ([]entities.Loan, error) {
	out := []entities.Loan{}
	for _, l := range t.doc.Loans {
		if filter.Requester != "" && l.Requester != filter.Requester {
			continue
		}
		if filter.BookID != 0 && l.BookID != filter.BookID {
			continue
		}
		if filter.ActiveOnly && l.Returned {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (t *tx) CreateLoan(loan *entities.Loan) error {
	if err := t.writable(); err != nil {
		return err
	}
	loan.ID = t.doc.nextID(idLoans)
	t.doc.Loans = append(t.doc.Loans, *loan)
	return nil
}

func (t *tx) SaveLoan(loan *entities.Loan) error {
	if err := t.writable(); err != nil {
		return err
	}
	for i := range t.doc.Loans {
		if t.doc.Loans[i].ID == loan.ID {
			t.doc.Loans[i] = *loan
			return nil
		}
	}
	return circulation.ErrLoanNotFound
}

func (t *tx) ListFines(requester string) ([]entities.FineRecord, error) {
	out := []entities.FineRecord{}
	for _, f := range t.doc.Fines {
		if requester == "" || f.Requester == requester {
			out = append(out, f)
		}
	}
	return out, nil
}

func (t *tx) CreateFine(fine *entities.FineRecord) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, f := range t.doc.Fines {
		if f.LoanID == fine.LoanID {
			return circulation.Validation("fine already recorded for loan %d", fine.LoanID)
		}
	}
	fine.ID = t.doc.nextID(idFines)
	t.doc.Fines = append(t.doc.Fines, *fine)
	return nil
}

func (t *tx) GetSetting(key string) (string, error) {
	return t.doc.Settings[key], nil
}

func (t *tx) PutSetting(key, value string) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.doc.Settings[key] = value
	return nil
}

func (t *tx) ListSettings() (map[string]string, error) {
	values := make(map[string]string, len(t.doc.Settings))
	for k, v := range t.doc.Settings {
		values[k] = v
	}
	return values, nil
}
