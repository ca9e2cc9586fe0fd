package circulation

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mrlokans/checkoutdesk/internal/entities"
)

const mostBorrowedLimit = 5

type Stats struct {
	TotalBooks      int   `json:"total_books"`
	ActiveLoans     int   `json:"active_loans"`
	OverdueLoans    int   `json:"overdue_loans"`
	TotalAccounts   int64 `json:"total_accounts"`
	Librarians      int64 `json:"librarians"`
	PendingRequests int   `json:"pending_requests"`
}

type BorrowCount struct {
	BookID uint   `json:"book_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Count  int    `json:"count"`
}

type ActiveLoan struct {
	entities.Loan
	Title string `json:"title"`
}

type Analytics struct {
	MostBorrowed    []BorrowCount   `json:"most_borrowed"`
	ActiveBorrowers int             `json:"active_borrowers"`
	TotalFines      decimal.Decimal `json:"total_fines"`
	ActiveLoans     []ActiveLoan    `json:"active_loans"`
	OverdueLoans    []OverdueLoan   `json:"overdue_loans"`
}

func (e *Engine) Stats(ctx context.Context, actor Actor) (*Stats, error) {
	if err := requireLibrarian(actor); err != nil {
		return nil, err
	}
	today := e.Today()

	var stats Stats
	err := e.view(ctx, func(tx Tx) error {
		books, err := tx.ListBooks()
		if err != nil {
			return err
		}
		stats.TotalBooks = len(books)

		loans, err := tx.ListLoans(LoanFilter{ActiveOnly: true})
		if err != nil {
			return err
		}
		stats.ActiveLoans = len(loans)
		for _, loan := range loans {
			if IsOverdue(loan.DueDate, today) {
				stats.OverdueLoans++
			}
		}

		stats.TotalAccounts, err = tx.CountAccounts()
		if err != nil {
			return err
		}
		stats.Librarians, err = tx.CountAccountsByRole(entities.UserRoleLibrarian)
		if err != nil {
			return err
		}

		pending, err := tx.ListRequests(RequestFilter{Status: entities.RequestStatusPending})
		if err != nil {
			return err
		}
		stats.PendingRequests = len(pending)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (e *Engine) Analytics(ctx context.Context, actor Actor) (*Analytics, error) {
	if err := requireLibrarian(actor); err != nil {
		return nil, err
	}
	today := e.Today()

	report := Analytics{
		MostBorrowed: []BorrowCount{},
		ActiveLoans:  []ActiveLoan{},
		TotalFines:   decimal.Zero,
	}
	err := e.view(ctx, func(tx Tx) error {
		books, err := tx.ListBooks()
		if err != nil {
			return err
		}
		allLoans, err := tx.ListLoans(LoanFilter{})
		if err != nil {
			return err
		}
		report.MostBorrowed = mostBorrowed(books, allLoans, mostBorrowedLimit)

		titles := make(map[uint]string, len(books))
		for _, b := range books {
			titles[b.ID] = b.Title
		}
		borrowers := map[string]struct{}{}
		for _, loan := range allLoans {
			if loan.Returned {
				continue
			}
			borrowers[loan.Requester] = struct{}{}
			report.ActiveLoans = append(report.ActiveLoans, ActiveLoan{Loan: loan, Title: titles[loan.BookID]})
		}
		report.ActiveBorrowers = len(borrowers)

		fines, err := tx.ListFines("")
		if err != nil {
			return err
		}
		report.TotalFines = sumFines(fines)

		report.OverdueLoans, err = e.overdueLoans(tx, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// mostBorrowed ranks books by loan count, keeping catalog order for ties.
// Books never lent are left out.
func mostBorrowed(books []entities.Book, loans []entities.Loan, limit int) []BorrowCount {
	counts := map[uint]int{}
	for _, loan := range loans {
		counts[loan.BookID]++
	}

	ranked := []BorrowCount{}
	for _, b := range books {
		if n := counts[b.ID]; n > 0 {
			ranked = append(ranked, BorrowCount{BookID: b.ID, Title: b.Title, Author: b.Author, Count: n})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
