package entities

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrLoanAlreadyReturned = errors.New("loan already returned")

// Loan dates are calendar days stored at midnight UTC.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	Requester  string     `gorm:"size:100;not null;index" json:"requester"`
	RequestID  uint       `gorm:"index" json:"request_id"`
	StartDate  time.Time  `gorm:"not null" json:"start_date"`
	DueDate    time.Time  `gorm:"not null;index" json:"due_date"`
	Returned   bool       `gorm:"not null;default:false;index" json:"returned"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Loan) TableName() string {
	return "loans"
}

// MarkReturned closes the loan. A loan can only be returned once.
func (l *Loan) MarkReturned(on time.Time) error {
	if l.Returned {
		return ErrLoanAlreadyReturned
	}
	l.Returned = true
	l.ReturnedAt = &on
	return nil
}

type FineRecord struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Requester string          `gorm:"size:100;not null;index" json:"requester"`
	LoanID    uint            `gorm:"not null;uniqueIndex" json:"loan_id"`
	BookID    uint            `gorm:"index" json:"book_id"`
	DaysLate  int             `json:"days_late"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Date      time.Time       `gorm:"not null" json:"date"`
	CreatedAt time.Time       `json:"created_at"`
}

func (FineRecord) TableName() string {
	return "fine_records"
}
