package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

// OverdueNoticeRecorder records that a borrower was told about an overdue loan.
type OverdueNoticeRecorder interface {
	LogOverdueNotice(requester string, loanID uint, description string)
}

// OverdueNoticeTask notifies one borrower about one overdue loan.
type OverdueNoticeTask struct {
	LoanID    uint      `json:"loan_id"`
	BookID    uint      `json:"book_id"`
	Requester string    `json:"requester"`
	Title     string    `json:"title"`
	DueDate   time.Time `json:"due_date"`
	DaysLate  int       `json:"days_late"`
	Fine      string    `json:"fine"`
}

// NewOverdueNoticeTask builds the notice for an overdue loan.
func NewOverdueNoticeTask(loan circulation.OverdueLoan) OverdueNoticeTask {
	return OverdueNoticeTask{
		LoanID:    loan.ID,
		BookID:    loan.BookID,
		Requester: loan.Requester,
		Title:     loan.Title,
		DueDate:   loan.DueDate,
		DaysLate:  loan.DaysLate,
		Fine:      loan.Fine.StringFixed(2),
	}
}

// Config returns the queue configuration for overdue notices.
func (t OverdueNoticeTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_notice",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   72 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Description is the notice text.
func (t OverdueNoticeTask) Description() string {
	return fmt.Sprintf("%q was due %s; %d day(s) late, fine so far %s",
		t.Title, t.DueDate.Format("2006-01-02"), t.DaysLate, t.Fine)
}

// OverdueNoticeProcessor creates a processor function for OverdueNoticeTask.
func OverdueNoticeProcessor(recorder OverdueNoticeRecorder) backlite.QueueProcessor[OverdueNoticeTask] {
	return func(ctx context.Context, task OverdueNoticeTask) error {
		if recorder == nil {
			return fmt.Errorf("overdue notice recorder not configured")
		}
		if task.Requester == "" || task.LoanID == 0 {
			return fmt.Errorf("overdue notice missing loan or requester")
		}

		recorder.LogOverdueNotice(task.Requester, task.LoanID, task.Description())
		log.Printf("[TASK] Overdue notice for %s: %s", task.Requester, task.Description())
		return nil
	}
}

// NewOverdueNoticeQueue creates a backlite queue for overdue notices.
func NewOverdueNoticeQueue(recorder OverdueNoticeRecorder) backlite.Queue {
	return backlite.NewQueue(OverdueNoticeProcessor(recorder))
}
