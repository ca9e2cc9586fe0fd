package audit

import (
	"fmt"
	"log"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/mrlokans/checkoutdesk/internal/database/audit"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service provides high-level audit logging functionality.
type Service struct {
	repo     *audit.Repository
	inflight sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every LogAsync call has been written.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// LogRequest records a request being submitted or decided.
func (s *Service) LogRequest(actor, action string, req *entities.Request, err error) {
	event := &entities.AuditEvent{
		Actor:       actor,
		EventType:   entities.AuditEventCirculation,
		Action:      action,
		Description: fmt.Sprintf("%s request by %s for book %d", req.Type, req.Requester, req.BookID),
		EntityType:  "request",
		EntityID:    idPtr(req.ID),
		Status:      entities.AuditStatusSuccess,
	}
	event.Metadata = encodeMetadata(map[string]any{
		"requester": req.Requester,
		"book_id":   req.BookID,
		"status":    req.Status,
		"note":      req.Note,
	})

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogFine records a fine charged on a returned loan.
func (s *Service) LogFine(actor string, fine *entities.FineRecord) {
	event := &entities.AuditEvent{
		Actor:       actor,
		EventType:   entities.AuditEventCirculation,
		Action:      "fine_recorded",
		Description: fmt.Sprintf("Fined %s %s for %d days late", fine.Requester, fine.Amount.StringFixed(2), fine.DaysLate),
		EntityType:  "loan",
		EntityID:    idPtr(fine.LoanID),
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogBookAdded records a catalog addition.
func (s *Service) LogBookAdded(actor string, book *entities.Book) {
	event := &entities.AuditEvent{
		Actor:       actor,
		EventType:   entities.AuditEventCatalog,
		Action:      "book_add",
		Description: fmt.Sprintf("Added %q by %s (%d copies)", book.Title, book.Author, book.TotalCopies),
		EntityType:  "book",
		EntityID:    idPtr(book.ID),
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogOverdueNotice records that a borrower was notified about an overdue loan.
func (s *Service) LogOverdueNotice(requester string, loanID uint, description string) {
	event := &entities.AuditEvent{
		Actor:       requester,
		EventType:   entities.AuditEventOverdue,
		Action:      "overdue_notice",
		Description: description,
		EntityType:  "loan",
		EntityID:    idPtr(loanID),
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(actor, action, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		Actor:     actor,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogSettings records a settings change event.
func (s *Service) LogSettings(actor, action, description string) {
	event := &entities.AuditEvent{
		Actor:       actor,
		EventType:   entities.AuditEventSettings,
		Action:      action,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func encodeMetadata(metadata map[string]any) string {
	data, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(data)
}

func idPtr(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
