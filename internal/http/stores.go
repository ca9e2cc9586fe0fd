package http

import (
	"github.com/mrlokans/checkoutdesk/internal/database/audit"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// Auditor records circulation and catalog events. audit.Service
// implements it; a nil Auditor disables the trail.
type Auditor interface {
	LogRequest(actor, action string, req *entities.Request, err error)
	LogFine(actor string, fine *entities.FineRecord)
	LogBookAdded(actor string, book *entities.Book)
	LogSettings(actor, action, description string)
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	GetEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping() error
}

type noopAuditor struct{}

func (noopAuditor) LogRequest(string, string, *entities.Request, error) {}
func (noopAuditor) LogFine(string, *entities.FineRecord)                {}
func (noopAuditor) LogBookAdded(string, *entities.Book)                 {}
func (noopAuditor) LogSettings(string, string, string)                  {}

func auditorOrNoop(a Auditor) Auditor {
	if a == nil {
		return noopAuditor{}
	}
	return a
}
