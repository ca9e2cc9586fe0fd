package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/checkoutdesk/internal/audit"
	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/database"
	"github.com/mrlokans/checkoutdesk/internal/docstore"
	"github.com/mrlokans/checkoutdesk/internal/http"
	"github.com/mrlokans/checkoutdesk/internal/scheduler"
	"github.com/mrlokans/checkoutdesk/internal/tasks"
)

// =============================================================================
// Storage
// =============================================================================

// circulation.Store implementations
var _ circulation.Store = (*database.Store)(nil)
var _ circulation.Store = (*docstore.Store)(nil)

// Health checks
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ http.Auditor = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ auth.Auditor = (*audit.Service)(nil)
var _ tasks.OverdueNoticeRecorder = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ scheduler.NoticeQueue = (*tasks.Client)(nil)
var _ http.OverdueSweeper = (*scheduler.OverdueSweepScheduler)(nil)
