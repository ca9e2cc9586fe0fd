// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Storage
//
//   - circulation.Store: atomic Update and read-only View over a circulation.Tx
//     (internal/circulation/store.go). Implemented by database.Store (gorm over
//     SQLite or PostgreSQL) and docstore.Store (JSON document or memory).
//   - http.Pinger: store reachability for /health (internal/http/stores.go)
//
// ## Audit Trail
//
//   - http.Auditor, http.AuditReader: circulation events and their listing
//   - auth.Auditor: login, logout, registration and setup events
//   - tasks.OverdueNoticeRecorder, tasks.AuditEventCleaner: background task sinks
//
// audit.Service implements all of them on top of database/audit.Repository.
//
// ## Background Work
//
//   - scheduler.NoticeQueue: task submission, implemented by tasks.Client
//   - http.OverdueSweeper: on-demand sweep, implemented by the scheduler
//
// # Adding a New Storage Backend
//
//  1. Implement circulation.Tx for one transaction, honouring the NotFound
//     and nil, nil conventions documented on the interface.
//
//  2. Implement circulation.Store so Update is all-or-nothing.
//
//  3. Add the check here:
//
//     var _ circulation.Store = (*mystore.Store)(nil)
//
//  4. Select it in entrypoint.OpenBackend under a new DATABASE_DRIVER value.
package interfaces
