// Package audit records who did what: circulation decisions, catalog
// changes, logins, settings updates and overdue notices.
package audit
