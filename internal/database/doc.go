// Package database provides the relational data access layer.
//
// # Architecture
//
//	database/
//	├── database.go   # Connection setup (SQLite or PostgreSQL), migrations
//	├── store.go      # circulation.Store on top of gorm transactions
//	├── accounts/     # Account directory queries
//	├── settings/     # Runtime settings (loan period, sweep bookkeeping)
//	└── audit/        # Audit event persistence
//
// # Usage
//
//	db, err := database.NewDatabase(database.DriverSQLite, "./checkoutdesk.db")
//	engine := circulation.NewEngine(database.NewStore(db))
//
// Every circulation call runs inside one gorm transaction. On PostgreSQL the
// rows a decision reads are locked with SELECT ... FOR UPDATE.
package database
