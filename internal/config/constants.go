package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the SQLite database
	DefaultDatabasePath = "./checkoutdesk.db"

	// DefaultDocumentPath is the default path for the JSON document store
	DefaultDocumentPath = "./checkoutdesk.json"
)

// Storage backends selectable with DATABASE_DRIVER
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverJSON     = "json"
	DriverMemory   = "memory"
)
