package entrypoint

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/mrlokans/checkoutdesk/internal/audit"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/database"
	auditrepo "github.com/mrlokans/checkoutdesk/internal/database/audit"
	"github.com/mrlokans/checkoutdesk/internal/docstore"
	"github.com/mrlokans/checkoutdesk/internal/tasks"
)

// Backend is the storage selected by DATABASE_DRIVER.
type Backend struct {
	Driver string
	Store  circulation.Store

	// Database, Audit and SessionDB are set only for relational drivers;
	// SessionDB only for SQLite.
	Database  *database.Database
	Audit     *audit.Service
	SessionDB *sql.DB

	queuePath string
}

// OpenBackend opens the store for cfg and, for relational drivers, the
// audit trail that shares its connection.
func OpenBackend(cfg config.Database) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "", config.DriverPostgres:
		driver := cfg.Driver
		dsn := cfg.DSN
		if driver != config.DriverPostgres {
			driver = config.DriverSQLite
			dsn = cfg.Path
		}
		if dsn == "" {
			return nil, fmt.Errorf("%s driver needs a database location", driver)
		}

		db, err := database.NewDatabase(driver, dsn)
		if err != nil {
			return nil, err
		}

		backend := &Backend{
			Driver:    driver,
			Store:     database.NewStore(db),
			Database:  db,
			Audit:     audit.NewService(auditrepo.NewRepository(db.DB)),
			queuePath: tasks.QueuePath(config.DefaultDatabasePath),
		}
		if driver == config.DriverSQLite {
			sqlDB, err := db.DB.DB()
			if err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to access database handle: %w", err)
			}
			backend.SessionDB = sqlDB
			backend.queuePath = tasks.QueuePath(cfg.Path)
		}
		return backend, nil

	case config.DriverJSON:
		store, err := docstore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Printf("Document store opened at %s", cfg.Path)
		return &Backend{
			Driver:    cfg.Driver,
			Store:     store,
			queuePath: tasks.QueuePath(cfg.Path),
		}, nil

	case config.DriverMemory:
		log.Printf("WARNING: memory driver selected, nothing will be persisted")
		return &Backend{
			Driver:    cfg.Driver,
			Store:     docstore.NewMemory(),
			queuePath: tasks.QueuePath(config.DefaultDatabasePath),
		}, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Pinger returns the health check target, or nil when there is none.
func (b *Backend) Pinger() interface{ Ping() error } {
	if b.Database == nil {
		return nil
	}
	return b.Database
}

// QueuePath is where the task queue keeps its SQLite file.
func (b *Backend) QueuePath() string {
	return b.queuePath
}

// Close waits for pending audit writes and closes the store.
func (b *Backend) Close() error {
	if b.Audit != nil {
		b.Audit.Wait()
	}
	return b.Store.Close()
}
