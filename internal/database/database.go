package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/checkoutdesk/internal/entities"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Database struct {
	DB     *gorm.DB
	Driver string
}

// NewDatabase connects to dsn with the given driver and migrates the schema.
// For SQLite the dsn is a file path or ":memory:".
func NewDatabase(driver, dsn string) (*Database, error) {
	return open(driver, dsn, logger.Default.LogMode(logger.Warn))
}

func open(driver, dsn string, gormLogger logger.Interface) (*Database, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// A single connection serializes writers and keeps ":memory:" databases alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	database := &Database{DB: db, Driver: driver}
	if err := database.migrate(); err != nil {
		return nil, err
	}

	log.Printf("Database initialized successfully (%s)", driver)

	return database, nil
}

func (d *Database) migrate() error {
	err := d.DB.AutoMigrate(
		&entities.Book{},
		&entities.Account{},
		&entities.Request{},
		&entities.Loan{},
		&entities.FineRecord{},
		&entities.Setting{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// At most one pending request per requester, book and type.
	err = d.DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_one_pending
		ON requests (requester, book_id, type) WHERE status = 'pending'`).Error
	if err != nil {
		return fmt.Errorf("failed to create pending request index: %w", err)
	}
	return nil
}

// Ping checks that the database still answers.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
