package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/entities"
)

// Models lists every table owned by the application, in dependency order.
var Models = []any{
	&entities.User{},
	&entities.Author{},
	&entities.Book{},
	&entities.BookAuthor{},
	&entities.BookReview{},
	&entities.AuditEvent{},
}

type Database struct {
	DB     *gorm.DB
	driver string
}

// NewDatabase opens the configured database and migrates all models.
func NewDatabase(cfg config.Database) (*Database, error) {
	return open(cfg, logger.Default.LogMode(logger.Warn))
}

// NewSilentDatabase is NewDatabase without SQL logging, for CLI commands and tests.
func NewSilentDatabase(cfg config.Database) (*Database, error) {
	return open(cfg, logger.Default.LogMode(logger.Silent))
}

func open(cfg config.Database, gormLogger logger.Interface) (*Database, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}

	var dialector gorm.Dialector
	switch driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(SQLiteDSN(cfg.Path))
	case config.DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if driver == config.DriverSQLite {
		log.Printf("Database initialized successfully at %s", cfg.Path)
	} else {
		log.Printf("Database initialized successfully (%s)", driver)
	}

	return &Database{DB: db, driver: driver}, nil
}

// SQLiteDSN enables foreign key enforcement so review and author links are
// removed together with their book.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Driver returns the configured driver name.
func (d *Database) Driver() string {
	return d.driver
}

// SQLDB exposes the underlying connection pool (session store, health checks).
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

// PingContext verifies the connection is alive.
func (d *Database) PingContext(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
