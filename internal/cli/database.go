package cli

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/database"
)

// databaseFlags selects the database a command works on. Defaults come from
// the same environment the server reads.
type databaseFlags struct {
	Driver string
	Path   string
	DSN    string
}

func (f *databaseFlags) register(fs *flag.FlagSet, defaults config.Database) {
	fs.StringVar(&f.Driver, "driver", defaults.Driver, "Database driver: sqlite or postgres")
	fs.StringVar(&f.Path, "db", defaults.Path, "Path to the SQLite database file")
	fs.StringVar(&f.DSN, "dsn", defaults.DSN, "PostgreSQL connection string (postgres driver only)")
}

func (f *databaseFlags) open() (*database.Database, error) {
	cfg := config.Database{Driver: f.Driver, Path: f.Path, DSN: f.DSN}
	if cfg.Driver == "" || cfg.Driver == config.DriverSQLite {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for database: %w", err)
		}
		cfg.Path = absPath
	}

	db, err := database.NewSilentDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
