package config

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./goodreads.db"

	// DefaultMediaDir holds uploaded book covers and profile pictures
	DefaultMediaDir = "./media"

	DefaultPageSize    = 2
	DefaultAPIPageSize = 10
	DefaultMaxPageSize = 100
)
