// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite or postgres) and migrations
//	├── books/           # Books, authors and catalog import
//	├── reviews/         # Book reviews
//	├── users/           # Accounts and profiles
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type over a shared *gorm.DB:
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	booksRepo := books.NewRepository(db.DB)
//	reviewsRepo := reviews.NewRepository(db.DB)
//
//	book, err := booksRepo.GetBookByID(123)
//
// Lookups of unknown ids return *apperr.NotFoundError so callers never need
// to inspect gorm.ErrRecordNotFound themselves.
//
// # Interface Implementations
//
//   - books.Repository: implements services.BookRepository
//   - reviews.Repository: implements services.ReviewRepository
//   - users.Repository: implements auth.UserRepository and services.UserLookup
//   - audit.Repository: backs audit.Service
package database
