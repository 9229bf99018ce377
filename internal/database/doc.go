// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── errors.go        # Store-level sentinels shared by repositories
//	├── books/           # Shared Book catalog keyed by edition id
//	├── entries/         # Per-user shelf entries with versioned updates
//	├── users/           # User accounts and API token lookup
//	└── audit/           # Audit trail of shelf mutations
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./bookshelf.db", "warn")
//
//	booksRepo := books.NewRepository(db.DB)
//	entriesRepo := entries.NewRepository(db.DB)
//
//	book, err := booksRepo.FindByEditionKey(ctx, "OL1M")
//	list, err := entriesRepo.List(ctx, userID, entities.ShelfFilter{})
//
// # Errors
//
// Repositories return gorm.ErrRecordNotFound for missing rows and wrap
// ErrDuplicate for unique index clashes, so callers never parse driver
// messages themselves. Versioned writes return ErrVersionConflict.
//
// # Interface Implementations
//
//   - books.Repository: implements shelf.BookStore
//   - entries.Repository: implements shelf.EntryStore
//   - users.Repository: implements auth.UserStore
//   - audit.Repository: backs audit.Service
package database
