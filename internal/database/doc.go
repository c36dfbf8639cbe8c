// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, category seeding
//	├── users/           # Accounts, roles, login bookkeeping
//	├── ebooks/          # Catalog CRUD, search and sorting, categories
//	├── favourites/      # Per-user favourite e-books
//	├── activity/        # Download/read history
//	├── reviews/         # Ratings and reviews
//	├── stats/           # Admin dashboard aggregates
//	└── audit/           # Audit trail
//
// Each sub-package provides a Repository created with NewRepository(db.DB)
// and returns package sentinel errors instead of gorm.ErrRecordNotFound:
//
//	db, err := database.NewDatabase(cfg.Database)
//	ebooksRepo := ebooks.NewRepository(db.DB)
//	book, err := ebooksRepo.Get(id)
//	if errors.Is(err, ebooks.ErrNotFound) { ... }
//
// Consumers declare the small interface they need (see internal/http/stores.go)
// and add a compile-time check: var _ SomeInterface = (*Repository)(nil)
package database
