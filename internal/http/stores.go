package http

import (
	"context"
	"time"

	auditrepo "github.com/mrlokans/ebooklib/internal/database/audit"
	"github.com/mrlokans/ebooklib/internal/database/ebooks"
	"github.com/mrlokans/ebooklib/internal/database/reviews"
	"github.com/mrlokans/ebooklib/internal/database/stats"
	"github.com/mrlokans/ebooklib/internal/entities"
	"github.com/mrlokans/ebooklib/internal/library"
)

// This file consolidates the store interfaces used by HTTP controllers.
// The database repositories and the library service satisfy them; tests
// substitute fakes where a real database adds nothing.

// EbookReader provides read access to the catalog.
type EbookReader interface {
	List(opts ebooks.ListOptions) ([]entities.Ebook, error)
	Get(id uint) (*entities.Ebook, error)
	ListCategories() ([]entities.Category, error)
}

// EbookManager changes the catalog and opens stored files.
type EbookManager interface {
	Create(ctx context.Context, in library.NewEbook) (*entities.Ebook, error)
	Update(id uint, changes ebooks.Changes) (*entities.Ebook, error)
	Delete(ctx context.Context, id uint) (*entities.Ebook, error)
	OpenFile(ctx context.Context, id uint) (*library.File, error)
	OpenCover(ctx context.Context, id uint) (*library.File, error)
}

// ActivityStore records and lists download/read history.
type ActivityStore interface {
	Log(userID, ebookID uint, action entities.ActivityAction) error
	ListForUser(userID uint) ([]entities.ActivityLog, error)
}

// FavouritesStore manages per-user favourites.
type FavouritesStore interface {
	Add(userID, ebookID uint) error
	Remove(userID, ebookID uint) error
	ListEbooks(userID uint) ([]entities.Ebook, error)
	IsFavourite(userID, ebookID uint) (bool, error)
}

// ReviewStore manages ratings and reviews.
type ReviewStore interface {
	Create(review *entities.Review) error
	ListForEbook(ebookID uint, skip, limit int) ([]entities.Review, error)
	Summary(ebookID uint) (reviews.RatingSummary, error)
}

// StatsStore answers the admin dashboard queries.
type StatsStore interface {
	MostDownloaded(limit int) ([]stats.EbookDownloads, error)
	MostActiveUsers(limit int) ([]stats.UserActivity, error)
	TotalUsers() (int64, error)
	LatestUsers(limit int) ([]entities.User, error)
	LatestEbooks(limit int) ([]entities.Ebook, error)
}

// CatalogAuditor records admin changes to the catalog.
type CatalogAuditor interface {
	LogCatalog(userID uint, action string, ebookID uint, title string, err error)
}

// AuditReader pages through the audit log for the admin view.
type AuditReader interface {
	List(f auditrepo.Filter, limit, offset int) ([]entities.AuditEntry, int64, error)
}

// DownloadRecorder counts completed downloads.
type DownloadRecorder interface {
	RecordDownload()
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MaintenanceRunner exposes the cleanup schedule to admins.
type MaintenanceRunner interface {
	RunNow(ctx context.Context) error
	GetNextRunTime() *time.Time
}
