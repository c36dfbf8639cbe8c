package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/ebooklib/internal/audit"
	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/database"
	"github.com/mrlokans/ebooklib/internal/database/activity"
	"github.com/mrlokans/ebooklib/internal/database/ebooks"
	"github.com/mrlokans/ebooklib/internal/database/favourites"
	"github.com/mrlokans/ebooklib/internal/database/reviews"
	"github.com/mrlokans/ebooklib/internal/database/stats"
	"github.com/mrlokans/ebooklib/internal/database/users"
	"github.com/mrlokans/ebooklib/internal/http"
	"github.com/mrlokans/ebooklib/internal/library"
	"github.com/mrlokans/ebooklib/internal/metrics"
	"github.com/mrlokans/ebooklib/internal/scheduler"
	"github.com/mrlokans/ebooklib/internal/storage"
	"github.com/mrlokans/ebooklib/internal/storage/providers/local"
	"github.com/mrlokans/ebooklib/internal/storage/providers/s3"
	"github.com/mrlokans/ebooklib/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)
var _ http.EbookReader = (*ebooks.Repository)(nil)
var _ http.ActivityStore = (*activity.Repository)(nil)
var _ http.FavouritesStore = (*favourites.Repository)(nil)
var _ http.ReviewStore = (*reviews.Repository)(nil)
var _ http.StatsStore = (*stats.Repository)(nil)
var _ library.Catalog = (*ebooks.Repository)(nil)
var _ auth.UserStore = (*users.Repository)(nil)

// =============================================================================
// File Storage
// =============================================================================

var _ storage.Client = (*local.Client)(nil)
var _ storage.Client = (*s3.Client)(nil)
var _ http.FileChecker = (storage.Client)(nil)
var _ library.FileRemover = (*library.InlineRemover)(nil)
var _ library.FileRemover = (*tasks.QueueRemover)(nil)
var _ http.EbookManager = (*library.Service)(nil)

// =============================================================================
// Authentication and Auditing
// =============================================================================

var _ auth.UserResolver = (*auth.Service)(nil)
var _ auth.AuditLogger = (*audit.Service)(nil)
var _ http.CatalogAuditor = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ http.MaintenanceRunner = (*scheduler.MaintenanceScheduler)(nil)
var _ tasks.ActivityCleaner = (*activity.Repository)(nil)
var _ tasks.MaintenanceLogger = (*audit.Service)(nil)
var _ tasks.AuditPurger = (*audit.Service)(nil)

// =============================================================================
// Metrics
// =============================================================================

var _ auth.Recorder = (*metrics.Metrics)(nil)
var _ tasks.EnqueueRecorder = (*metrics.Metrics)(nil)
var _ http.DownloadRecorder = (*metrics.Metrics)(nil)
