package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	auditrepo "github.com/mrlokans/ebooklib/internal/database/audit"
	"github.com/mrlokans/ebooklib/internal/database/stats"
	"github.com/mrlokans/ebooklib/internal/entities"
)

const (
	dashboardTopN     = 5
	defaultAuditLimit = 25
	maxAuditLimit     = 100
)

// AdminController serves the admin dashboard, audit log and maintenance hooks.
type AdminController struct {
	stats       StatsStore
	audit       AuditReader
	maintenance MaintenanceRunner
}

// NewAdminController creates a controller. audit and maintenance may be nil.
func NewAdminController(stats StatsStore, audit AuditReader, maintenance MaintenanceRunner) *AdminController {
	return &AdminController{stats: stats, audit: audit, maintenance: maintenance}
}

type SummaryResponse struct {
	TotalUsers           int64                  `json:"total_users"`
	TopActiveUsers       []stats.UserActivity   `json:"top_active_users"`
	MostDownloadedEbooks []stats.EbookDownloads `json:"most_downloaded_ebooks"`
}

type MonitoringResponse struct {
	LatestUsers  []entities.User  `json:"latest_users"`
	LatestEbooks []entities.Ebook `json:"latest_ebooks"`
}

// MostDownloaded handles GET /admin/stats/most-downloaded.
func (ac *AdminController) MostDownloaded(c *gin.Context) {
	top, err := ac.stats.MostDownloaded(dashboardTopN)
	if err != nil {
		respondInternalError(c, err, "most downloaded")
		return
	}
	c.JSON(http.StatusOK, nonNil(top))
}

// Summary handles GET /admin/stats/summary.
func (ac *AdminController) Summary(c *gin.Context) {
	total, err := ac.stats.TotalUsers()
	if err != nil {
		respondInternalError(c, err, "total users")
		return
	}
	active, err := ac.stats.MostActiveUsers(dashboardTopN)
	if err != nil {
		respondInternalError(c, err, "most active users")
		return
	}
	top, err := ac.stats.MostDownloaded(dashboardTopN)
	if err != nil {
		respondInternalError(c, err, "most downloaded")
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		TotalUsers:           total,
		TopActiveUsers:       nonNil(active),
		MostDownloadedEbooks: nonNil(top),
	})
}

// Latest handles GET /admin/monitoring/latest.
func (ac *AdminController) Latest(c *gin.Context) {
	users, err := ac.stats.LatestUsers(dashboardTopN)
	if err != nil {
		respondInternalError(c, err, "latest users")
		return
	}
	books, err := ac.stats.LatestEbooks(dashboardTopN)
	if err != nil {
		respondInternalError(c, err, "latest ebooks")
		return
	}
	c.JSON(http.StatusOK, MonitoringResponse{
		LatestUsers:  nonNil(users),
		LatestEbooks: nonNil(books),
	})
}

// parseOptionalID reads a positive id query parameter; absent means 0.
func parseOptionalID(c *gin.Context, name string) (uint, bool) {
	v, ok := parseIntQuery(c, name, 0)
	return uint(v), ok
}

// AuditLog handles GET /admin/audit?category=&actor_id=&ebook_id=&limit=&offset=.
func (ac *AdminController) AuditLog(c *gin.Context) {
	if ac.audit == nil {
		respondError(c, http.StatusServiceUnavailable, "audit log not configured")
		return
	}
	limit, ok := parseIntQuery(c, "limit", defaultAuditLimit)
	if !ok {
		return
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	offset, ok := parseIntQuery(c, "offset", 0)
	if !ok {
		return
	}
	filter := auditrepo.Filter{Category: entities.AuditCategory(c.Query("category"))}
	if filter.ActorID, ok = parseOptionalID(c, "actor_id"); !ok {
		return
	}
	if filter.EbookID, ok = parseOptionalID(c, "ebook_id"); !ok {
		return
	}

	entries, total, err := ac.audit.List(filter, max(limit, 1), offset)
	if err != nil {
		respondInternalError(c, err, "list audit log")
		return
	}
	// limit=0 reports the total only.
	entries = entries[:min(limit, len(entries))]
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    nonNil(entries),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(entries)) < total,
	})
}

// MaintenanceStatus handles GET /admin/maintenance.
func (ac *AdminController) MaintenanceStatus(c *gin.Context) {
	if ac.maintenance == nil {
		c.JSON(http.StatusOK, gin.H{"scheduled": false})
		return
	}
	next := ac.maintenance.GetNextRunTime()
	c.JSON(http.StatusOK, gin.H{"scheduled": next != nil, "next_run": next})
}

// RunMaintenance handles POST /admin/maintenance/run by enqueueing cleanup now.
func (ac *AdminController) RunMaintenance(c *gin.Context) {
	if ac.maintenance == nil {
		respondError(c, http.StatusServiceUnavailable, "task queue disabled")
		return
	}
	if err := ac.maintenance.RunNow(c.Request.Context()); err != nil {
		respondInternalError(c, err, "run maintenance")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "cleanup enqueued"})
}
