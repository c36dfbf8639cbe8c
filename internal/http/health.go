package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	checkTimeout = 2 * time.Second

	// healthKey is never written; looking it up only proves the store answers.
	healthKey = ".healthcheck"

	checkOK            = "ok"
	checkNotConfigured = "not configured"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// FileChecker is the part of the file store the health check touches.
type FileChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

type dependencyCheck func(ctx context.Context) error

type HealthController struct {
	deps    map[string]dependencyCheck
	version string
	started time.Time
}

// NewHealthController reports on the database and the file store. Either may
// be nil, which shows as "not configured" without failing the check.
func NewHealthController(db Pinger, files FileChecker, version string) *HealthController {
	h := &HealthController{
		deps:    map[string]dependencyCheck{"database": nil, "storage": nil},
		version: version,
		started: time.Now(),
	}
	if db != nil {
		h.deps["database"] = db.Ping
	}
	if files != nil {
		h.deps["storage"] = func(ctx context.Context) error {
			_, err := files.Exists(ctx, healthKey)
			return err
		}
	}
	return h
}

// run checks every dependency in parallel under one deadline.
func (h *HealthController) run(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		checks  = make(map[string]string, len(h.deps))
	)
	for name, p := range h.deps {
		if p == nil {
			checks[name] = checkNotConfigured
			continue
		}
		wg.Add(1)
		go func(name string, p dependencyCheck) {
			defer wg.Done()
			result := checkOK
			if err := p(ctx); err != nil {
				result = "error: " + err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			checks[name] = result
			if result != checkOK {
				healthy = false
			}
		}(name, p)
	}
	wg.Wait()
	return checks, healthy
}

// Status handles GET /health; any failing dependency turns it into a 503.
func (h *HealthController) Status(c *gin.Context) {
	checks, healthy := h.run(c.Request.Context())

	resp := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
		Version: h.version,
		Checks:  checks,
	}
	code := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, resp)
}

func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (h *HealthController) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the E-book Library API"})
}
