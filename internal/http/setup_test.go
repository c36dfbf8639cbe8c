package http

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/ebooklib/internal/audit"
	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/database"
	"github.com/mrlokans/ebooklib/internal/database/activity"
	auditrepo "github.com/mrlokans/ebooklib/internal/database/audit"
	"github.com/mrlokans/ebooklib/internal/database/ebooks"
	"github.com/mrlokans/ebooklib/internal/database/favourites"
	"github.com/mrlokans/ebooklib/internal/database/reviews"
	"github.com/mrlokans/ebooklib/internal/database/stats"
	"github.com/mrlokans/ebooklib/internal/database/users"
	"github.com/mrlokans/ebooklib/internal/entities"
	"github.com/mrlokans/ebooklib/internal/library"
	"github.com/mrlokans/ebooklib/internal/metrics"
	"github.com/mrlokans/ebooklib/internal/storage/providers/local"
)

const (
	pdfBody = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"
	pngBody = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router   *Router
	db       *database.Database
	store    *local.Client
	library  *library.Service
	activity *activity.Repository
	audit    *audit.Service
	metrics  *metrics.Metrics

	user       *entities.User
	admin      *entities.User
	userToken  string
	adminToken string
}

type appOption func(*RouterConfig)

func setupApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()
	dir := t.TempDir()

	db, err := database.NewDatabase(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(dir, "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := local.NewClient(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	authCfg := config.Auth{
		BcryptCost:       bcrypt.MinCost,
		TokenExpiry:      30 * time.Minute,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
	authService := auth.NewService(users.NewRepository(db.DB), auth.NewTokenIssuer([]byte("test-secret"), authCfg.TokenExpiry), authCfg)

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	t.Cleanup(auditService.Wait)

	m := metrics.New()
	ebooksRepo := ebooks.NewRepository(db.DB)
	activityRepo := activity.NewRepository(db.DB)
	lib := library.NewService(ebooksRepo, store, nil)

	authController := auth.NewAuthController(authService, nil, authCfg, auditService, m)
	t.Cleanup(authController.Stop)

	cfg := RouterConfig{
		Version:        "test",
		Database:       db,
		Files:          store,
		Ebooks:         ebooksRepo,
		Library:        lib,
		Activity:       activityRepo,
		Favourites:     favourites.NewRepository(db.DB),
		Reviews:        reviews.NewRepository(db.DB),
		Stats:          stats.NewRepository(db.DB),
		CatalogAuditor: auditService,
		AuditReader:    auditService,
		AuthController: authController,
		AuthMiddleware: auth.NewMiddleware(authService, nil),
		AllowedOrigins: []string{"http://localhost:3000"},
		Metrics:        m,
		MaxUploadBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.SessionManager != nil {
		sessionAuth := auth.NewAuthController(authService, cfg.SessionManager, authCfg, auditService, m)
		t.Cleanup(sessionAuth.Stop)
		cfg.AuthController = sessionAuth
		cfg.AuthMiddleware = auth.NewMiddleware(authService, cfg.SessionManager)
	}
	router := NewRouter(cfg)
	t.Cleanup(router.Stop)

	user, err := authService.Register("Reader", "reader@example.com", "password123")
	require.NoError(t, err)
	admin, _, err := authService.EnsureAdmin("Admin", "admin@example.com", "password123")
	require.NoError(t, err)
	userToken, err := authService.IssueToken(user)
	require.NoError(t, err)
	adminToken, err := authService.IssueToken(admin)
	require.NoError(t, err)

	return &testApp{
		router:     router,
		db:         db,
		store:      store,
		library:    lib,
		activity:   activityRepo,
		audit:      auditService,
		metrics:    m,
		user:       user,
		admin:      admin,
		userToken:  userToken,
		adminToken: adminToken,
	}
}

// withCookieSessions wires cookie sessions and CSRF the way the server does.
func withCookieSessions(t *testing.T) appOption {
	return func(cfg *RouterConfig) {
		sessionDB, err := auth.OpenSessionDB(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { sessionDB.Close() })

		sm, err := auth.NewSessionManager(sessionDB, config.Auth{SessionLifetime: time.Hour})
		require.NoError(t, err)
		cfg.SessionManager = sm
		cfg.CSRF = &auth.CSRFConfig{
			Secret:         []byte("0123456789abcdef0123456789abcdef"),
			TrustedOrigins: cfg.AllowedOrigins,
			ExemptPaths:    []string{"/auth/login", "/auth/register"},
		}
	}
}

func (a *testApp) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodGet, path, token, nil, "")
}

func (a *testApp) sendJSON(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, method, path, token, strings.NewReader(body), "application/json")
}

// createBook stores a book through the library service.
func (a *testApp) createBook(t *testing.T, title, author string, year int) *entities.Ebook {
	t.Helper()
	book, err := a.library.Create(context.Background(), library.NewEbook{
		Title:           title,
		Author:          author,
		PublicationYear: &year,
		PDF:             &library.Upload{Filename: strings.ToLower(strings.ReplaceAll(title, " ", "_")) + ".pdf", Content: strings.NewReader(pdfBody)},
		Cover:           &library.Upload{Filename: "cover.png", Content: strings.NewReader(pngBody)},
	})
	require.NoError(t, err)
	return book
}

type filePart struct {
	field, filename, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}
