package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sqlPinger struct {
	db *sql.DB
}

func (p sqlPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

type fakeFiles struct {
	err error
}

func (p fakeFiles) Exists(ctx context.Context, key string) (bool, error) {
	return false, p.err
}

func serveHealth(t *testing.T, db Pinger, files FileChecker) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	h := NewHealthController(db, files, "1.2.3")
	router.GET("/health", h.Status)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rr
}

func TestHealth_Healthy(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	rr := serveHealth(t, sqlPinger{db: db}, fakeFiles{})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
	assert.Equal(t, map[string]string{"database": "ok", "storage": "ok"}, resp.Checks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth_DatabaseDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	rr := serveHealth(t, sqlPinger{db: db}, fakeFiles{})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "error: connection refused", resp.Checks["database"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth_StorageDown(t *testing.T) {
	rr := serveHealth(t, nil, fakeFiles{err: errors.New("bucket unreachable")})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "error: bucket unreachable", resp.Checks["storage"])
	assert.Equal(t, "not configured", resp.Checks["database"])
}

func TestHealth_NothingConfigured(t *testing.T) {
	rr := serveHealth(t, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, map[string]string{"database": "not configured", "storage": "not configured"}, resp.Checks)
}

func TestHealth_RouterEndpoints(t *testing.T) {
	app := setupApp(t)

	rr := app.get(t, "/", "")
	assert.JSONEq(t, `{"message":"Welcome to the E-book Library API"}`, rr.Body.String())

	rr = app.get(t, "/ping", "")
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())

	rr = app.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"database": "ok"`)
	assert.Contains(t, rr.Body.String(), `"storage": "ok"`)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
