package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/ebooklib/internal/auth"
)

// cookieJar keeps the latest value of every cookie the router sets.
type cookieJar map[string]*http.Cookie

func (j cookieJar) serve(t *testing.T, app *testApp, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	for _, cookie := range j {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)
	for _, cookie := range rr.Result().Cookies() {
		j[cookie.Name] = cookie
	}
	return rr
}

func loginWithCookies(t *testing.T, app *testApp) cookieJar {
	t.Helper()
	jar := cookieJar{}
	form := url.Values{"username": {"reader@example.com"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := jar.serve(t, app, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, jar, auth.SessionCookieName)
	return jar
}

func TestCookieSession_Download(t *testing.T) {
	app := setupApp(t, withCookieSessions(t))
	book := app.createBook(t, "War and Peace", "Leo Tolstoy", 1869)
	jar := loginWithCookies(t, app)

	rr := jar.serve(t, app, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/ebooks/%d/download", book.ID), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, pdfBody, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "war_and_peace.pdf")

	rr = jar.serve(t, app, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "reader@example.com")
}

func TestCookieSession_MutationNeedsCSRFToken(t *testing.T) {
	app := setupApp(t, withCookieSessions(t))
	book := app.createBook(t, "Dubliners", "James Joyce", 1914)
	jar := loginWithCookies(t, app)
	path := fmt.Sprintf("/ebooks/%d/favorite", book.ID)

	rr := jar.serve(t, app, httptest.NewRequest(http.MethodPost, path, nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = jar.serve(t, app, httptest.NewRequest(http.MethodGet, "/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Token string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(auth.CSRFTokenHeader, body.Token)
	rr = jar.serve(t, app, req)
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = jar.serve(t, app, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"ebook_id":%d,"favorite":true}`, book.ID), rr.Body.String())
}

func TestCookieSession_BearerSkipsCSRF(t *testing.T) {
	app := setupApp(t, withCookieSessions(t))
	book := app.createBook(t, "Ulysses", "James Joyce", 1922)

	rr := app.do(t, http.MethodPost, fmt.Sprintf("/ebooks/%d/favorite", book.ID), app.userToken, nil, "")
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}
