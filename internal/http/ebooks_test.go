package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditrepo "github.com/mrlokans/ebooklib/internal/database/audit"
	"github.com/mrlokans/ebooklib/internal/entities"
)

func decodeBooks(t *testing.T, body []byte) []entities.Ebook {
	t.Helper()
	var books []entities.Ebook
	require.NoError(t, json.Unmarshal(body, &books))
	return books
}

func titles(books []entities.Ebook) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestEbooks_ListEmpty(t *testing.T) {
	app := setupApp(t)

	rr := app.get(t, "/ebooks", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestEbooks_ListSearchAndSort(t *testing.T) {
	app := setupApp(t)
	war := app.createBook(t, "War and Peace", "Leo Tolstoy", 1869)
	anna := app.createBook(t, "Anna Karenina", "Leo Tolstoy", 1878)
	app.createBook(t, "Dubliners", "James Joyce", 1914)

	rr := app.get(t, "/ebooks?search=TOLSTOY", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []string{"War and Peace", "Anna Karenina"}, titles(decodeBooks(t, rr.Body.Bytes())))

	rr = app.get(t, "/ebooks?sort_by=newest", "")
	assert.Equal(t, []string{"Dubliners", "Anna Karenina", "War and Peace"}, titles(decodeBooks(t, rr.Body.Bytes())))

	require.NoError(t, app.activity.Log(app.user.ID, anna.ID, entities.ActivityDownload))
	require.NoError(t, app.activity.Log(app.admin.ID, anna.ID, entities.ActivityDownload))
	require.NoError(t, app.activity.Log(app.user.ID, war.ID, entities.ActivityDownload))
	require.NoError(t, app.activity.Log(app.user.ID, war.ID, entities.ActivityRead))

	rr = app.get(t, "/ebooks?sort_by=popular", "")
	books := decodeBooks(t, rr.Body.Bytes())
	require.Len(t, books, 3, "books without downloads are still listed")
	assert.Equal(t, []string{"Anna Karenina", "War and Peace", "Dubliners"}, titles(books))

	rr = app.get(t, "/ebooks?limit=1&skip=1", "")
	assert.Equal(t, []string{"Anna Karenina"}, titles(decodeBooks(t, rr.Body.Bytes())))

	rr = app.get(t, "/ebooks?limit=0", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String(), "an explicit zero limit is an empty page")
}

func TestEbooks_ListRejectsBadPaging(t *testing.T) {
	app := setupApp(t)

	assert.Equal(t, http.StatusBadRequest, app.get(t, "/ebooks?skip=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, app.get(t, "/ebooks?limit=abc", "").Code)
}

func TestEbooks_Get(t *testing.T) {
	app := setupApp(t)
	book := app.createBook(t, "War and Peace", "Leo Tolstoy", 1869)

	rr := app.get(t, fmt.Sprintf("/ebooks/%d", book.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "War and Peace", got["title"])
	assert.Equal(t, fmt.Sprintf("/ebooks/%d/cover", book.ID), got["cover_image_path"])
	assert.NotContains(t, got, "file_key", "storage keys stay private")

	rr = app.get(t, "/ebooks/999", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"ebook not found"}`, rr.Body.String())

	assert.Equal(t, http.StatusBadRequest, app.get(t, "/ebooks/abc", "").Code)
}

func uploadForm(t *testing.T, fields map[string]string, pdf, cover string) (*strings.Reader, string) {
	t.Helper()
	var files []filePart
	if pdf != "" {
		files = append(files, filePart{"pdf_file", "book.pdf", pdf})
	}
	if cover != "" {
		files = append(files, filePart{"cover_image", "cover.png", cover})
	}
	body, contentType := multipartBody(t, fields, files...)
	return strings.NewReader(body.String()), contentType
}

func TestEbooks_Create(t *testing.T) {
	app := setupApp(t)
	fields := map[string]string{
		"title":            "War and Peace",
		"author":           "Leo Tolstoy",
		"publication_year": "1869",
		"categories":       "Fiction, Classics",
	}

	body, contentType := uploadForm(t, fields, pdfBody, pngBody)
	rr := app.do(t, http.MethodPost, "/ebooks", app.adminToken, body, contentType)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var book entities.Ebook
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	assert.Equal(t, "War and Peace", book.Title)
	require.NotNil(t, book.PublicationYear)
	assert.Equal(t, 1869, *book.PublicationYear)
	assert.Len(t, book.Categories, 2)
	assert.Equal(t, "book.pdf", book.OriginalFilename)

	app.audit.Wait()
	entries, total, err := app.audit.List(auditrepo.Filter{EbookID: book.ID}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "create", entries[0].Action)
	assert.Equal(t, entities.AuditCatalog, entries[0].Category)
}

func TestEbooks_CreateRequiresAdmin(t *testing.T) {
	app := setupApp(t)

	body, contentType := uploadForm(t, map[string]string{"title": "T", "author": "A"}, pdfBody, pngBody)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPost, "/ebooks", "", body, contentType).Code)

	body, contentType = uploadForm(t, map[string]string{"title": "T", "author": "A"}, pdfBody, pngBody)
	rr := app.do(t, http.MethodPost, "/ebooks", app.userToken, body, contentType)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "requires admin role")
}

func TestEbooks_CreateValidation(t *testing.T) {
	app := setupApp(t)
	valid := map[string]string{"title": "T", "author": "A"}

	cases := []struct {
		name    string
		fields  map[string]string
		pdf     string
		cover   string
		message string
	}{
		{"missing pdf", valid, "", pngBody, "pdf_file is required"},
		{"missing cover", valid, pdfBody, "", "cover_image is required"},
		{"not a pdf", valid, "hello world", pngBody, "pdf_file must be a PDF document"},
		{"missing title", map[string]string{"author": "A"}, pdfBody, pngBody, "title is required"},
		{"bad year", map[string]string{"title": "T", "author": "A", "publication_year": "soon"}, pdfBody, pngBody, "publication_year must be an integer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := uploadForm(t, tc.fields, tc.pdf, tc.cover)
			rr := app.do(t, http.MethodPost, "/ebooks", app.adminToken, body, contentType)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.message)
		})
	}

	rr := app.sendJSON(t, http.MethodPost, "/ebooks", app.adminToken, `{"title":"T"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEbooks_CreateTooLarge(t *testing.T) {
	app := setupApp(t, func(cfg *RouterConfig) { cfg.MaxUploadBytes = 1024 })

	big := pdfBody + strings.Repeat("x", 4096)
	body, contentType := uploadForm(t, map[string]string{"title": "T", "author": "A"}, big, pngBody)
	rr := app.do(t, http.MethodPost, "/ebooks", app.adminToken, body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestEbooks_Update(t *testing.T) {
	app := setupApp(t)
	book := app.createBook(t, "War and Peece", "Leo Tolstoy", 1869)
	path := fmt.Sprintf("/ebooks/%d", book.ID)

	rr := app.sendJSON(t, http.MethodPut, path, app.adminToken, `{"title":"War and Peace","categories":["Classics"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var updated entities.Ebook
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "War and Peace", updated.Title)
	assert.Equal(t, "Leo Tolstoy", updated.Author, "absent fields are unchanged")
	require.Len(t, updated.Categories, 1)
	assert.Equal(t, "Classics", updated.Categories[0].Name)

	assert.Equal(t, http.StatusBadRequest, app.sendJSON(t, http.MethodPut, path, app.adminToken, `{"title":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, app.sendJSON(t, http.MethodPut, path, app.adminToken, `not json`).Code)
	assert.Equal(t, http.StatusNotFound, app.sendJSON(t, http.MethodPut, "/ebooks/999", app.adminToken, `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, app.sendJSON(t, http.MethodPut, path, app.userToken, `{"title":"x"}`).Code)
}

func TestEbooks_Delete(t *testing.T) {
	app := setupApp(t)
	book := app.createBook(t, "War and Peace", "Leo Tolstoy", 1869)
	path := fmt.Sprintf("/ebooks/%d", book.ID)

	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodDelete, path, app.userToken, nil, "").Code)

	rr := app.do(t, http.MethodDelete, path, app.adminToken, nil, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	assert.Equal(t, http.StatusNotFound, app.get(t, path, "").Code)
	exists, err := app.store.Exists(context.Background(), book.FileKey)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, path, app.adminToken, nil, "").Code)
}

func TestEbooks_Download(t *testing.T) {
	app := setupApp(t)
	book := app.createBook(t, "War and Peace", "Leo Tolstoy", 1869)
	path := fmt.Sprintf("/ebooks/%d/download", book.ID)

	assert.Equal(t, http.StatusUnauthorized, app.get(t, path, "").Code)

	rr := app.get(t, path, app.userToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, pdfBody, rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "war_and_peace.pdf")
	assert.Contains(t, app.get(t, "/metrics", "").Body.String(), "ebooklib_downloads_total 1")

	history, err := app.activity.ListForUser(app.user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.ActivityDownload, history[0].Action)

	assert.Equal(t, http.StatusNotFound, app.get(t, "/ebooks/999/download", app.userToken).Code)
}

func TestEbooks_DownloadMissingFile(t *testing.T) {
	app := setupApp(t)
	book := app.createBook(t, "War and Peace", "Leo Tolstoy", 1869)
	require.NoError(t, app.store.Delete(context.Background(), book.FileKey))

	rr := app.get(t, fmt.Sprintf("/ebooks/%d/download", book.ID), app.userToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"file not found on server"}`, rr.Body.String())

	history, err := app.activity.ListForUser(app.user.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "failed downloads are not logged")
}

func TestEbooks_Read(t *testing.T) {
	app := setupApp(t)
	book := app.createBook(t, "War and Peace", "Leo Tolstoy", 1869)
	path := fmt.Sprintf("/ebooks/%d/read", book.ID)

	rr := app.get(t, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "inline"))

	require.Equal(t, http.StatusOK, app.get(t, path, app.userToken).Code)

	history, err := app.activity.ListForUser(app.user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1, "only the authenticated read is logged")
	assert.Equal(t, entities.ActivityRead, history[0].Action)
}

func TestEbooks_Cover(t *testing.T) {
	app := setupApp(t)
	book := app.createBook(t, "War and Peace", "Leo Tolstoy", 1869)

	rr := app.get(t, fmt.Sprintf("/ebooks/%d/cover", book.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, pngBody, rr.Body.String())
}

func TestCategories(t *testing.T) {
	app := setupApp(t)

	rr := app.get(t, "/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var categories []entities.Category
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &categories))
	assert.NotEmpty(t, categories)
}
