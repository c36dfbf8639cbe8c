package http

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/database/ebooks"
	"github.com/mrlokans/ebooklib/internal/entities"
	"github.com/mrlokans/ebooklib/internal/library"
	"github.com/mrlokans/ebooklib/internal/logging"
)

const (
	msgEbookNotFound = "ebook not found"
	msgFileNotFound  = "file not found on server"

	multipartMemory = 8 << 20
)

// EbooksController serves the catalog and the stored files.
type EbooksController struct {
	reader    EbookReader
	manager   EbookManager
	activity  ActivityStore
	audit     CatalogAuditor
	downloads DownloadRecorder
	maxUpload int64
}

// NewEbooksController creates a controller. audit and downloads may be nil.
func NewEbooksController(reader EbookReader, manager EbookManager, activity ActivityStore, audit CatalogAuditor, downloads DownloadRecorder, maxUpload int64) *EbooksController {
	return &EbooksController{
		reader:    reader,
		manager:   manager,
		activity:  activity,
		audit:     audit,
		downloads: downloads,
		maxUpload: maxUpload,
	}
}

// updateEbookRequest is a partial update; absent fields stay unchanged.
type updateEbookRequest struct {
	Title           *string  `json:"title"`
	Author          *string  `json:"author"`
	Description     *string  `json:"description"`
	PublicationYear *int     `json:"publication_year"`
	Categories      []string `json:"categories"`
}

// respondEbookError maps catalog errors to responses.
func respondEbookError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, ebooks.ErrNotFound):
		respondNotFound(c, msgEbookNotFound)
	case errors.Is(err, library.ErrFileMissing):
		respondNotFound(c, msgFileNotFound)
	case errors.Is(err, library.ErrInvalidInput):
		respondBadRequest(c, strings.TrimPrefix(err.Error(), library.ErrInvalidInput.Error()+": "))
	default:
		respondInternalError(c, err, context)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// List handles GET /ebooks.
func (ec *EbooksController) List(c *gin.Context) {
	skip, limit, ok := parsePage(c, ebooks.DefaultLimit, ebooks.MaxLimit)
	if !ok {
		return
	}
	if limit == 0 {
		respondEmptyPage(c)
		return
	}
	books, err := ec.reader.List(ebooks.ListOptions{
		Skip:   skip,
		Limit:  limit,
		Search: c.Query("search"),
		SortBy: ebooks.ParseSortOrder(c.Query("sort_by")),
	})
	if err != nil {
		respondInternalError(c, err, "list ebooks")
		return
	}
	c.JSON(http.StatusOK, nonNil(books))
}

// Get handles GET /ebooks/:id.
func (ec *EbooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := ec.reader.Get(id)
	if err != nil {
		respondEbookError(c, err, "get ebook")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Categories handles GET /categories.
func (ec *EbooksController) Categories(c *gin.Context) {
	categories, err := ec.reader.ListCategories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, nonNil(categories))
}

// Create handles POST /ebooks (multipart).
func (ec *EbooksController) Create(c *gin.Context) {
	if ec.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ec.maxUpload)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondError(c, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		respondBadRequest(c, "expected multipart form data")
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	in := library.NewEbook{
		Title:       c.PostForm("title"),
		Author:      c.PostForm("author"),
		Description: c.PostForm("description"),
		Categories:  splitCategories(c.PostForm("categories")),
	}
	if raw := strings.TrimSpace(c.PostForm("publication_year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondValidation(c, "publication_year must be an integer", gin.H{"publication_year": raw})
			return
		}
		in.PublicationYear = &year
	}

	pdf, closePDF, err := openPart(c, "pdf_file")
	if err != nil {
		respondInternalError(c, err, "open pdf_file")
		return
	}
	defer closePDF()
	cover, closeCover, err := openPart(c, "cover_image")
	if err != nil {
		respondInternalError(c, err, "open cover_image")
		return
	}
	defer closeCover()
	in.PDF, in.Cover = pdf, cover

	book, err := ec.manager.Create(c.Request.Context(), in)
	if err != nil {
		if !errors.Is(err, library.ErrInvalidInput) {
			ec.logCatalog(c, "create", 0, in.Title, err)
		}
		respondEbookError(c, err, "create ebook")
		return
	}
	ec.logCatalog(c, "create", book.ID, book.Title, nil)
	c.JSON(http.StatusCreated, book)
}

// openPart opens an optional multipart file; a missing part yields nil.
func openPart(c *gin.Context, field string) (*library.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &library.Upload{Filename: header.Filename, Content: f}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() { f.Close() }
}

func splitCategories(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Update handles PUT /ebooks/:id.
func (ec *EbooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateEbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	book, err := ec.manager.Update(id, ebooks.Changes{
		Title:           req.Title,
		Author:          req.Author,
		Description:     req.Description,
		PublicationYear: req.PublicationYear,
		Categories:      req.Categories,
	})
	if err != nil {
		respondEbookError(c, err, "update ebook")
		return
	}
	ec.logCatalog(c, "update", book.ID, book.Title, nil)
	c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /ebooks/:id.
func (ec *EbooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := ec.manager.Delete(c.Request.Context(), id)
	if err != nil {
		respondEbookError(c, err, "delete ebook")
		return
	}
	ec.logCatalog(c, "delete", book.ID, book.Title, nil)
	c.Status(http.StatusNoContent)
}

// Download handles GET /ebooks/:id/download and logs a download.
func (ec *EbooksController) Download(c *gin.Context) {
	ec.serveFile(c, entities.ActivityDownload, "attachment")
}

// Read handles GET /ebooks/:id/read. Anonymous reads are served but not logged.
func (ec *EbooksController) Read(c *gin.Context) {
	ec.serveFile(c, entities.ActivityRead, "inline")
}

func (ec *EbooksController) serveFile(c *gin.Context, action entities.ActivityAction, disposition string) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	file, err := ec.manager.OpenFile(c.Request.Context(), id)
	if err != nil {
		respondEbookError(c, err, "open ebook file")
		return
	}
	defer file.Content.Close()

	if userID := auth.GetUserID(c); userID != 0 {
		if err := ec.activity.Log(userID, id, action); err != nil {
			logging.WithError(err).WithField("ebook_id", id).Warn("Failed to log activity")
		}
	}
	if action == entities.ActivityDownload && ec.downloads != nil {
		ec.downloads.RecordDownload()
	}

	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, file.Content, map[string]string{
		"Content-Disposition": mime.FormatMediaType(disposition, map[string]string{"filename": file.Filename}),
	})
}

// Cover handles GET /ebooks/:id/cover.
func (ec *EbooksController) Cover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	file, err := ec.manager.OpenCover(c.Request.Context(), id)
	if err != nil {
		respondEbookError(c, err, "open cover")
		return
	}
	defer file.Content.Close()

	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, file.Content, map[string]string{
		"Cache-Control": "public, max-age=86400",
	})
}

func (ec *EbooksController) logCatalog(c *gin.Context, action string, ebookID uint, title string, err error) {
	if ec.audit != nil {
		ec.audit.LogCatalog(auth.GetUserID(c), action, ebookID, title, err)
	}
}
