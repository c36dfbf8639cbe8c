// Package library coordinates the e-book catalog with the file store.
//
// The database row and the stored objects are written in two steps. Create
// removes already stored objects when the insert fails; Delete removes the
// row first and hands the object keys to a FileRemover.
package library

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/mrlokans/ebooklib/internal/database/ebooks"
	"github.com/mrlokans/ebooklib/internal/entities"
	"github.com/mrlokans/ebooklib/internal/storage"
	"github.com/mrlokans/ebooklib/internal/utils"
)

const (
	MaxTitleLength  = 200
	MaxAuthorLength = 100
	MaxYear         = 9999

	pdfContentType = "application/pdf"
	sniffLen       = 512
)

var (
	// ErrInvalidInput wraps every validation failure; the message says which field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFileMissing is returned when the row exists but its stored object does not.
	ErrFileMissing = errors.New("file not found on server")
)

// Catalog is the subset of the e-book repository the service needs.
type Catalog interface {
	Get(id uint) (*entities.Ebook, error)
	Create(book *entities.Ebook, categoryNames []string) error
	Update(id uint, changes ebooks.Changes) (*entities.Ebook, error)
	Delete(id uint) (*entities.Ebook, error)
}

// FileRemover disposes of stored objects that no row references anymore.
type FileRemover interface {
	Remove(ctx context.Context, keys ...string) error
}

// InlineRemover deletes objects synchronously.
type InlineRemover struct {
	store storage.Client
}

func NewInlineRemover(store storage.Client) *InlineRemover {
	return &InlineRemover{store: store}
}

func (r *InlineRemover) Remove(ctx context.Context, keys ...string) error {
	return storage.DeleteAll(ctx, r.store, keys...)
}

// Upload is one multipart file part.
type Upload struct {
	Filename string
	Content  io.Reader
}

// NewEbook holds the fields of an admin upload.
type NewEbook struct {
	Title           string
	Author          string
	Description     string
	PublicationYear *int
	Categories      []string
	PDF             *Upload
	Cover           *Upload
}

// File is an opened stored object ready to be streamed.
type File struct {
	Ebook       *entities.Ebook
	Content     io.ReadCloser
	Size        int64
	ContentType string
	Filename    string
}

// Service manages e-books and their stored files.
type Service struct {
	catalog Catalog
	store   storage.Client
	remover FileRemover
	newID   func() string
}

// NewService creates a service. A nil remover deletes files inline.
func NewService(catalog Catalog, store storage.Client, remover FileRemover) *Service {
	if remover == nil {
		remover = NewInlineRemover(store)
	}
	return &Service{
		catalog: catalog,
		store:   store,
		remover: remover,
		newID:   uuid.NewString,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validateText(field, value string, maxLen int, required bool) (string, error) {
	value = strings.TrimSpace(value)
	if required && value == "" {
		return "", invalid("%s is required", field)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return "", invalid("%s must be at most %d characters", field, maxLen)
	}
	return value, nil
}

func validateYear(year *int) error {
	if year != nil && (*year < 0 || *year > MaxYear) {
		return invalid("publication_year must be between 0 and %d", MaxYear)
	}
	return nil
}

// Create validates the upload, stores both files under generated keys and
// inserts the row.
func (s *Service) Create(ctx context.Context, in NewEbook) (*entities.Ebook, error) {
	title, err := validateText("title", in.Title, MaxTitleLength, true)
	if err != nil {
		return nil, err
	}
	author, err := validateText("author", in.Author, MaxAuthorLength, true)
	if err != nil {
		return nil, err
	}
	if err := validateYear(in.PublicationYear); err != nil {
		return nil, err
	}
	if in.PDF == nil || in.PDF.Content == nil {
		return nil, invalid("pdf_file is required")
	}
	if in.Cover == nil || in.Cover.Content == nil {
		return nil, invalid("cover_image is required")
	}

	pdf := bufio.NewReaderSize(in.PDF.Content, sniffLen)
	if contentType := sniff(pdf); contentType != pdfContentType {
		return nil, invalid("pdf_file must be a PDF document")
	}
	cover := bufio.NewReaderSize(in.Cover.Content, sniffLen)
	coverType := sniff(cover)
	if !strings.HasPrefix(coverType, "image/") {
		return nil, invalid("cover_image must be an image")
	}

	book := &entities.Ebook{
		Title:            title,
		Author:           author,
		Description:      strings.TrimSpace(in.Description),
		PublicationYear:  in.PublicationYear,
		FileKey:          "ebooks/" + s.newID() + ".pdf",
		CoverKey:         "covers/" + s.newID() + coverExtension(coverType, in.Cover.Filename),
		OriginalFilename: utils.SanitizeFilename(in.PDF.Filename),
	}

	size, err := s.put(ctx, book.FileKey, pdf, pdfContentType)
	if err != nil {
		return nil, err
	}
	book.FileSize = size

	if _, err := s.put(ctx, book.CoverKey, cover, coverType); err != nil {
		s.discard(book.FileKey)
		return nil, err
	}

	if err := s.catalog.Create(book, in.Categories); err != nil {
		s.discard(book.FileKey, book.CoverKey)
		return nil, err
	}
	return book, nil
}

// Update validates and applies a partial update.
func (s *Service) Update(id uint, changes ebooks.Changes) (*entities.Ebook, error) {
	if changes.Title != nil {
		title, err := validateText("title", *changes.Title, MaxTitleLength, true)
		if err != nil {
			return nil, err
		}
		changes.Title = &title
	}
	if changes.Author != nil {
		author, err := validateText("author", *changes.Author, MaxAuthorLength, true)
		if err != nil {
			return nil, err
		}
		changes.Author = &author
	}
	if err := validateYear(changes.PublicationYear); err != nil {
		return nil, err
	}
	return s.catalog.Update(id, changes)
}

// Delete removes the row and its dependents, then its stored files. A failure
// to remove files is logged and does not fail the delete.
func (s *Service) Delete(ctx context.Context, id uint) (*entities.Ebook, error) {
	book, err := s.catalog.Delete(id)
	if err != nil {
		return nil, err
	}
	if err := s.remover.Remove(ctx, book.FileKey, book.CoverKey); err != nil {
		log.WithError(err).WithField("ebook_id", id).Warn("Failed to remove ebook files")
	}
	return book, nil
}

// OpenFile opens the PDF of an e-book.
func (s *Service) OpenFile(ctx context.Context, id uint) (*File, error) {
	book, err := s.catalog.Get(id)
	if err != nil {
		return nil, err
	}
	name := book.OriginalFilename
	if name == "" {
		name = utils.TitleFilename(book.Title, ".pdf")
	}
	if name == "" {
		name = fmt.Sprintf("ebook-%d.pdf", book.ID)
	}
	return s.open(ctx, book, book.FileKey, name)
}

// OpenCover opens the cover image of an e-book.
func (s *Service) OpenCover(ctx context.Context, id uint) (*File, error) {
	book, err := s.catalog.Get(id)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, book, book.CoverKey, filepath.Base(book.CoverKey))
}

func (s *Service) open(ctx context.Context, book *entities.Ebook, key, filename string) (*File, error) {
	if key == "" {
		return nil, ErrFileMissing
	}
	info, err := s.store.GetMetadata(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFileMissing
		}
		return nil, err
	}
	content, err := s.store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFileMissing
		}
		return nil, err
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &File{
		Ebook:       book,
		Content:     content,
		Size:        info.Size,
		ContentType: contentType,
		Filename:    filename,
	}, nil
}

func (s *Service) put(ctx context.Context, key string, content io.Reader, contentType string) (int64, error) {
	counter := &countingReader{r: content}
	if err := s.store.Upload(ctx, key, counter, contentType); err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", key, err)
	}
	return counter.n, nil
}

// discard removes objects stored for a failed create. It uses a fresh
// context so a cancelled request still cleans up.
func (s *Service) discard(keys ...string) {
	if err := storage.DeleteAll(context.Background(), s.store, keys...); err != nil {
		log.WithError(err).WithField("keys", keys).Warn("Failed to discard stored files")
	}
}

// sniff returns the detected content type without consuming the reader.
func sniff(r *bufio.Reader) string {
	head, _ := r.Peek(sniffLen)
	if len(head) == 0 {
		return ""
	}
	return http.DetectContentType(head)
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

func coverExtension(contentType, filename string) string {
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, `/\`) {
		return ".img"
	}
	return ext
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
