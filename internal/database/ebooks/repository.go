// Package ebooks provides database operations for the e-book catalog.
//
// # Usage
//
//	repo := ebooks.NewRepository(db)
//	books, err := repo.List(ebooks.ListOptions{Search: "tolstoy", SortBy: ebooks.SortPopular})
package ebooks

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/ebooklib/internal/entities"
)

var ErrNotFound = errors.New("ebook not found")

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

type SortOrder string

const (
	SortDefault SortOrder = ""
	SortNewest  SortOrder = "newest"
	SortPopular SortOrder = "popular"
	SortRating  SortOrder = "rating"
)

// ParseSortOrder maps a query value to a SortOrder. Unknown values fall back to id order.
func ParseSortOrder(value string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(value))) {
	case SortNewest:
		return SortNewest
	case SortPopular:
		return SortPopular
	case SortRating:
		return SortRating
	default:
		return SortDefault
	}
}

type ListOptions struct {
	Skip   int
	Limit  int
	Search string
	SortBy SortOrder
}

func (o ListOptions) normalized() ListOptions {
	if o.Skip < 0 {
		o.Skip = 0
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	o.Search = strings.TrimSpace(o.Search)
	return o
}

// Changes describes a partial update. Nil fields are left untouched.
type Changes struct {
	Title           *string
	Author          *string
	Description     *string
	PublicationYear *int
	Categories      []string
}

func (c Changes) empty() bool {
	return c.Title == nil && c.Author == nil && c.Description == nil &&
		c.PublicationYear == nil && c.Categories == nil
}

// Repository handles all e-book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ebooks repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns a page of e-books filtered by title/author substring and sorted by opts.SortBy.
func (r *Repository) List(opts ListOptions) ([]entities.Ebook, error) {
	opts = opts.normalized()

	query := r.db.Model(&entities.Ebook{}).Preload("Categories")

	if opts.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(opts.Search)) + "%"
		query = query.Where(
			`LOWER(ebooks.title) LIKE ? ESCAPE '\' OR LOWER(ebooks.author) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}

	switch opts.SortBy {
	case SortNewest:
		query = query.
			Order("CASE WHEN ebooks.publication_year IS NULL THEN 1 ELSE 0 END").
			Order("ebooks.publication_year DESC").
			Order("ebooks.id ASC")
	case SortPopular:
		// The action filter lives in the join so books without downloads stay in the result.
		query = query.Select("ebooks.*").
			Joins("LEFT JOIN activity_log ON activity_log.ebook_id = ebooks.id AND activity_log.action = ?", entities.ActivityDownload).
			Group("ebooks.id").
			Order("COUNT(activity_log.id) DESC").
			Order("ebooks.id ASC")
	case SortRating:
		query = query.Select("ebooks.*").
			Joins("LEFT JOIN reviews ON reviews.ebook_id = ebooks.id").
			Group("ebooks.id").
			Order("CASE WHEN COUNT(reviews.id) = 0 THEN 1 ELSE 0 END").
			Order("AVG(reviews.rating) DESC").
			Order("ebooks.id ASC")
	default:
		query = query.Order("ebooks.id ASC")
	}

	var books []entities.Ebook
	if err := query.Offset(opts.Skip).Limit(opts.Limit).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list ebooks: %w", err)
	}
	return books, nil
}

// Get retrieves an e-book with its categories.
func (r *Repository) Get(id uint) (*entities.Ebook, error) {
	var book entities.Ebook
	if err := r.db.Preload("Categories").First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ebook %d: %w", id, err)
	}
	return &book, nil
}

// Create inserts an e-book, creating any category names that don't exist yet.
func (r *Repository) Create(book *entities.Ebook, categoryNames []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		categories, err := resolveCategories(tx, categoryNames)
		if err != nil {
			return err
		}
		book.Categories = categories
		if err := tx.Create(book).Error; err != nil {
			return fmt.Errorf("failed to create ebook: %w", err)
		}
		return nil
	})
}

// Update applies a partial update and returns the fresh row.
func (r *Repository) Update(id uint, changes Changes) (*entities.Ebook, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var book entities.Ebook
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if changes.empty() {
			return nil
		}

		updates := map[string]interface{}{}
		if changes.Title != nil {
			updates["title"] = *changes.Title
		}
		if changes.Author != nil {
			updates["author"] = *changes.Author
		}
		if changes.Description != nil {
			updates["description"] = *changes.Description
		}
		if changes.PublicationYear != nil {
			updates["publication_year"] = *changes.PublicationYear
		}
		if len(updates) > 0 {
			if err := tx.Model(&book).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update ebook %d: %w", id, err)
			}
		}

		if changes.Categories != nil {
			categories, err := resolveCategories(tx, changes.Categories)
			if err != nil {
				return err
			}
			if err := tx.Model(&book).Association("Categories").Replace(categories); err != nil {
				return fmt.Errorf("failed to replace categories: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(id)
}

// Delete removes an e-book and everything that references it.
// The deleted row is returned so callers can clean up stored files.
func (r *Repository) Delete(id uint) (*entities.Ebook, error) {
	var book entities.Ebook
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&book).Association("Categories").Clear(); err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}
		for _, dependent := range []interface{}{&entities.Favorite{}, &entities.ActivityLog{}, &entities.Review{}} {
			if err := tx.Where("ebook_id = ?", id).Delete(dependent).Error; err != nil {
				return fmt.Errorf("failed to delete dependents of ebook %d: %w", id, err)
			}
		}
		return tx.Delete(&entities.Ebook{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories() ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}

func resolveCategories(tx *gorm.DB, names []string) ([]entities.Category, error) {
	categories := []entities.Category{}
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		var category entities.Category
		if err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&category).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to look up category %q: %w", name, err)
			}
			category = entities.Category{Name: name}
			if err := tx.Create(&category).Error; err != nil {
				return nil, fmt.Errorf("failed to create category %q: %w", name, err)
			}
		}
		categories = append(categories, category)
	}
	return categories, nil
}
