// Package reviews stores user ratings and reviews of e-books.
package reviews

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/ebooklib/internal/entities"
)

var ErrAlreadyReviewed = errors.New("user has already reviewed this ebook")

// RatingSummary aggregates the ratings of one e-book.
type RatingSummary struct {
	EbookID uint    `json:"ebook_id"`
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a review. Each user may review an e-book once.
func (r *Repository) Create(review *entities.Review) error {
	if review.Timestamp.IsZero() {
		review.Timestamp = time.Now().UTC()
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&entities.Review{}).
			Where("user_id = ? AND ebook_id = ?", review.UserID, review.EbookID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check existing review: %w", err)
		}
		if count > 0 {
			return ErrAlreadyReviewed
		}
		if err := tx.Omit(clause.Associations).Create(review).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}
		return nil
	})
}

// ListForEbook returns a page of reviews, oldest first, with reviewers attached.
func (r *Repository) ListForEbook(ebookID uint, skip, limit int) ([]entities.Review, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var reviews []entities.Review
	err := r.db.Preload("User").
		Where("ebook_id = ?", ebookID).
		Order("id ASC").
		Offset(skip).Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// Summary returns the average rating and review count. Unrated books report zero for both.
func (r *Repository) Summary(ebookID uint) (RatingSummary, error) {
	var row struct {
		Average *float64
		Count   int64
	}
	err := r.db.Model(&entities.Review{}).
		Select("AVG(rating) AS average, COUNT(id) AS count").
		Where("ebook_id = ?", ebookID).
		Scan(&row).Error
	if err != nil {
		return RatingSummary{}, fmt.Errorf("failed to summarise ratings: %w", err)
	}
	summary := RatingSummary{EbookID: ebookID, Count: row.Count}
	if row.Average != nil {
		summary.Average = *row.Average
	}
	return summary, nil
}
