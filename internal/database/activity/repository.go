// Package activity records which users downloaded or read which e-books.
package activity

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/ebooklib/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Log appends an activity entry stamped with the current time.
func (r *Repository) Log(userID, ebookID uint, action entities.ActivityAction) error {
	entry := entities.ActivityLog{
		UserID:    userID,
		EbookID:   ebookID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
	if err := r.db.Omit(clause.Associations).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to log %s activity: %w", action, err)
	}
	return nil
}

// ListForUser returns the user's history newest first, with each e-book attached.
func (r *Repository) ListForUser(userID uint) ([]entities.ActivityLog, error) {
	var entries []entities.ActivityLog
	err := r.db.Preload("Ebook").Preload("Ebook.Categories").
		Where("user_id = ?", userID).
		Order("timestamp DESC").Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan removes entries logged before the cutoff and returns how many were removed.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", cutoff).Delete(&entities.ActivityLog{})
	return result.RowsAffected, result.Error
}
