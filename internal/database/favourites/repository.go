// Package favourites provides database operations for per-user favourite e-books.
//
// # Usage
//
//	repo := favourites.NewRepository(db)
//	books, err := repo.ListEbooks(userID)
package favourites

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/ebooklib/internal/entities"
)

var ErrNotFound = errors.New("favorite entry not found")

// Repository handles all favourites database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new favourites repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add marks an e-book as favourite. Adding the same pair twice is a no-op.
func (r *Repository) Add(userID, ebookID uint) error {
	favorite := entities.Favorite{UserID: userID, EbookID: ebookID}
	err := r.db.Where("user_id = ? AND ebook_id = ?", userID, ebookID).FirstOrCreate(&favorite).Error
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// Remove deletes a favourite entry.
func (r *Repository) Remove(userID, ebookID uint) error {
	result := r.db.Where("user_id = ? AND ebook_id = ?", userID, ebookID).Delete(&entities.Favorite{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsFavourite reports whether the user has favourited the e-book.
func (r *Repository) IsFavourite(userID, ebookID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Favorite{}).
		Where("user_id = ? AND ebook_id = ?", userID, ebookID).
		Count(&count).Error
	return count > 0, err
}

// ListEbooks returns the user's favourite e-books, most recently added first.
func (r *Repository) ListEbooks(userID uint) ([]entities.Ebook, error) {
	var books []entities.Ebook
	err := r.db.Model(&entities.Ebook{}).
		Preload("Categories").
		Joins("JOIN favorites ON favorites.ebook_id = ebooks.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.id DESC").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return books, nil
}
