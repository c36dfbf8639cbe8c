// Package stats answers the aggregate queries behind the admin dashboard.
package stats

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/ebooklib/internal/entities"
)

type EbookDownloads struct {
	Ebook         entities.Ebook `json:"ebook"`
	DownloadCount int64          `json:"download_count"`
}

type UserActivity struct {
	User          entities.User `json:"user"`
	ActivityCount int64         `json:"activity_count"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type countRow struct {
	ID    uint
	Total int64
}

// MostDownloaded returns the e-books with the most download entries.
func (r *Repository) MostDownloaded(limit int) ([]EbookDownloads, error) {
	var rows []countRow
	err := r.db.Model(&entities.ActivityLog{}).
		Select("ebook_id AS id, COUNT(id) AS total").
		Where("action = ?", entities.ActivityDownload).
		Group("ebook_id").
		Order("total DESC").Order("ebook_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count downloads: %w", err)
	}
	if len(rows) == 0 {
		return []EbookDownloads{}, nil
	}

	var books []entities.Ebook
	if err := r.db.Preload("Categories").Where("id IN ?", ids(rows)).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to load ebooks: %w", err)
	}
	byID := make(map[uint]entities.Ebook, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	result := make([]EbookDownloads, 0, len(rows))
	for _, row := range rows {
		if book, ok := byID[row.ID]; ok {
			result = append(result, EbookDownloads{Ebook: book, DownloadCount: row.Total})
		}
	}
	return result, nil
}

// MostActiveUsers returns the users with the most activity entries of any kind.
func (r *Repository) MostActiveUsers(limit int) ([]UserActivity, error) {
	var rows []countRow
	err := r.db.Model(&entities.ActivityLog{}).
		Select("user_id AS id, COUNT(id) AS total").
		Group("user_id").
		Order("total DESC").Order("user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}
	if len(rows) == 0 {
		return []UserActivity{}, nil
	}

	var users []entities.User
	if err := r.db.Where("id IN ?", ids(rows)).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	byID := make(map[uint]entities.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	result := make([]UserActivity, 0, len(rows))
	for _, row := range rows {
		if user, ok := byID[row.ID]; ok {
			result = append(result, UserActivity{User: user, ActivityCount: row.Total})
		}
	}
	return result, nil
}

func (r *Repository) TotalUsers() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// LatestUsers returns the most recently registered users.
func (r *Repository) LatestUsers(limit int) ([]entities.User, error) {
	users := []entities.User{}
	err := r.db.Order("id DESC").Limit(limit).Find(&users).Error
	return users, err
}

// LatestEbooks returns the most recently added e-books.
func (r *Repository) LatestEbooks(limit int) ([]entities.Ebook, error) {
	books := []entities.Ebook{}
	err := r.db.Preload("Categories").Order("id DESC").Limit(limit).Find(&books).Error
	return books, err
}

func ids(rows []countRow) []uint {
	out := make([]uint, len(rows))
	for i, row := range rows {
		out[i] = row.ID
	}
	return out
}
