package entities

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	UserID    uint      `gorm:"uniqueIndex:idx_reviews_user_ebook;not null" json:"user_id"`
	EbookID   uint      `gorm:"uniqueIndex:idx_reviews_user_ebook;index;not null" json:"ebook_id"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}
