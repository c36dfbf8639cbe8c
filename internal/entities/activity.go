package entities

import "time"

type ActivityAction string

const (
	ActivityDownload ActivityAction = "download"
	ActivityRead     ActivityAction = "read"
)

type ActivityLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	EbookID   uint           `gorm:"index;not null" json:"ebook_id"`
	Action    ActivityAction `gorm:"index;size:20;not null" json:"action"`
	Timestamp time.Time      `gorm:"index;not null" json:"timestamp"`
	Ebook     *Ebook         `gorm:"foreignKey:EbookID" json:"ebook,omitempty"`
}

func (ActivityLog) TableName() string {
	return "activity_log"
}
