package entities

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
}

func (Category) TableName() string {
	return "categories"
}

type Ebook struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Title            string     `gorm:"index;size:200;not null" json:"title"`
	Author           string     `gorm:"index;size:100" json:"author"`
	Description      string     `gorm:"type:text" json:"description"`
	PublicationYear  *int       `json:"publication_year"`
	FileKey          string     `gorm:"size:512;not null" json:"-"`
	CoverKey         string     `gorm:"size:512" json:"-"`
	OriginalFilename string     `gorm:"size:255" json:"original_filename,omitempty"`
	FileSize         int64      `json:"file_size"`
	Categories       []Category `gorm:"many2many:ebook_categories;" json:"categories"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// CoverImagePath is the public URL of the cover, derived from CoverKey.
	CoverImagePath string `gorm:"-" json:"cover_image_path"`
}

func (Ebook) TableName() string {
	return "ebooks"
}

func (e *Ebook) AfterFind(tx *gorm.DB) error {
	e.fillView()
	return nil
}

func (e *Ebook) AfterSave(tx *gorm.DB) error {
	e.fillView()
	return nil
}

func (e *Ebook) fillView() {
	if e.CoverKey != "" && e.ID != 0 {
		e.CoverImagePath = fmt.Sprintf("/ebooks/%d/cover", e.ID)
	} else {
		e.CoverImagePath = ""
	}
	if e.Categories == nil {
		e.Categories = []Category{}
	}
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_favorites_user_ebook;not null" json:"user_id"`
	EbookID   uint      `gorm:"uniqueIndex:idx_favorites_user_ebook;index;not null" json:"ebook_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}
