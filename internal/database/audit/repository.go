package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/ebooklib/internal/entities"
)

const (
	DefaultLimit = 50

	purgeBatch = 500
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Category entities.AuditCategory
	ActorID  uint
	EbookID  uint
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.ActorID != 0 {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	if f.EbookID != 0 {
		q = q.Where("ebook_id = ?", f.EbookID)
	}
	return q
}

// Repository stores the append-only audit log.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append writes one entry, stamping it when the caller did not.
func (r *Repository) Append(entry *entities.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.Create(entry).Error
}

// List returns one page of matching entries, newest first, with the total match count.
func (r *Repository) List(f Filter, limit, offset int) ([]entities.AuditEntry, int64, error) {
	var total int64
	if err := f.apply(r.db.Model(&entities.AuditEntry{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	var entries []entities.AuditEntry
	err := f.apply(r.db.Model(&entities.AuditEntry{})).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	return entries, total, err
}

// Purge deletes entries created before cutoff, purgeBatch rows per statement.
func (r *Repository) Purge(cutoff time.Time) (int64, error) {
	var removed int64
	for {
		batch := r.db.Model(&entities.AuditEntry{}).
			Select("id").
			Where("created_at < ?", cutoff).
			Limit(purgeBatch)
		result := r.db.Where("id IN (?)", batch).Delete(&entities.AuditEntry{})
		if result.Error != nil {
			return removed, result.Error
		}
		removed += result.RowsAffected
		if result.RowsAffected < purgeBatch {
			return removed, nil
		}
	}
}
