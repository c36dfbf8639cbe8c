package entities

import "time"

// AuditCategory groups audit entries; the admin audit view filters on it.
type AuditCategory string

const (
	AuditAuth        AuditCategory = "auth"
	AuditCatalog     AuditCategory = "catalog"
	AuditAccount     AuditCategory = "account"
	AuditMaintenance AuditCategory = "maintenance"
)

// AuditEntry is one recorded change to the library or its accounts.
// Maintenance runs have no actor. Catalog entries point at the e-book,
// account entries at the user they changed.
type AuditEntry struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	ActorID   *uint         `gorm:"index" json:"actor_id"`
	Category  AuditCategory `gorm:"index;size:20" json:"category"`
	Action    string        `gorm:"size:50" json:"action"`
	EbookID   *uint         `gorm:"index" json:"ebook_id,omitempty"`
	SubjectID *uint         `json:"subject_id,omitempty"`
	Summary   string        `gorm:"size:300" json:"summary,omitempty"`
	Removed   *int64        `json:"removed,omitempty"`
	ClientIP  string        `gorm:"size:45" json:"client_ip,omitempty"`
	UserAgent string        `gorm:"size:300" json:"user_agent,omitempty"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `gorm:"size:300" json:"error,omitempty"`
	CreatedAt time.Time     `gorm:"index" json:"created_at"`
}

func (AuditEntry) TableName() string {
	return "audit_log"
}
