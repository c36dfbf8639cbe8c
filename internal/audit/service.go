// Package audit records who changed what in the library. Writes happen in
// the background; Wait flushes them on shutdown.
package audit

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/ebooklib/internal/database/audit"
	"github.com/mrlokans/ebooklib/internal/entities"
	"github.com/mrlokans/ebooklib/internal/logging"
)

const maxTextLength = 300

// Service writes and reads the audit log.
type Service struct {
	repo *audit.Repository
	now  func() time.Time
	wg   sync.WaitGroup
}

func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record writes an entry synchronously.
func (s *Service) Record(entry *entities.AuditEntry) error {
	return s.repo.Append(entry)
}

func (s *Service) recordAsync(entry *entities.AuditEntry) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.Append(entry); err != nil {
			logging.WithError(err).WithField("action", entry.Action).Error("failed to write audit entry")
		}
	}()
}

// Wait blocks until pending background writes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogAuth records a login or logout. userID is 0 when the caller is unknown.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	s.recordAsync(&entities.AuditEntry{
		ActorID:   optionalID(userID),
		Category:  entities.AuditAuth,
		Action:    action,
		ClientIP:  ipAddr,
		UserAgent: truncate(userAgent, maxTextLength),
		Succeeded: success,
	})
}

// LogCatalog records an admin change to an e-book. ebookID is 0 when a create failed.
func (s *Service) LogCatalog(userID uint, action string, ebookID uint, title string, err error) {
	s.recordAsync(withError(&entities.AuditEntry{
		ActorID:  optionalID(userID),
		Category: entities.AuditCatalog,
		Action:   action,
		EbookID:  optionalID(ebookID),
		Summary:  truncate(title, maxTextLength),
	}, err))
}

// LogAccount records a change to a user account made by that user or by the CLI.
func (s *Service) LogAccount(userID uint, action, description string) {
	s.recordAsync(&entities.AuditEntry{
		ActorID:   optionalID(userID),
		Category:  entities.AuditAccount,
		Action:    action,
		SubjectID: optionalID(userID),
		Summary:   truncate(description, maxTextLength),
		Succeeded: true,
	})
}

// LogMaintenance records a cleanup run and how many rows it removed.
func (s *Service) LogMaintenance(action string, removed int64, err error) {
	s.recordAsync(withError(&entities.AuditEntry{
		Category: entities.AuditMaintenance,
		Action:   action,
		Removed:  &removed,
	}, err))
}

// List returns one page of entries, newest first.
func (s *Service) List(f audit.Filter, limit, offset int) ([]entities.AuditEntry, int64, error) {
	return s.repo.List(f, limit, offset)
}

// Purge deletes entries older than cutoff.
func (s *Service) Purge(cutoff time.Time) (int64, error) {
	return s.repo.Purge(cutoff)
}

func withError(entry *entities.AuditEntry, err error) *entities.AuditEntry {
	entry.Succeeded = err == nil
	if err != nil {
		entry.Error = truncate(err.Error(), maxTextLength)
	}
	return entry
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

// truncate shortens s to at most maxRunes characters, marking the cut with "...".
func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes-3]) + "..."
}
