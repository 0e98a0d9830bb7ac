package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
)

type Config struct {
	SourceService  string
	ExportDir      string
	ExportLockTTL  time.Duration
	ExportTTL      time.Duration
	ListLimit      int
	CacheTTL       time.Duration
	IdempotencyTTL time.Duration
}

// Identity is the validated caller extracted from an access token. ExpiresAt
// rides along so revocation can be stored exactly until natural expiry.
type Identity struct {
	UserID    uuid.UUID
	JTI       string
	Role      string
	ExpiresAt time.Time
}

type JournalEntryRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Mood  int    `json:"mood"`
}

type JournalEntryView struct {
	EntryID   uuid.UUID `json:"entry_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Mood      int       `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JournalIndexItem is a list row. It carries no decrypted content so the
// whole index stays safe to hold in the local cache.
type JournalIndexItem struct {
	EntryID   uuid.UUID `json:"entry_id"`
	Mood      int       `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JournalIndex struct {
	Entries []JournalIndexItem `json:"entries"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

type ExportRequest struct {
	Format string `json:"format"`
}

type ExportView struct {
	ExportID    uuid.UUID  `json:"export_id"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	FilePath    string     `json:"file_path,omitempty"`
	EntryCount  int        `json:"entry_count"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

type PurgeResult struct {
	UserID     uuid.UUID `json:"user_id"`
	KeyDeleted bool      `json:"key_deleted"`
	PurgedAt   time.Time `json:"purged_at"`
}

func toJournalIndexItem(rec ports.JournalRecord) JournalIndexItem {
	return JournalIndexItem{
		EntryID:   rec.EntryID,
		Mood:      rec.Mood,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toExportView(rec domain.ExportRecord) ExportView {
	view := ExportView{
		ExportID:    rec.ExportID,
		Format:      rec.Format,
		Status:      rec.Status,
		EntryCount:  rec.EntryCount,
		RequestedAt: rec.RequestedAt,
		CompletedAt: rec.CompletedAt,
		ExpiresAt:   rec.ExpiresAt,
	}
	if rec.Status == domain.ExportStatusCompleted {
		view.FilePath = rec.FilePath
	}
	return view
}
