package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

const (
	ExportFormatJSON = "json"
	ExportFormatCSV  = "csv"
)

const (
	EventExportRequested = "export_record.requested"
	EventExportCompleted = "export_record.completed"
	EventExportFailed    = "export_record.failed"
)

// ExportRecord tracks one lock-serialized export generation for a user.
type ExportRecord struct {
	ExportID    uuid.UUID
	UserID      uuid.UUID
	Format      string
	Status      string
	FilePath    string
	EntryCount  int
	RequestedAt time.Time
	CompletedAt *time.Time
	ExpiresAt   time.Time
}

func (r ExportRecord) EventEntity() string { return "export_record" }

func (r ExportRecord) EventEntityID() string { return r.ExportID.String() }

func (r ExportRecord) EventOwner() uuid.UUID { return r.UserID }

func (r ExportRecord) EventBody(ChangeKind) map[string]any {
	body := map[string]any{
		"format": r.Format,
		"status": r.Status,
	}
	if r.Status == ExportStatusCompleted {
		body["entry_count"] = r.EntryCount
	}
	return body
}

// ExportLockKey composes the mutual-exclusion key for export generation.
// Operation name plus resource identifiers: duplicate requests for the same
// (user, format) serialize, different resources proceed in parallel.
func ExportLockKey(userID uuid.UUID, format string) string {
	return "export:" + userID.String() + ":" + format
}
