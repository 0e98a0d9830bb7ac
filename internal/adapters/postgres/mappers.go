package postgres

import (
	"errors"

	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
	"gorm.io/gorm"
)

func toOutboxRecord(row outboxEventModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		ID:           row.ID,
		EventID:      row.EventID,
		EventType:    row.EventType,
		PartitionKey: row.PartitionKey,
		Payload:      []byte(row.Payload),
		Status:       row.Status,
		AttemptCount: row.AttemptCount,
		LastError:    row.LastError,
		ClaimToken:   row.ClaimToken,
		ClaimUntil:   row.ClaimUntil,
		CreatedAt:    row.CreatedAt,
		ProcessedAt:  row.ProcessedAt,
	}
}

func toJournalRecord(row journalEntryModel) ports.JournalRecord {
	return ports.JournalRecord{
		EntryID:   row.EntryID,
		UserID:    row.UserID,
		TitleEnc:  row.TitleEnc,
		BodyEnc:   row.BodyEnc,
		Mood:      row.Mood,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func toExportRecord(row exportRecordModel) domain.ExportRecord {
	return domain.ExportRecord{
		ExportID:    row.ExportID,
		UserID:      row.UserID,
		Format:      row.Format,
		Status:      row.Status,
		FilePath:    row.FilePath,
		EntryCount:  row.EntryCount,
		RequestedAt: row.RequestedAt,
		CompletedAt: row.CompletedAt,
		ExpiresAt:   row.ExpiresAt,
	}
}

// insertOutboxEvents stages change events inside the caller's transaction.
// Callers pass the same tx handle their domain writes run on, which is what
// makes event emission atomic with the write it describes.
func insertOutboxEvents(tx *gorm.DB, events []ports.OutboxEvent) error {
	for _, event := range events {
		payload := event.Payload
		if len(payload) == 0 {
			payload = []byte(`{}`)
		}
		rec := outboxEventModel{
			EventID:      event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      string(payload),
			Status:       ports.OutboxStatusPending,
			CreatedAt:    event.OccurredAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
