package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
	"gorm.io/gorm"
)

type journalRepository struct {
	db *gorm.DB
}

func (r *journalRepository) CreateWithEvents(ctx context.Context, params ports.JournalWriteParams, events []ports.OutboxEvent) (ports.JournalRecord, error) {
	rec := journalEntryModel{
		EntryID:   params.EntryID,
		UserID:    params.UserID,
		TitleEnc:  params.TitleEnc,
		BodyEnc:   params.BodyEnc,
		Mood:      params.Mood,
		CreatedAt: params.At,
		UpdatedAt: params.At,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return insertOutboxEvents(tx, events)
	})
	if err != nil {
		return ports.JournalRecord{}, err
	}
	return toJournalRecord(rec), nil
}

func (r *journalRepository) UpdateWithEvents(ctx context.Context, params ports.JournalWriteParams, events []ports.OutboxEvent) (ports.JournalRecord, error) {
	var rec journalEntryModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&journalEntryModel{}).
			Where("entry_id = ?", params.EntryID).
			Where("user_id = ?", params.UserID).
			Updates(map[string]any{
				"title_enc":  params.TitleEnc,
				"body_enc":   params.BodyEnc,
				"mood":       params.Mood,
				"updated_at": params.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := tx.Where("entry_id = ?", params.EntryID).Take(&rec).Error; err != nil {
			return err
		}
		return insertOutboxEvents(tx, events)
	})
	if err != nil {
		return ports.JournalRecord{}, err
	}
	return toJournalRecord(rec), nil
}

func (r *journalRepository) DeleteWithEvents(ctx context.Context, entryID, userID uuid.UUID, events []ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("entry_id = ?", entryID).
			Where("user_id = ?", userID).
			Delete(&journalEntryModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return insertOutboxEvents(tx, events)
	})
}

func (r *journalRepository) GetByID(ctx context.Context, entryID, userID uuid.UUID) (ports.JournalRecord, error) {
	var rec journalEntryModel
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Where("user_id = ?", userID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.JournalRecord{}, domain.ErrNotFound
		}
		return ports.JournalRecord{}, err
	}
	return toJournalRecord(rec), nil
}

func (r *journalRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]ports.JournalRecord, error) {
	var rows []journalEntryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]ports.JournalRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, toJournalRecord(row))
	}
	return result, nil
}
