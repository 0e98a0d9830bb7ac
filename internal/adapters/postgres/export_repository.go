package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
	"gorm.io/gorm"
)

type exportRepository struct {
	db *gorm.DB
}

func (r *exportRepository) CreateWithEvents(ctx context.Context, params ports.ExportCreateParams, events []ports.OutboxEvent) (domain.ExportRecord, error) {
	rec := exportRecordModel{
		ExportID:    params.ExportID,
		UserID:      params.UserID,
		Format:      params.Format,
		Status:      domain.ExportStatusPending,
		RequestedAt: params.RequestedAt,
		ExpiresAt:   params.ExpiresAt,
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
		return domain.ExportRecord{}, err
	}
	return toExportRecord(rec), nil
}

func (r *exportRepository) Complete(ctx context.Context, exportID uuid.UUID, filePath string, entryCount int, completedAt time.Time, events []ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&exportRecordModel{}).
			Where("export_id = ?", exportID).
			Where("status = ?", domain.ExportStatusPending).
			Updates(map[string]any{
				"status":       domain.ExportStatusCompleted,
				"file_path":    filePath,
				"entry_count":  entryCount,
				"completed_at": completedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return insertOutboxEvents(tx, events)
	})
}

func (r *exportRepository) MarkFailed(ctx context.Context, exportID uuid.UUID, at time.Time, events []ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&exportRecordModel{}).
			Where("export_id = ?", exportID).
			Where("status = ?", domain.ExportStatusPending).
			Updates(map[string]any{
				"status":       domain.ExportStatusFailed,
				"completed_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return insertOutboxEvents(tx, events)
	})
}

func (r *exportRepository) GetByID(ctx context.Context, exportID, userID uuid.UUID) (domain.ExportRecord, error) {
	var rec exportRecordModel
	if err := r.db.WithContext(ctx).
		Where("export_id = ?", exportID).
		Where("user_id = ?", userID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ExportRecord{}, domain.ErrNotFound
		}
		return domain.ExportRecord{}, err
	}
	return toExportRecord(rec), nil
}

func (r *exportRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ExportRecord, error) {
	var rows []exportRecordModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("requested_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.ExportRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, toExportRecord(row))
	}
	return result, nil
}
