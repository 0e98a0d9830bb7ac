package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/stillwaterhq/datacore/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type outboxRepository struct {
	db *gorm.DB
}

// ClaimPending stamps a batch of claimable rows with this dispatcher's token
// inside one transaction. FOR UPDATE SKIP LOCKED keeps concurrent dispatchers
// from blocking on each other's candidate rows; the claim_until check lets a
// crashed claimant's rows come back after the visibility timeout.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}

	now := time.Now().UTC()
	var rows []outboxEventModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&outboxEventModel{}).
			Select("id").
			Where("status <> ?", ports.OutboxStatusProcessed).
			Where("claim_until IS NULL OR claim_until < ?", now).
			Order("id ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})

		if err := tx.Model(&outboxEventModel{}).
			Where("id IN (?)", subquery).
			Updates(map[string]any{
				"claim_token": claimToken,
				"claim_until": claimUntil,
			}).Error; err != nil {
			return err
		}

		return tx.Where("claim_token = ?", claimToken).
			Where("status <> ?", ports.OutboxStatusProcessed).
			Order("id ASC").
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}

	result := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, toOutboxRecord(row))
	}
	return result, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id int64, claimToken string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&outboxEventModel{}).
		Where("id = ?", id).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"status":       ports.OutboxStatusProcessed,
			"processed_at": at,
			"claim_token":  nil,
			"claim_until":  nil,
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id int64, claimToken, errMsg string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&outboxEventModel{}).
		Where("id = ?", id).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"status":        ports.OutboxStatusFailed,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    errMsg,
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
}
