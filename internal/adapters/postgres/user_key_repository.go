package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stillwaterhq/datacore/internal/domain"
	"github.com/stillwaterhq/datacore/internal/ports"
	"gorm.io/gorm"
)

type userKeyRepository struct {
	db *gorm.DB
}

func (r *userKeyRepository) Get(ctx context.Context, userID uuid.UUID) (domain.UserEncryptionKey, error) {
	var rec userEncryptionKeyModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserEncryptionKey{}, domain.ErrNotFound
		}
		return domain.UserEncryptionKey{}, err
	}
	return domain.UserEncryptionKey{
		UserID:     rec.UserID,
		WrappedDEK: rec.WrappedDEK,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

// Insert relies on the primary key to arbitrate concurrent first-use key
// creation: exactly one writer wins, the rest get ErrConflict and refetch.
func (r *userKeyRepository) Insert(ctx context.Context, key domain.UserEncryptionKey) error {
	rec := userEncryptionKeyModel{
		UserID:     key.UserID,
		WrappedDEK: key.WrappedDEK,
		CreatedAt:  key.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *userKeyRepository) DeleteWithEvents(ctx context.Context, userID uuid.UUID, events []ports.OutboxEvent) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ?", userID).Delete(&userEncryptionKeyModel{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		if !deleted {
			return nil
		}
		return insertOutboxEvents(tx, events)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
