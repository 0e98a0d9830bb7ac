package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/stillwaterhq/datacore/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type revocationRepository struct {
	db *gorm.DB
}

// Insert is idempotent. Revoking a jti twice keeps the original revoked_at,
// so the earliest revocation wins.
func (r *revocationRepository) Insert(ctx context.Context, entry domain.RevocationEntry) error {
	rec := tokenRevocationModel{
		JTI:       entry.JTI,
		RevokedAt: entry.RevokedAt,
		ExpiresAt: entry.ExpiresAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "jti"}},
		DoNothing: true,
	}).Create(&rec).Error
}

func (r *revocationRepository) Exists(ctx context.Context, jti string) (bool, error) {
	var rec tokenRevocationModel
	if err := r.db.WithContext(ctx).Where("jti = ?", jti).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *revocationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", before).
		Delete(&tokenRevocationModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *revocationRepository) ListActive(ctx context.Context, now time.Time, limit int) ([]domain.RevocationEntry, error) {
	var rows []tokenRevocationModel
	query := r.db.WithContext(ctx).
		Where("expires_at > ?", now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.RevocationEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.RevocationEntry{
			JTI:       row.JTI,
			RevokedAt: row.RevokedAt,
			ExpiresAt: row.ExpiresAt,
		})
	}
	return result, nil
}
