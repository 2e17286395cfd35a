package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	ctx = withOp(ctx, "CreateRefreshToken")

	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to store refresh token").
			Uint("owner_id", token.UserID).
			Err(err).
			Log()
		return err
	}
	return nil
}

// Redeem revokes the active token with hash and stores next for the same
// user in one transaction. The revocation is a conditional update on
// revoked_at IS NULL, so of two concurrent redemptions exactly one
// succeeds. Returns gorm.ErrRecordNotFound for unknown hashes and
// ErrConflict for revoked, expired or concurrently redeemed tokens.
func (r *RefreshTokenRepository) Redeem(ctx context.Context, hash string, now time.Time, next *model.RefreshToken) error {
	ctx = withOp(ctx, "RedeemRefreshToken")

	start := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.RefreshToken
		if err := tx.Where("token_hash = ?", hash).First(&current).Error; err != nil {
			return err
		}
		if !current.Active(now) {
			return ErrConflict
		}

		result := tx.Model(&model.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", current.ID).
			Update("revoked_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return ErrConflict
		}

		next.UserID = current.UserID
		return tx.Create(next).Error
	})

	if err != nil && !IsNotFound(err) && !errors.Is(err, ErrConflict) {
		logger.ErrorWithContext(ctx, "Failed to redeem refresh token").
			Duration(time.Since(start)).
			Err(err).
			Log()
	}
	return err
}

// Revoke marks the token revoked if it is still unrevoked. Unknown or
// already revoked hashes are a no-op. Returns the number of rows changed.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, hash string, now time.Time) (int64, error) {
	ctx = withOp(ctx, "RevokeRefreshToken")

	result := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke refresh token").Err(result.Error).Log()
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
