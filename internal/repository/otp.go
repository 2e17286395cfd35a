package repository

import (
	"context"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OtpRepository struct {
	db *gorm.DB
}

func NewOtpRepository(db *gorm.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

// Upsert replaces any challenge for the same email, resetting attempts.
func (r *OtpRepository) Upsert(ctx context.Context, challenge *model.OtpChallenge) error {
	ctx = withOp(ctx, "UpsertChallenge")

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code_hash", "expires_at", "attempts", "last_sent_at", "updated_at",
		}),
	}).Create(challenge).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to upsert otp challenge").
			String("email", challenge.Email).
			Err(err).
			Log()
	}
	return err
}

func (r *OtpRepository) GetByEmail(ctx context.Context, email string) (*model.OtpChallenge, error) {
	ctx = withOp(ctx, "GetChallenge")

	var challenge model.OtpChallenge
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

// ReserveAttempt spends one attempt on the challenge identified by id and
// code hash before the code is compared. It reports false once the
// challenge has used up maxAttempts or was replaced or consumed.
func (r *OtpRepository) ReserveAttempt(ctx context.Context, id uint, codeHash string, maxAttempts int) (bool, error) {
	ctx = withOp(ctx, "ReserveAttempt")

	result := r.db.WithContext(ctx).Model(&model.OtpChallenge{}).
		Where("id = ? AND code_hash = ? AND attempts < ?", id, codeHash, maxAttempts).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1))
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to reserve otp attempt").Err(result.Error).Log()
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete removes the challenge identified by id and code hash.
// ErrRecordNotFound means another request consumed or replaced it first.
func (r *OtpRepository) Delete(ctx context.Context, id uint, codeHash string) error {
	ctx = withOp(ctx, "DeleteChallenge")

	result := r.db.WithContext(ctx).Where("id = ? AND code_hash = ?", id, codeHash).Delete(&model.OtpChallenge{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete otp challenge").Err(result.Error).Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
