package repository

import (
	"context"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to tx
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = withOp(ctx, "GetByID")

	start := time.Now()
	var user model.User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		if !IsNotFound(result.Error) {
			logger.ErrorWithContext(ctx, "Failed to get user by ID").
				Uint("lookup_id", id).
				Duration(time.Since(start)).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &user, nil
}

// GetByEmail expects an already normalized (lowercase) email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = withOp(ctx, "GetByEmail")

	start := time.Now()
	var user model.User
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		if !IsNotFound(result.Error) {
			logger.ErrorWithContext(ctx, "Failed to get user by email").
				String("email", email).
				Duration(time.Since(start)).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved by email").
		Uint("found_user_id", user.ID).
		Duration(time.Since(start)).
		Log()

	return &user, nil
}

func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	ctx = withOp(ctx, "GetByGoogleID")

	var user model.User
	result := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user)
	if result.Error != nil {
		if !IsNotFound(result.Error) {
			logger.ErrorWithContext(ctx, "Failed to get user by google id").Err(result.Error).Log()
		}
		return nil, result.Error
	}
	return &user, nil
}

// GetByEmails returns the users whose email is in emails.
func (r *UserRepository) GetByEmails(ctx context.Context, emails []string) ([]model.User, error) {
	ctx = withOp(ctx, "GetByEmails")

	if len(emails) == 0 {
		return nil, nil
	}

	var users []model.User
	if err := r.db.WithContext(ctx).Where("email IN ?", emails).Find(&users).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to get users by emails").
			Int("count", len(emails)).
			Err(err).
			Log()
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = withOp(ctx, "Create")

	start := time.Now()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			String("strategy", string(user.Strategy)).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "User created").
		Uint("created_user_id", user.ID).
		String("strategy", string(user.Strategy)).
		Duration(time.Since(start)).
		Log()
	return nil
}

// LinkGoogleID sets the external identity only while the row has none, so
// two concurrent links cannot overwrite each other. ErrConflict means the
// row was linked in the meantime.
func (r *UserRepository) LinkGoogleID(ctx context.Context, id uint, googleID string, strategy model.Strategy) error {
	ctx = withOp(ctx, "LinkGoogleID")

	updates := map[string]interface{}{"google_id": googleID}
	if strategy != "" {
		updates["strategy"] = strategy
	}

	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND google_id IS NULL", id).
		Updates(updates)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to link google id").
			Uint("target_user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *UserRepository) UpdateStrategy(ctx context.Context, id uint, strategy model.Strategy) error {
	ctx = withOp(ctx, "UpdateStrategy")

	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("strategy", strategy).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to update strategy").Uint("target_user_id", id).Err(err).Log()
	}
	return err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	ctx = withOp(ctx, "UpdateLastLogin")

	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("last_login", at).Error
	if err != nil {
		logger.WarnWithContext(ctx, "Failed to update last login").Uint("target_user_id", id).Err(err).Log()
	}
	return err
}

// UpdateProfile writes the given profile columns.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint, columns map[string]any) error {
	ctx = withOp(ctx, "UpdateProfile")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update profile").Uint("target_user_id", id).Err(result.Error).Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
