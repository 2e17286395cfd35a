package service

import (
	"context"
	"strings"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
)

// ProfilePatch carries only the fields the caller supplied. A blank name
// is ignored; blank avatar or contact clears them.
type ProfilePatch struct {
	Name      *string
	AvatarURL *string
	Contact   *string
}

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Get(ctx context.Context, userID uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetUser")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, patch ProfilePatch) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateProfile")

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	columns := map[string]any{}
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" && name != user.Name {
			user.Name = name
			columns["name"] = name
		}
	}
	if patch.AvatarURL != nil {
		if avatar := strings.TrimSpace(*patch.AvatarURL); avatar != user.AvatarURL {
			user.AvatarURL = avatar
			columns["avatar_url"] = avatar
		}
	}
	if patch.Contact != nil {
		if contact := strings.TrimSpace(*patch.Contact); contact != user.Contact {
			user.Contact = contact
			columns["contact"] = contact
		}
	}
	if len(columns) == 0 {
		return user, nil
	}

	if err := s.users.UpdateProfile(ctx, userID, columns); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Profile updated").Int("fields", len(columns)).Log()
	return user, nil
}
