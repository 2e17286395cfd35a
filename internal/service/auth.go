package service

import (
	"context"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
)

// AuthResult is what every session-issuing flow returns.
type AuthResult struct {
	User    *model.User
	Session *Session
}

// AuthService joins identity resolution to session issuance.
type AuthService struct {
	identity *IdentityService
	tokens   *TokenService
	otp      *OTPService
	users    *repository.UserRepository
}

func NewAuthService(identity *IdentityService, tokens *TokenService, otp *OTPService, users *repository.UserRepository) *AuthService {
	return &AuthService{identity: identity, tokens: tokens, otp: otp, users: users}
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Register")

	user, err := s.identity.Register(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Login resolves any credential proof and starts a session.
func (s *AuthService) Login(ctx context.Context, proof CredentialProof) (*AuthResult, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Login")

	user, err := s.identity.Resolve(ctx, proof)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Refresh rotates the refresh token. A replayed or unknown token fails
// with ErrRefreshInvalid and the client must sign in again.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*AuthResult, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Refresh")

	session, err := s.tokens.Rotate(ctx, rawRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrRefreshInvalid
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return &AuthResult{User: user, Session: session}, nil
}

// Logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	return s.tokens.Revoke(ctx, rawRefresh)
}

func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	return s.otp.Request(ctx, email)
}

// Authenticate verifies a bearer access token without touching storage.
func (s *AuthService) Authenticate(accessToken string) (uint, error) {
	return s.tokens.VerifyAccess(accessToken)
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Me")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	session, err := s.tokens.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Session: session}, nil
}
