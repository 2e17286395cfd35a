package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CredentialProof is one proof of identity accepted by
// IdentityService.Resolve: PasswordProof, IdentityTokenProof, OTPProof or
// DemoProof.
type CredentialProof interface {
	Strategy() model.Strategy
}

type PasswordProof struct {
	Email    string
	Password string
}

type IdentityTokenProof struct {
	Token string
}

type OTPProof struct {
	Email string
	Code  string
}

// DemoProof selects one of the seeded demo accounts, "owner" or "member".
type DemoProof struct {
	Account string
}

func (PasswordProof) Strategy() model.Strategy      { return model.StrategyPassword }
func (IdentityTokenProof) Strategy() model.Strategy { return model.StrategyOAuth }
func (OTPProof) Strategy() model.Strategy           { return model.StrategyOTP }
func (DemoProof) Strategy() model.Strategy          { return model.StrategyDemo }

const (
	DemoAccountOwner  = "owner"
	DemoAccountMember = "member"
)

// CodeVerifier consumes a one-time code for an email.
type CodeVerifier interface {
	Verify(ctx context.Context, email, code string) error
}

type DemoAccounts struct {
	Enabled     bool
	OwnerEmail  string
	MemberEmail string
}

// IdentityService turns a credential proof into exactly one canonical user.
type IdentityService struct {
	users      *repository.UserRepository
	verifier   IdentityVerifier
	codes      CodeVerifier
	demo       DemoAccounts
	bcryptCost int
	dummyHash  []byte
	now        func() time.Time
}

func NewIdentityService(
	users *repository.UserRepository,
	verifier IdentityVerifier,
	codes CodeVerifier,
	demo DemoAccounts,
	bcryptCost int,
) (*IdentityService, error) {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	// compared against when the account is missing so both failures cost the same
	dummy, err := bcrypt.GenerateFromPassword([]byte("sprintdesk-no-such-account"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &IdentityService{
		users:      users,
		verifier:   verifier,
		codes:      codes,
		demo:       demo,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Resolve dispatches on the proof type.
func (s *IdentityService) Resolve(ctx context.Context, proof CredentialProof) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Resolve")

	var (
		user *model.User
		err  error
	)
	switch p := proof.(type) {
	case PasswordProof:
		user, err = s.resolvePassword(ctx, p)
	case IdentityTokenProof:
		user, err = s.resolveIdentityToken(ctx, p)
	case OTPProof:
		user, err = s.resolveOTP(ctx, p)
	case DemoProof:
		user, err = s.resolveDemo(ctx, p)
	default:
		return nil, apperrors.ErrInvalidInput
	}

	if err != nil {
		logger.LogAuth(0, string(proof.Strategy()), false, zap.String("client_ip", ctxutil.GetClientIP(ctx)), zap.Error(err))
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		logger.WarnWithContext(ctx, "Failed to record last login").Uint("user_id", user.ID).Err(err).Log()
	}
	logger.LogAuth(user.ID, string(proof.Strategy()), true, zap.String("client_ip", ctxutil.GetClientIP(ctx)))
	return user, nil
}

// Register creates a password account.
func (s *IdentityService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Register")

	email = NormalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailExists
	} else if !repository.IsNotFound(err) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		PasswordSet:  true,
		Strategy:     model.StrategyPassword,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperrors.ErrEmailExists
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		logger.WarnWithContext(ctx, "Failed to record last login").Uint("user_id", user.ID).Err(err).Log()
	}
	return user, nil
}

func (s *IdentityService) resolvePassword(ctx context.Context, p PasswordProof) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(p.Email))
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(p.Password))
		return nil, apperrors.ErrInvalidCredentials
	}

	// placeholder hashes of oauth and otp accounts are never a password
	if !user.PasswordSet {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(p.Password))
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(p.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

func (s *IdentityService) resolveIdentityToken(ctx context.Context, p IdentityTokenProof) (*model.User, error) {
	if s.verifier == nil || p.Token == "" {
		return nil, apperrors.ErrIdentityTokenInvalid
	}

	identity, err := s.verifier.Verify(ctx, p.Token)
	if err != nil {
		logger.WarnWithContext(ctx, "Identity token rejected").Err(err).Log()
		return nil, apperrors.WrapError(apperrors.ErrIdentityTokenInvalid, err)
	}
	if identity.Subject == "" || identity.Email == "" || !identity.EmailVerified {
		return nil, apperrors.ErrIdentityTokenInvalid
	}

	user, err := s.linkExternalIdentity(ctx, identity)
	if lostLinkRace(err) {
		// the winner's row decides
		user, err = s.linkExternalIdentity(ctx, identity)
	}
	if lostLinkRace(err) {
		return nil, apperrors.ErrIdentityConflict
	}
	return user, err
}

func (s *IdentityService) linkExternalIdentity(ctx context.Context, identity *ExternalIdentity) (*model.User, error) {
	user, err := s.users.GetByGoogleID(ctx, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !repository.IsNotFound(err) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	email := NormalizeEmail(identity.Email)
	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.GoogleID != nil && *user.GoogleID != identity.Subject {
			logger.WarnWithContext(ctx, "External identity conflicts with linked account").
				Uint("target_user_id", user.ID).
				Log()
			return nil, apperrors.ErrIdentityConflict
		}

		strategy := upgradedStrategy(user.Strategy, model.StrategyOAuth)
		if err := s.users.LinkGoogleID(ctx, user.ID, identity.Subject, strategy); err != nil {
			if lostLinkRace(err) {
				return nil, err
			}
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		subject := identity.Subject
		user.GoogleID = &subject
		if strategy != "" {
			user.Strategy = strategy
		}
		logger.InfoWithContext(ctx, "External identity linked").Uint("target_user_id", user.ID).Log()
		return user, nil

	case repository.IsNotFound(err):
		placeholder, err := s.placeholderHash()
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		subject := identity.Subject
		user = &model.User{
			Email:        email,
			Name:         displayName(identity.Name, email),
			PasswordHash: placeholder,
			Strategy:     model.StrategyOAuth,
			GoogleID:     &subject,
			AvatarURL:    identity.Picture,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if repository.IsDuplicate(err) {
				return nil, err
			}
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		return user, nil

	default:
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
}

func (s *IdentityService) resolveOTP(ctx context.Context, p OTPProof) (*model.User, error) {
	if s.codes == nil {
		return nil, apperrors.ErrChallengeNotFound
	}
	email := NormalizeEmail(p.Email)
	if err := s.codes.Verify(ctx, email, p.Code); err != nil {
		return nil, err
	}

	user, err := s.resolveByEmail(ctx, email, model.StrategyOTP)
	if repository.IsDuplicate(err) {
		user, err = s.resolveByEmail(ctx, email, model.StrategyOTP)
	}
	if err != nil {
		if apperrors.IsDomainError(err) {
			return nil, err
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return user, nil
}

// resolveByEmail finds or creates the account for a verified email and
// upgrades its strategy tag when strategy ranks higher.
func (s *IdentityService) resolveByEmail(ctx context.Context, email string, strategy model.Strategy) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if next := upgradedStrategy(user.Strategy, strategy); next != "" {
			if err := s.users.UpdateStrategy(ctx, user.ID, next); err != nil {
				return nil, apperrors.WrapError(apperrors.ErrInternal, err)
			}
			user.Strategy = next
		}
		return user, nil
	}
	if !repository.IsNotFound(err) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	placeholder, err := s.placeholderHash()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	user = &model.User{
		Email:        email,
		Name:         displayName("", email),
		PasswordHash: placeholder,
		Strategy:     strategy,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *IdentityService) resolveDemo(ctx context.Context, p DemoProof) (*model.User, error) {
	if !s.demo.Enabled {
		return nil, apperrors.ErrDemoDisabled
	}

	var email string
	switch p.Account {
	case DemoAccountOwner:
		email = s.demo.OwnerEmail
	case DemoAccountMember:
		email = s.demo.MemberEmail
	default:
		return nil, apperrors.ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return user, nil
}

// placeholderHash hashes a random secret nobody knows, so the account
// cannot authenticate by password even if PasswordSet were ignored.
func (s *IdentityService) placeholderHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func lostLinkRace(err error) bool {
	return err != nil && (repository.IsDuplicate(err) || errors.Is(err, repository.ErrConflict))
}

// upgradedStrategy returns next when it outranks current, else "".
func upgradedStrategy(current, next model.Strategy) model.Strategy {
	if current == model.StrategyDemo || next.Rank() <= current.Rank() {
		return ""
	}
	return next
}

func displayName(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
