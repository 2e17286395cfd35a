package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers one-time codes.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, ttl time.Duration) error
}

type OTPConfig struct {
	TTL         time.Duration
	Length      int
	MaxAttempts int
	BcryptCost  int
}

// OTPService keeps at most one live challenge per email.
type OTPService struct {
	repo   *repository.OtpRepository
	mailer Mailer
	cfg    OTPConfig
	now    func() time.Time
}

func NewOTPService(repo *repository.OtpRepository, mailer Mailer, cfg OTPConfig) *OTPService {
	if cfg.BcryptCost < bcrypt.MinCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Length <= 0 {
		cfg.Length = constants.OTPLength
	}
	if cfg.TTL <= 0 {
		cfg.TTL = constants.OTPTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.OTPMaxAttempts
	}
	return &OTPService{
		repo:   repo,
		mailer: mailer,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *OTPService) WithClock(now func() time.Time) *OTPService {
	s.now = now
	return s
}

// Request replaces any challenge for email with a fresh code and sends it.
// When delivery fails the challenge stays stored and ErrDeliveryUnavailable
// is returned so the caller can request again.
func (s *OTPService) Request(ctx context.Context, email string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "RequestOTP")

	email = NormalizeEmail(email)
	code, err := generateNumericCode(s.cfg.Length)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	now := s.now()
	challenge := &model.OtpChallenge{
		Email:      email,
		CodeHash:   string(hash),
		ExpiresAt:  now.Add(s.cfg.TTL),
		Attempts:   0,
		LastSentAt: now,
	}
	if err := s.repo.Upsert(ctx, challenge); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.mailer.SendOTP(ctx, email, code, s.cfg.TTL); err != nil {
		logger.WarnWithContext(ctx, "One-time code delivery failed").
			String("email", email).
			Err(err).
			Log()
		return apperrors.WrapError(apperrors.ErrDeliveryUnavailable, err)
	}

	logger.InfoWithContext(ctx, "One-time code sent").String("email", email).Log()
	return nil
}

// Verify consumes the challenge for email when code matches. An attempt is
// spent before the code is compared, so at most MaxAttempts codes are ever
// checked against one challenge.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "VerifyOTP")

	email = NormalizeEmail(email)
	challenge, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.ErrChallengeNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !s.now().Before(challenge.ExpiresAt) {
		s.discard(ctx, challenge)
		return apperrors.ErrChallengeExpired
	}

	reserved, err := s.repo.ReserveAttempt(ctx, challenge.ID, challenge.CodeHash, s.cfg.MaxAttempts)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if !reserved {
		s.discard(ctx, challenge)
		return apperrors.ErrTooManyAttempts
	}

	if err := bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(strings.TrimSpace(code))); err != nil {
		logger.WarnWithContext(ctx, "One-time code mismatch").
			String("email", email).
			Log()
		return apperrors.ErrCodeMismatch
	}

	if err := s.repo.Delete(ctx, challenge.ID, challenge.CodeHash); err != nil {
		// consumed or replaced by a concurrent request
		if repository.IsNotFound(err) {
			return apperrors.ErrChallengeNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

func (s *OTPService) discard(ctx context.Context, challenge *model.OtpChallenge) {
	if err := s.repo.Delete(ctx, challenge.ID, challenge.CodeHash); err != nil && !repository.IsNotFound(err) {
		logger.WarnWithContext(ctx, "Failed to discard challenge").Err(err).Log()
	}
}

func generateNumericCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
