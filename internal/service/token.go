package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "sprintdesk"

// RefreshTokenStore persists refresh token hashes.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	Redeem(ctx context.Context, hash string, now time.Time, next *model.RefreshToken) error
	Revoke(ctx context.Context, hash string, now time.Time) (int64, error)
}

type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Session is the result of a successful authentication or rotation. The
// raw refresh token leaves the process only through the cookie.
type Session struct {
	UserID           uint
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService issues stateless access tokens and manages the rotating
// refresh token chain.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshTokenStore
	now        func() time.Time
}

func NewTokenService(cfg TokenConfig, store RefreshTokenStore) *TokenService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = constants.AccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = constants.RefreshTokenTTL
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// IssueSession signs an access token for userID and stores the hash of a
// fresh refresh token.
func (s *TokenService) IssueSession(ctx context.Context, userID uint) (*Session, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "IssueSession")

	now := s.now()
	raw, hash, err := newRefreshSecret()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	record := &model.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	access, accessExp, err := s.signAccess(userID, now)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.DebugWithContext(ctx, "Session issued").Uint("session_user_id", userID).Log()

	return &Session{
		UserID:           userID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     raw,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

// VerifyAccess checks signature and expiry without touching storage and
// returns the user id from the subject claim.
func (s *TokenService) VerifyAccess(tokenString string) (uint, error) {
	if tokenString == "" {
		return 0, apperrors.ErrUnauthenticated
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return 0, apperrors.WrapError(apperrors.ErrUnauthenticated, err)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, apperrors.ErrUnauthenticated
	}
	return uint(userID), nil
}

// Rotate redeems a refresh token exactly once and issues the successor
// session. Unknown, expired, revoked and concurrently redeemed tokens all
// fail with ErrRefreshInvalid.
func (s *TokenService) Rotate(ctx context.Context, raw string) (*Session, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Rotate")

	if raw == "" {
		return nil, apperrors.ErrRefreshInvalid
	}

	now := s.now()
	nextRaw, nextHash, err := newRefreshSecret()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	next := &model.RefreshToken{
		TokenHash: nextHash,
		ExpiresAt: now.Add(s.refreshTTL),
	}

	if err := s.store.Redeem(ctx, HashRefreshToken(raw), now, next); err != nil {
		if repository.IsNotFound(err) || errors.Is(err, repository.ErrConflict) {
			// a revoked token showing up again is the replay signal
			logger.WarnWithContext(ctx, "Refresh token rejected").Bool("known", !repository.IsNotFound(err)).Log()
			return nil, apperrors.ErrRefreshInvalid
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	access, accessExp, err := s.signAccess(next.UserID, now)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &Session{
		UserID:           next.UserID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     nextRaw,
		RefreshExpiresAt: next.ExpiresAt,
	}, nil
}

// Revoke ends the session behind raw. Unknown and already revoked tokens
// are not an error.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "Revoke")

	if raw == "" {
		return nil
	}
	if _, err := s.store.Revoke(ctx, HashRefreshToken(raw), s.now()); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

func (s *TokenService) signAccess(userID uint, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// HashRefreshToken returns the stored form of a refresh token secret.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newRefreshSecret() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashRefreshToken(raw), nil
}
