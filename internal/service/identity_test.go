package service

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	"github.com/Payphone-Digital/sprintdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type identityFixture struct {
	db       *gorm.DB
	users    *repository.UserRepository
	identity *IdentityService
	mailer   *fakeMailer
	otp      *OTPService
}

func newIdentityFixture(t *testing.T, verifier IdentityVerifier, demo DemoAccounts) *identityFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db)
	mailer := &fakeMailer{}
	otp := NewOTPService(repository.NewOtpRepository(db), mailer, OTPConfig{
		TTL:         10 * time.Minute,
		Length:      6,
		MaxAttempts: 5,
		BcryptCost:  bcrypt.MinCost,
	})

	identity, err := NewIdentityService(users, verifier, otp, demo, bcrypt.MinCost)
	require.NoError(t, err)

	return &identityFixture{db: db, users: users, identity: identity, mailer: mailer, otp: otp}
}

func TestPasswordLogin(t *testing.T) {
	f := newIdentityFixture(t, nil, DemoAccounts{})
	ctx := context.Background()

	accounts := []struct {
		email    string
		password string
	}{
		{"ada@example.com", "correct horse"},
		{"Grace@Example.com", "battery staple"},
		{"linus@example.com", "p@ssw0rd!!"},
	}
	for _, a := range accounts {
		_, err := f.identity.Register(ctx, a.email, a.password, "Someone")
		require.NoError(t, err)
	}

	for _, a := range accounts {
		t.Run(a.email, func(t *testing.T) {
			user, err := f.identity.Resolve(ctx, PasswordProof{Email: a.email, Password: a.password})
			require.NoError(t, err)
			assert.Equal(t, NormalizeEmail(a.email), user.Email)

			for _, wrong := range []string{"", a.password + "x", "correct", "PASSWORD"} {
				_, err := f.identity.Resolve(ctx, PasswordProof{Email: a.email, Password: wrong})
				assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
			}
		})
	}

	_, err := f.identity.Resolve(ctx, PasswordProof{Email: "ghost@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newIdentityFixture(t, nil, DemoAccounts{})
	ctx := context.Background()

	_, err := f.identity.Register(ctx, "ada@example.com", "password1", "Ada")
	require.NoError(t, err)

	_, err = f.identity.Register(ctx, "ADA@example.com", "password2", "Other Ada")
	assert.ErrorIs(t, err, apperrors.ErrEmailExists)
}

func TestIdentityTokenCreatesAndReusesAccount(t *testing.T) {
	verifier := fakeVerifier{
		"tok-1": {Subject: "g-1", Email: "ada@example.com", EmailVerified: true, Name: "Ada L"},
		"tok-2": {Subject: "g-1", Email: "ada@example.com", EmailVerified: true},
	}
	f := newIdentityFixture(t, verifier, DemoAccounts{})
	ctx := context.Background()

	first, err := f.identity.Resolve(ctx, IdentityTokenProof{Token: "tok-1"})
	require.NoError(t, err)
	assert.Equal(t, model.StrategyOAuth, first.Strategy)
	assert.False(t, first.PasswordSet)
	assert.Equal(t, "Ada L", first.Name)

	second, err := f.identity.Resolve(ctx, IdentityTokenProof{Token: "tok-2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// the placeholder hash never works as a password
	_, err = f.identity.Resolve(ctx, PasswordProof{Email: "ada@example.com", Password: ""})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestIdentityTokenLinksExistingPasswordAccount(t *testing.T) {
	verifier := fakeVerifier{
		"tok": {Subject: "g-7", Email: "ada@example.com", EmailVerified: true},
	}
	f := newIdentityFixture(t, verifier, DemoAccounts{})
	ctx := context.Background()

	registered, err := f.identity.Register(ctx, "ada@example.com", "password1", "Ada")
	require.NoError(t, err)

	linked, err := f.identity.Resolve(ctx, IdentityTokenProof{Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, linked.ID)
	require.NotNil(t, linked.GoogleID)
	assert.Equal(t, "g-7", *linked.GoogleID)
	assert.Equal(t, model.StrategyOAuth, linked.Strategy)

	// password login keeps working after linking
	_, err = f.identity.Resolve(ctx, PasswordProof{Email: "ada@example.com", Password: "password1"})
	assert.NoError(t, err)
}

func TestIdentityTokenConflict(t *testing.T) {
	verifier := fakeVerifier{
		"first":  {Subject: "g-1", Email: "ada@example.com", EmailVerified: true},
		"second": {Subject: "g-2", Email: "ada@example.com", EmailVerified: true},
	}
	f := newIdentityFixture(t, verifier, DemoAccounts{})
	ctx := context.Background()

	_, err := f.identity.Resolve(ctx, IdentityTokenProof{Token: "first"})
	require.NoError(t, err)

	_, err = f.identity.Resolve(ctx, IdentityTokenProof{Token: "second"})
	assert.ErrorIs(t, err, apperrors.ErrIdentityConflict)
}

func TestExternalIdentityCannotSpanTwoEmails(t *testing.T) {
	f := newIdentityFixture(t, nil, DemoAccounts{})
	ctx := context.Background()

	ada, err := f.identity.Register(ctx, "ada@example.com", "password1", "Ada")
	require.NoError(t, err)
	bob, err := f.identity.Register(ctx, "bob@example.com", "password2", "Bob")
	require.NoError(t, err)

	require.NoError(t, f.users.LinkGoogleID(ctx, ada.ID, "g-shared", model.StrategyOAuth))

	err = f.users.LinkGoogleID(ctx, bob.ID, "g-shared", model.StrategyOAuth)
	require.Error(t, err)
	assert.True(t, lostLinkRace(err))

	f.identity.verifier = fakeVerifier{
		"for-bob": {Subject: "g-other", Email: "bob@example.com", EmailVerified: true},
		"for-ada": {Subject: "g-next", Email: "ada@example.com", EmailVerified: true},
	}
	_, err = f.identity.Resolve(ctx, IdentityTokenProof{Token: "for-bob"})
	require.NoError(t, err)

	_, err = f.identity.Resolve(ctx, IdentityTokenProof{Token: "for-ada"})
	assert.ErrorIs(t, err, apperrors.ErrIdentityConflict)
}

func TestIdentityTokenRejected(t *testing.T) {
	verifier := fakeVerifier{
		"unverified": {Subject: "g-1", Email: "ada@example.com", EmailVerified: false},
	}
	f := newIdentityFixture(t, verifier, DemoAccounts{})
	ctx := context.Background()

	_, err := f.identity.Resolve(ctx, IdentityTokenProof{Token: "unverified"})
	assert.ErrorIs(t, err, apperrors.ErrIdentityTokenInvalid)

	_, err = f.identity.Resolve(ctx, IdentityTokenProof{Token: "forged"})
	assert.ErrorIs(t, err, apperrors.ErrIdentityTokenInvalid)

	_, err = f.identity.Resolve(ctx, IdentityTokenProof{})
	assert.ErrorIs(t, err, apperrors.ErrIdentityTokenInvalid)
}

func TestOTPProofCreatesThenReusesAccount(t *testing.T) {
	f := newIdentityFixture(t, nil, DemoAccounts{})
	ctx := context.Background()

	require.NoError(t, f.otp.Request(ctx, "new.person@example.com"))
	user, err := f.identity.Resolve(ctx, OTPProof{Email: "New.Person@example.com", Code: f.mailer.lastCode()})
	require.NoError(t, err)
	assert.Equal(t, model.StrategyOTP, user.Strategy)
	assert.Equal(t, "new.person", user.Name)
	assert.False(t, user.PasswordSet)

	require.NoError(t, f.otp.Request(ctx, "new.person@example.com"))
	again, err := f.identity.Resolve(ctx, OTPProof{Email: "new.person@example.com", Code: f.mailer.lastCode()})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestOTPProofStrategyPrecedence(t *testing.T) {
	f := newIdentityFixture(t, nil, DemoAccounts{})
	ctx := context.Background()

	registered, err := f.identity.Register(ctx, "ada@example.com", "password1", "Ada")
	require.NoError(t, err)

	require.NoError(t, f.otp.Request(ctx, "ada@example.com"))
	user, err := f.identity.Resolve(ctx, OTPProof{Email: "ada@example.com", Code: f.mailer.lastCode()})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, model.StrategyOTP, user.Strategy)

	require.NoError(t, f.users.UpdateStrategy(ctx, user.ID, model.StrategyOAuth))
	require.NoError(t, f.otp.Request(ctx, "ada@example.com"))
	user, err = f.identity.Resolve(ctx, OTPProof{Email: "ada@example.com", Code: f.mailer.lastCode()})
	require.NoError(t, err)
	assert.Equal(t, model.StrategyOAuth, user.Strategy, "a stronger tag is kept")
}

func TestOTPProofWrongCode(t *testing.T) {
	f := newIdentityFixture(t, nil, DemoAccounts{})
	ctx := context.Background()

	require.NoError(t, f.otp.Request(ctx, "ada@example.com"))
	_, err := f.identity.Resolve(ctx, OTPProof{Email: "ada@example.com", Code: wrongCode(f.mailer.lastCode())})
	assert.ErrorIs(t, err, apperrors.ErrCodeMismatch)

	_, err = f.users.GetByEmail(ctx, "ada@example.com")
	assert.True(t, repository.IsNotFound(err), "no account without a verified code")
}

func TestDemoProof(t *testing.T) {
	demo := DemoAccounts{Enabled: true, OwnerEmail: "owner@demo.test", MemberEmail: "member@demo.test"}
	f := newIdentityFixture(t, nil, demo)
	ctx := context.Background()

	_, err := f.identity.Resolve(ctx, DemoProof{Account: DemoAccountOwner})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	owner := &model.User{Email: "owner@demo.test", Name: "Demo Owner", PasswordHash: "x", PasswordSet: true, Strategy: model.StrategyDemo}
	require.NoError(t, f.users.Create(ctx, owner))

	user, err := f.identity.Resolve(ctx, DemoProof{Account: DemoAccountOwner})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, user.ID)

	_, err = f.identity.Resolve(ctx, DemoProof{Account: "admin"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	f.identity.demo.Enabled = false
	_, err = f.identity.Resolve(ctx, DemoProof{Account: DemoAccountOwner})
	assert.ErrorIs(t, err, apperrors.ErrDemoDisabled)
}

func TestUpgradedStrategy(t *testing.T) {
	tests := []struct {
		current model.Strategy
		next    model.Strategy
		want    model.Strategy
	}{
		{model.StrategyPassword, model.StrategyOTP, model.StrategyOTP},
		{model.StrategyPassword, model.StrategyOAuth, model.StrategyOAuth},
		{model.StrategyOTP, model.StrategyOAuth, model.StrategyOAuth},
		{model.StrategyOAuth, model.StrategyOTP, ""},
		{model.StrategyOTP, model.StrategyOTP, ""},
		{model.StrategyDemo, model.StrategyOAuth, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, upgradedStrategy(tt.current, tt.next), "%s -> %s", tt.current, tt.next)
	}
}
