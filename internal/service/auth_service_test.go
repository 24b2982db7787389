package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"session-auth/internal/auth"
	"session-auth/internal/domain"
	"session-auth/internal/metrics"
	"session-auth/internal/repository"
	"session-auth/internal/repository/memory"
)

type fixture struct {
	svc      AuthService
	users    repository.UserRepository
	tokens   *auth.TokenService
	registry *auth.MemoryRevocationRegistry
	metrics  *metrics.Metrics
	logs     *logtest.Hook
}

func newFixture(t *testing.T, users repository.UserRepository) *fixture {
	t.Helper()

	if users == nil {
		users = memory.NewUserRepository()
	}
	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	registry := auth.NewMemoryRevocationRegistry()
	m := metrics.New(prometheus.NewRegistry())
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	svc, err := NewAuthService(users, auth.NewBcryptHasher(bcrypt.MinCost), tokens, registry, logger, m)
	require.NoError(t, err)

	return &fixture{svc: svc, users: users, tokens: tokens, registry: registry, metrics: m, logs: hook}
}

func janeInput() RegisterInput {
	return RegisterInput{
		FullName: "Jane Doe",
		Email:    "jane@x.com",
		Username: "janed",
		Password: "Secur3Pass",
	}
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	profile, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.FullName)
	assert.Equal(t, "jane@x.com", profile.Email)
	assert.Equal(t, "janed", profile.Username)
	assert.False(t, profile.IsConfirmed)

	stored, err := f.users.GetByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Secur3Pass", stored.PasswordHash)
	assert.True(t, auth.NewBcryptHasher(bcrypt.MinCost).Verify("Secur3Pass", stored.PasswordHash))
	assert.False(t, auth.NewBcryptHasher(bcrypt.MinCost).Verify("Secur3Pas", stored.PasswordHash))

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Registrations.WithLabelValues(metrics.ResultSuccess)))
	require.NotNil(t, f.logs.LastEntry())
	assert.Equal(t, "user registered", f.logs.LastEntry().Message)
}

func TestRegister_ShapeErrorsAreAggregated(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Jo",
		Email:    "not-an-email",
		Username: "jd",
		Password: "weak",
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, fe := range verr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"full_name", "email", "username"}, fields)
}

func TestRegister_PasswordPolicy(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{password: "short1A", want: auth.ErrPasswordTooShort},
		{password: "weakpass", want: auth.ErrPasswordMissingUppercase},
		{password: "NOLOWER123", want: auth.ErrPasswordMissingLowercase},
		{password: "NoDigitsHere", want: auth.ErrPasswordMissingDigit},
		{password: "Aa1" + string(make([]byte, 80)), want: auth.ErrPasswordTooLong},
	}

	f := newFixture(t, nil)
	for _, tt := range tests {
		in := janeInput()
		in.Password = tt.password

		_, err := f.svc.Register(context.Background(), in)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "password", verr.Fields[0].Field)
		assert.Equal(t, tt.want.Error(), verr.Fields[0].Message)
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	again := janeInput()
	again.Username = "janedoe2"
	_, err = f.svc.Register(ctx, again)
	assert.ErrorIs(t, err, domain.ErrUserExists)

	again = janeInput()
	again.Email = "other@x.com"
	_, err = f.svc.Register(ctx, again)
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

// racingStore reports no existing user but refuses the insert, as a store does
// when a concurrent registration wins.
type racingStore struct {
	repository.UserRepository
}

func (racingStore) ExistsByEmailOrUsername(context.Context, string, string) (bool, error) {
	return false, nil
}

func (racingStore) Create(context.Context, *domain.User) (int64, error) {
	return 0, domain.ErrUserExists
}

func TestRegister_InsertConflictIsConflict(t *testing.T) {
	f := newFixture(t, racingStore{memory.NewUserRepository()})

	_, err := f.svc.Register(context.Background(), janeInput())
	assert.ErrorIs(t, err, domain.ErrUserExists)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestLogin_IssuesTokenForUser(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	profile, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	for _, identifier := range []string{"janed", "jane@x.com"} {
		tok, err := f.svc.Login(ctx, LoginInput{Identifier: identifier, Password: "Secur3Pass"})
		require.NoError(t, err)

		claims, err := f.tokens.Decode(tok.Token)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatInt(profile.ID, 10), claims.Subject)
		assert.True(t, tok.ExpiresAt.After(time.Now()))
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, LoginInput{Identifier: "janed", Password: "Wr0ngPass"})
	_, unknownUser := f.svc.Login(ctx, LoginInput{Identifier: "nobody", Password: "Secur3Pass"})

	assert.Equal(t, domain.ErrInvalidCredentials, wrongPassword)
	assert.Equal(t, wrongPassword, unknownUser)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Logins.WithLabelValues(metrics.ResultDenied)))
}

func TestLogin_IdentifierIsCaseSensitive(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Identifier: "JaneD", Password: "Secur3Pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_RequiresFields(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Login(context.Background(), LoginInput{})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

type failingStore struct {
	repository.UserRepository
}

var errConnection = errors.New("connection refused")

func (failingStore) GetByIdentifier(context.Context, string) (*domain.User, error) {
	return nil, errConnection
}

func (failingStore) GetByID(context.Context, int64) (*domain.User, error) {
	return nil, errConnection
}

func (failingStore) ExistsByEmailOrUsername(context.Context, string, string) (bool, error) {
	return false, errConnection
}

func TestStoreFailuresAreNotMisses(t *testing.T) {
	f := newFixture(t, failingStore{memory.NewUserRepository()})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, janeInput())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errConnection)

	_, err = f.svc.Login(ctx, LoginInput{Identifier: "janed", Password: "Secur3Pass"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)

	token, _, err := f.tokens.Issue("1")
	require.NoError(t, err)
	_, err = f.svc.Profile(ctx, token)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
}

var errEntropy = errors.New("entropy source exhausted")

// brokenHasher verifies normally but cannot produce new hashes once broken is set.
type brokenHasher struct {
	auth.PasswordHasher
	broken bool
}

func (h *brokenHasher) Hash(plaintext string) (string, error) {
	if h.broken {
		return "", errEntropy
	}
	return h.PasswordHasher.Hash(plaintext)
}

type brokenIssuer struct {
	*auth.TokenService
}

func (brokenIssuer) Issue(string) (string, auth.TokenClaims, error) {
	return "", auth.TokenClaims{}, errEntropy
}

func TestPrimitiveFailuresAreInternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)

	hasher := &brokenHasher{PasswordHasher: auth.NewBcryptHasher(bcrypt.MinCost)}
	logger, _ := logtest.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())
	svc, err := NewAuthService(f.users, hasher, brokenIssuer{f.tokens}, f.registry, logger, m)
	require.NoError(t, err)
	hasher.broken = true

	in := janeInput()
	in.Email, in.Username = "john@x.com", "johnd"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.ErrorIs(t, err, errEntropy)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Registrations.WithLabelValues(metrics.ResultInternal)))

	_, err = svc.Login(ctx, LoginInput{Identifier: "janed", Password: "Secur3Pass"})
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Logins.WithLabelValues(metrics.ResultInternal)))
}

func TestProfile(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)
	tok, err := f.svc.Login(ctx, LoginInput{Identifier: "janed", Password: "Secur3Pass"})
	require.NoError(t, err)

	profile, err := f.svc.Profile(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, registered, profile)
}

func TestProfile_InvalidTokens(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Profile(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	token, _, err := f.tokens.Issue("not-a-number")
	require.NoError(t, err)
	_, err = f.svc.Profile(ctx, token)
	assert.ErrorIs(t, err, domain.ErrMalformedSubject)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestProfile_DeletedUserIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)
	tok, err := f.svc.Login(ctx, LoginInput{Identifier: "janed", Password: "Secur3Pass"})
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, registered.ID))

	_, err = f.svc.Profile(ctx, tok.Token)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NotErrorIs(t, err, domain.ErrInvalidToken)
}

func TestLogout_RevokesToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, janeInput())
	require.NoError(t, err)
	tok, err := f.svc.Login(ctx, LoginInput{Identifier: "janed", Password: "Secur3Pass"})
	require.NoError(t, err)
	other, err := f.svc.Login(ctx, LoginInput{Identifier: "janed", Password: "Secur3Pass"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, tok.Token))

	// still a well-formed, unexpired token
	_, err = f.tokens.Decode(tok.Token)
	require.NoError(t, err)

	_, err = f.svc.Profile(ctx, tok.Token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
	assert.ErrorIs(t, f.svc.Logout(ctx, tok.Token), domain.ErrTokenRevoked)

	// other sessions of the same user are unaffected
	_, err = f.svc.Profile(ctx, other.Token)
	assert.NoError(t, err)

	assert.Equal(t, 1, f.registry.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Logouts))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.TokenRejections.WithLabelValues(metrics.ReasonRevoked)))
}

func TestLogout_InvalidToken(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.Logout(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Equal(t, 0, f.registry.Len())
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{FullName: "Jane Doe", Email: "jane@x.com", Username: "janed", Password: "Secur3Pass"})
	require.NoError(t, err)

	tok, err := f.svc.Login(ctx, LoginInput{Identifier: "janed", Password: "Secur3Pass"})
	require.NoError(t, err)

	profile, err := f.svc.Profile(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.FullName)
	assert.Equal(t, "jane@x.com", profile.Email)
	assert.Equal(t, "janed", profile.Username)
	assert.False(t, profile.IsConfirmed)

	require.NoError(t, f.svc.Logout(ctx, tok.Token))

	_, err = f.svc.Profile(ctx, tok.Token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}
