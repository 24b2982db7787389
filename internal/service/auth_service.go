package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"session-auth/internal/auth"
	"session-auth/internal/domain"
	"session-auth/internal/metrics"
	"session-auth/internal/repository"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
}

// LoginInput carries login credentials. Identifier is an email or a username.
type LoginInput struct {
	Identifier string
	Password   string
}

// AccessToken is a freshly issued bearer token.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Identity is the caller behind a verified, unrevoked token.
type Identity struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService issues and decodes access tokens.
type TokenService interface {
	Issue(subjectID string) (string, auth.TokenClaims, error)
	Decode(token string) (auth.TokenClaims, error)
}

// AuthService implements registration, login, profile lookup and logout.
//
// Errors returned are domain.ValidationError, domain.ErrUserExists,
// domain.ErrInvalidCredentials, domain.ErrInvalidToken, domain.ErrTokenRevoked,
// domain.ErrUserNotFound, domain.ErrStoreUnavailable or domain.ErrInternal,
// possibly wrapped.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Profile, error)
	Login(ctx context.Context, in LoginInput) (*AccessToken, error)
	// Authenticate decodes token and rejects it when its jti has been revoked.
	Authenticate(ctx context.Context, token string) (*Identity, error)
	Profile(ctx context.Context, token string) (*domain.Profile, error)
	ProfileOf(ctx context.Context, identity *Identity) (*domain.Profile, error)
	Logout(ctx context.Context, token string) error
	Revoke(ctx context.Context, identity *Identity) error
}

type authService struct {
	users       repository.UserRepository
	hasher      auth.PasswordHasher
	tokens      TokenService
	revocations auth.RevocationRegistry
	logger      logrus.FieldLogger
	metrics     *metrics.Metrics

	// verified against when the identifier is unknown so both failure paths cost the same
	dummyHash string
}

func NewAuthService(
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	tokens TokenService,
	revocations auth.RevocationRegistry,
	logger logrus.FieldLogger,
	m *metrics.Metrics,
) (AuthService, error) {
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &authService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		metrics:     m,
		dummyHash:   dummyHash,
	}, nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.Profile, error) {
	if err := validateRegistration(in); err != nil {
		s.metrics.Registrations.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}
	if err := validateNewPassword(in.Password); err != nil {
		s.metrics.Registrations.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		s.metrics.Registrations.WithLabelValues(metrics.ResultStoreFailed).Inc()
		return nil, storeFailure("check user exists", err)
	}
	if exists {
		s.metrics.Registrations.WithLabelValues(metrics.ResultConflict).Inc()
		return nil, domain.ErrUserExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.metrics.Registrations.WithLabelValues(metrics.ResultInternal).Inc()
		return nil, internalFailure("hash password", err)
	}

	user := &domain.User{
		FullName:     in.FullName,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		IsConfirmed:  false,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		// a concurrent registration can win between the existence check and the insert
		if errors.Is(err, domain.ErrUserExists) {
			s.metrics.Registrations.WithLabelValues(metrics.ResultConflict).Inc()
			return nil, domain.ErrUserExists
		}
		s.metrics.Registrations.WithLabelValues(metrics.ResultStoreFailed).Inc()
		return nil, storeFailure("create user", err)
	}

	s.metrics.Registrations.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user registered")

	profile := user.Profile()
	return &profile, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*AccessToken, error) {
	if err := validateLogin(in); err != nil {
		s.metrics.Logins.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}

	user, err := s.users.GetByIdentifier(ctx, in.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(in.Password, s.dummyHash)
			return nil, s.loginDenied()
		}
		s.metrics.Logins.WithLabelValues(metrics.ResultStoreFailed).Inc()
		return nil, storeFailure("find user", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, s.loginDenied()
	}

	token, claims, err := s.tokens.Issue(strconv.FormatInt(user.ID, 10))
	if err != nil {
		s.metrics.Logins.WithLabelValues(metrics.ResultInternal).Inc()
		return nil, internalFailure("issue token", err)
	}

	s.metrics.Logins.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.WithField("user_id", user.ID).Debug("access token issued")

	return &AccessToken{Token: token, ExpiresAt: claims.ExpiresAt}, nil
}

func (s *authService) loginDenied() error {
	s.metrics.Logins.WithLabelValues(metrics.ResultDenied).Inc()
	s.logger.Info("login failed: invalid credentials")
	return domain.ErrInvalidCredentials
}

func (s *authService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		s.metrics.TokenRejections.WithLabelValues(metrics.ReasonInvalidToken).Inc()
		if !errors.Is(err, domain.ErrInvalidToken) {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
		}
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, storeFailure("check revocation", err)
	}
	if revoked {
		s.metrics.TokenRejections.WithLabelValues(metrics.ReasonRevoked).Inc()
		return nil, domain.ErrTokenRevoked
	}

	return &Identity{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (s *authService) Profile(ctx context.Context, token string) (*domain.Profile, error) {
	identity, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.ProfileOf(ctx, identity)
}

func (s *authService) ProfileOf(ctx context.Context, identity *Identity) (*domain.Profile, error) {
	id, err := strconv.ParseInt(identity.Subject, 10, 64)
	if err != nil {
		return nil, domain.ErrMalformedSubject
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeFailure("get user", err)
	}

	profile := user.Profile()
	return &profile, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	identity, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	return s.Revoke(ctx, identity)
}

func (s *authService) Revoke(ctx context.Context, identity *Identity) error {
	if err := s.revocations.Revoke(ctx, identity.TokenID); err != nil {
		return storeFailure("revoke token", err)
	}

	s.metrics.Logouts.Inc()
	s.logger.WithFields(logrus.Fields{
		"subject": identity.Subject,
		"jti":     identity.TokenID,
	}).Info("token revoked")
	return nil
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}

func internalFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrInternal, op, err)
}
