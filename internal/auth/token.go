package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"session-auth/internal/domain"
)

// TokenClaims is the identity carried by an access token.
type TokenClaims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and decodes HS256 signed access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service signing with secret. Tokens expire ttl after issuance.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue mints a token for subjectID with a fresh jti.
func (s *TokenService) Issue(subjectID string) (string, TokenClaims, error) {
	if subjectID == "" {
		return "", TokenClaims{}, errors.New("token subject is required")
	}

	now := s.now().UTC().Truncate(time.Second)
	claims := TokenClaims{
		Subject:   subjectID,
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.Subject,
		ID:        claims.ID,
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", TokenClaims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Decode verifies the signature and expiry of token and returns its claims.
// Every failure is reported as domain.ErrInvalidToken.
func (s *TokenService) Decode(token string) (TokenClaims, error) {
	var registered jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &registered, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return TokenClaims{}, domain.ErrInvalidToken
	}
	if registered.Subject == "" || registered.ID == "" {
		return TokenClaims{}, fmt.Errorf("%w: missing sub or jti claim", domain.ErrInvalidToken)
	}

	claims := TokenClaims{
		Subject:   registered.Subject,
		ID:        registered.ID,
		ExpiresAt: registered.ExpiresAt.Time,
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, nil
}
