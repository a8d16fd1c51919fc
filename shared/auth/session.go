package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a session token.
const DefaultSessionTTL = 30 * 24 * time.Hour

var (
	ErrInvalidSession = errors.New("invalid or expired session token")
	ErrEmptySecret    = errors.New("session secret must not be empty")
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and verifies stateless session tokens bound to a user ID.
type SessionIssuer struct {
	jwtAuth JWTAuthenticator
	secret  string
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionIssuer creates a SessionIssuer. A zero ttl falls back to DefaultSessionTTL.
func NewSessionIssuer(jwtAuth JWTAuthenticator, secret string, ttl time.Duration) (*SessionIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionIssuer{
		jwtAuth: jwtAuth,
		secret:  secret,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Issue returns a signed session token for userID and its expiry.
func (s *SessionIssuer) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtAuth.Issuer(),
			Audience:  jwt.ClaimStrings{s.jwtAuth.Audience()},
		},
	}

	token, err := s.jwtAuth.GenerateToken(claims, s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return token, expiresAt, nil
}

// Verify checks the token signature and expiry and returns the embedded user ID.
func (s *SessionIssuer) Verify(token string) (string, error) {
	claims := &SessionClaims{}
	if _, err := s.jwtAuth.ValidateTokenWithClaims(token, s.secret, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if claims.UserID == "" {
		return "", ErrInvalidSession
	}

	return claims.UserID, nil
}
