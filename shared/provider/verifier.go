package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidToken means no configured verifier accepted the token.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrVerifierUnavailable means verification could not complete because the
	// token issuer was unreachable or timed out.
	ErrVerifierUnavailable = errors.New("identity token verifier unavailable")
)

// Sign-in provider identifiers as reported by the token issuer.
const (
	SignInGoogle   = "google.com"
	SignInApple    = "apple.com"
	SignInFacebook = "facebook.com"
)

// IdentityClaim is the normalized identity extracted from a verified token.
type IdentityClaim struct {
	UID            string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
	SignInProvider string
}

// TokenVerifier verifies an opaque identity token.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*IdentityClaim, error)
}

// ChainVerifier tries each verifier in order and returns the first successful claim.
type ChainVerifier struct {
	logger    *zerolog.Logger
	verifiers []TokenVerifier
	timeout   time.Duration
}

// NewChainVerifier creates a ChainVerifier. Each attempt is bounded by timeout when positive.
func NewChainVerifier(logger *zerolog.Logger, timeout time.Duration, verifiers ...TokenVerifier) *ChainVerifier {
	return &ChainVerifier{
		logger:    logger,
		verifiers: verifiers,
		timeout:   timeout,
	}
}

func (c *ChainVerifier) VerifyToken(ctx context.Context, token string) (*IdentityClaim, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	unavailable := false
	for i, v := range c.verifiers {
		claim, err := c.attempt(ctx, v, token)
		if err == nil {
			return claim, nil
		}

		if isTransportError(err) {
			unavailable = true
		}
		c.logger.Debug().Err(err).Int("verifier", i).Msg("identity token rejected, trying next verifier")
	}

	if unavailable {
		return nil, ErrVerifierUnavailable
	}

	return nil, ErrInvalidToken
}

func (c *ChainVerifier) attempt(ctx context.Context, v TokenVerifier, token string) (*IdentityClaim, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	claim, err := v.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if claim == nil || claim.UID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claim, nil
}

func isTransportError(err error) bool {
	if errors.Is(err, ErrVerifierUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
