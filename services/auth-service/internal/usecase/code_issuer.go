package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/repository"
)

const (
	CodeLength          = 6
	DefaultCodeTTL      = 10 * time.Minute
	codeSpaceUpperBound = 1_000_000
)

// CodeIssuer generates, stores and redeems one-time verification codes.
type CodeIssuer struct {
	codeRepo repository.VerificationCodeRepository
	ttl      time.Duration
	now      func() time.Time
	random   io.Reader
}

func NewCodeIssuer(codeRepo repository.VerificationCodeRepository, ttl time.Duration) *CodeIssuer {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	return &CodeIssuer{
		codeRepo: codeRepo,
		ttl:      ttl,
		now:      time.Now,
		random:   rand.Reader,
	}
}

// TTL returns how long an issued code stays valid.
func (c *CodeIssuer) TTL() time.Duration {
	return c.ttl
}

// Issue invalidates every unused code for email and stores a fresh one.
func (c *CodeIssuer) Issue(ctx context.Context, email string) (string, time.Time, error) {
	if _, err := c.codeRepo.InvalidateUnused(ctx, email); err != nil {
		return "", time.Time{}, err
	}

	code, err := generateCode(c.random)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := c.now().Add(c.ttl)
	if _, err := c.codeRepo.CreateCode(ctx, &model.VerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", time.Time{}, err
	}

	return code, expiresAt, nil
}

// Verify redeems code for email. Any failure, including losing a race with a
// concurrent redemption, is reported as ErrInvalidCode.
func (c *CodeIssuer) Verify(ctx context.Context, email, code string) error {
	now := c.now()

	record, err := c.codeRepo.FindLatestActive(ctx, email, code, now)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if err := c.codeRepo.IncrementAttempts(ctx, email, now); err != nil {
				return err
			}
			return ErrInvalidCode
		}
		return err
	}

	if !record.IsValid(now) {
		return ErrInvalidCode
	}

	ok, err := c.codeRepo.MarkUsed(ctx, record.ID.Hex(), now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	return nil
}

// generateCode draws uniformly from [0, 10^6) so leading zeros are as likely
// as any other digit.
func generateCode(r io.Reader) (string, error) {
	n, err := rand.Int(r, big.NewInt(codeSpaceUpperBound))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
