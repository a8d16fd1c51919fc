package provider

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var ErrInvalidGoogleAudience = errors.New("invalid google audience")

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleIDTokenVerifier verifies Google OAuth ID tokens issued to one of an allow-list of client IDs.
// Mobile SDKs sometimes hand over a plain Google ID token instead of a Firebase token;
// this verifier accepts those and reports them as google.com sign-ins.
type GoogleIDTokenVerifier struct {
	clientIDs []string
	validate  validateFunc
}

// NewGoogleIDTokenVerifier creates a verifier that accepts tokens whose audience is in clientIDs.
func NewGoogleIDTokenVerifier(ctx context.Context, clientIDs []string, client *http.Client) (*GoogleIDTokenVerifier, error) {
	if client == nil {
		client = &http.Client{}
	}

	validator, err := idtoken.NewValidator(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}

	return &GoogleIDTokenVerifier{
		clientIDs: clientIDs,
		validate:  validator.Validate,
	}, nil
}

func (p *GoogleIDTokenVerifier) VerifyToken(ctx context.Context, token string) (*IdentityClaim, error) {
	if len(p.clientIDs) == 0 {
		return nil, errors.New("no google client ids configured")
	}

	// Audience is checked against the allow-list below rather than by the validator,
	// which only accepts a single audience.
	payload, err := p.validate(ctx, token, "")
	if err != nil {
		return nil, err
	}

	if !slices.Contains(p.clientIDs, payload.Audience) {
		return nil, ErrInvalidGoogleAudience
	}

	return &IdentityClaim{
		UID:            payload.Subject,
		Email:          stringClaim(payload.Claims, "email"),
		EmailVerified:  boolClaim(payload.Claims, "email_verified"),
		Name:           stringClaim(payload.Claims, "name"),
		Picture:        stringClaim(payload.Claims, "picture"),
		SignInProvider: SignInGoogle,
	}, nil
}

func stringClaim(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return s
}

func boolClaim(m map[string]any, k string) bool {
	switch v := m[k].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
