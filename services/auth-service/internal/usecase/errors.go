package usecase

import (
	"errors"
	"fmt"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
)

var (
	ErrUserAlreadyExists     = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidCode           = errors.New("invalid or expired verification code")
	ErrRateLimited           = errors.New("too many requests, please try again later")
	ErrNameRequired          = errors.New("name is required for new users")
	ErrEmailRequired         = errors.New("identity token carries no email")
	ErrEmailNotVerified      = errors.New("email is not verified by the identity provider")
	ErrUserNotFound          = errors.New("user not found")
	ErrIdentityAlreadyLinked = errors.New("this federated account is already linked to another user")
	ErrInvalidIdentityToken  = errors.New("invalid identity token")
	ErrVerifierUnavailable   = errors.New("identity token verification is unavailable")
	ErrDeliveryFailed        = errors.New("failed to send verification code")
)

// ProviderConflictError is returned when an email already belongs to an
// account that signs in through a different provider.
type ProviderConflictError struct {
	Provider model.AuthProvider
}

func (e *ProviderConflictError) Error() string {
	return fmt.Sprintf(
		"this email is already registered with %s authentication, please use %s to login",
		e.Provider, e.Provider,
	)
}
