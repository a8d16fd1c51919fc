package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/glucosense-api/shared/metrics"
	"github.com/vasapolrittideah/glucosense-api/shared/provider"
	"github.com/vasapolrittideah/glucosense-api/shared/security"
)

// Flow labels for auth metrics.
const (
	FlowPassword  = "password"
	FlowRegister  = "register"
	FlowCode      = "code"
	FlowFederated = "federated"
	FlowLink      = "link"
)

// AuthUsecase defines the interface for authentication-related use cases.
type AuthUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)
	SendCode(ctx context.Context, params SendCodeParams) (*SendCodeResult, error)
	VerifyCode(ctx context.Context, params VerifyCodeParams) (*AuthResult, error)
	FederatedAuth(ctx context.Context, params FederatedAuthParams) (*AuthResult, error)
	LinkFederated(ctx context.Context, userID, idToken string) (*model.User, error)
	GetMe(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*model.User, error)
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	Language    model.Language
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

type SendCodeParams struct {
	Email    string
	Language model.Language
}

type VerifyCodeParams struct {
	Email    string
	Code     string
	Name     string
	Language model.Language
}

type FederatedAuthParams struct {
	IDToken  string
	Language model.Language
}

// AuthResult is a signed-in user and their session.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
	IsNewUser bool
}

type SendCodeResult struct {
	Email     string
	ExpiresIn time.Duration
}

// RateLimiter bounds code requests per email.
type RateLimiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
}

// SessionIssuer mints session tokens.
type SessionIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Notifier delivers auth emails.
type Notifier interface {
	SendVerificationCode(email, code, language string) error
	SendWelcome(email, name, language string) error
}

type authUsecase struct {
	logger     *zerolog.Logger
	userRepo   repository.UserRepository
	codes      *CodeIssuer
	reconciler *IdentityReconciler
	limiter    RateLimiter
	verifier   provider.TokenVerifier
	sessions   SessionIssuer
	notifier   Notifier
	metrics    *metrics.Metrics

	verifyPassword func(password, encodedHash string) (bool, error)
}

func NewAuthUsecase(
	logger *zerolog.Logger,
	userRepo repository.UserRepository,
	codes *CodeIssuer,
	reconciler *IdentityReconciler,
	limiter RateLimiter,
	verifier provider.TokenVerifier,
	sessions SessionIssuer,
	notifier Notifier,
	m *metrics.Metrics,
) AuthUsecase {
	return &authUsecase{
		logger:     logger,
		userRepo:   userRepo,
		codes:      codes,
		reconciler: reconciler,
		limiter:    limiter,
		verifier:   verifier,
		sessions:   sessions,
		notifier:   notifier,
		metrics:    m,

		verifyPassword: security.VerifyPassword,
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (result *AuthResult, err error) {
	defer func() { u.metrics.AuthAttempt(FlowRegister, err == nil) }()

	email := normalizeEmail(params.Email)

	if _, err := u.userRepo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:        email,
		PasswordHash: passwordHash,
		AuthProvider: model.AuthProviderEmail,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		DateOfBirth:  params.DateOfBirth,
		Language:     params.Language,
		Subscription: model.DefaultSubscription(),
		Therapy:      model.DefaultTherapy(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserAlreadyExists
		}

		return nil, err
	}

	u.sendWelcome(user)

	return u.createSession(user, true)
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (result *AuthResult, err error) {
	defer func() { u.metrics.AuthAttempt(FlowPassword, err == nil) }()

	user, err := u.userRepo.GetUserByEmail(ctx, normalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			_, _ = u.verifyPassword(params.Password, security.DummyHash())
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if user.AuthProvider != model.AuthProviderEmail || !user.HasPassword() {
		_, _ = u.verifyPassword(params.Password, security.DummyHash())
		return nil, ErrInvalidCredentials
	}

	if ok, err := u.verifyPassword(params.Password, user.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	if security.NeedsRehash(user.PasswordHash) {
		u.upgradePasswordHash(ctx, user, params.Password)
	}

	return u.createSession(user, false)
}

// upgradePasswordHash replaces a legacy hash after a successful login.
func (u *authUsecase) upgradePasswordHash(ctx context.Context, user *model.User, password string) {
	passwordHash, err := security.HashPassword(password)
	if err != nil {
		u.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to rehash password")
		return
	}

	if _, err := u.userRepo.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		u.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to store upgraded password hash")
	}
}

func (u *authUsecase) SendCode(ctx context.Context, params SendCodeParams) (*SendCodeResult, error) {
	email := normalizeEmail(params.Email)

	allowed, err := u.limiter.Allow(ctx, email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	code, _, err := u.codes.Issue(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := u.notifier.SendVerificationCode(email, code, string(params.Language)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	u.metrics.CodeSent()

	return &SendCodeResult{Email: email, ExpiresIn: u.codes.TTL()}, nil
}

func (u *authUsecase) VerifyCode(ctx context.Context, params VerifyCodeParams) (result *AuthResult, err error) {
	defer func() { u.metrics.AuthAttempt(FlowCode, err == nil) }()

	email := normalizeEmail(params.Email)

	if err := u.codes.Verify(ctx, email, strings.TrimSpace(params.Code)); err != nil {
		return nil, err
	}

	user, isNew, err := u.reconciler.ReconcileEmailCode(ctx, email, params.Name, params.Language)
	if err != nil {
		return nil, err
	}

	if isNew {
		u.sendWelcome(user)
	}

	return u.createSession(user, isNew)
}

func (u *authUsecase) FederatedAuth(ctx context.Context, params FederatedAuthParams) (result *AuthResult, err error) {
	defer func() { u.metrics.AuthAttempt(FlowFederated, err == nil) }()

	claim, err := u.verifyIdentityToken(ctx, params.IDToken)
	if err != nil {
		return nil, err
	}

	user, isNew, err := u.reconciler.ReconcileFederated(ctx, claim, params.Language)
	if err != nil {
		return nil, err
	}

	if isNew {
		u.sendWelcome(user)
	}

	return u.createSession(user, isNew)
}

func (u *authUsecase) LinkFederated(ctx context.Context, userID, idToken string) (user *model.User, err error) {
	defer func() { u.metrics.AuthAttempt(FlowLink, err == nil) }()

	claim, err := u.verifyIdentityToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	return u.reconciler.Link(ctx, userID, claim)
}

func (u *authUsecase) verifyIdentityToken(ctx context.Context, idToken string) (*provider.IdentityClaim, error) {
	claim, err := u.verifier.VerifyToken(ctx, idToken)
	if err != nil {
		if errors.Is(err, provider.ErrVerifierUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentityToken, err)
	}

	return claim, nil
}

func (u *authUsecase) createSession(user *model.User, isNew bool) (*AuthResult, error) {
	token, expiresAt, err := u.sessions.Issue(user.ID.Hex())
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		IsNewUser: isNew,
	}, nil
}

// sendWelcome is best effort; a failed welcome email never fails sign-up.
func (u *authUsecase) sendWelcome(user *model.User) {
	if err := u.notifier.SendWelcome(user.Email, user.FirstName, string(user.Language)); err != nil {
		u.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to send welcome email")
	}
}
