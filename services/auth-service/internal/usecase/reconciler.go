package usecase

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/glucosense-api/shared/provider"
)

const defaultNamePart = "User"

// IdentityReconciler maps verified identities onto user records.
type IdentityReconciler struct {
	userRepo   repository.UserRepository
	linkPolicy config.LinkProviderPolicy
}

func NewIdentityReconciler(userRepo repository.UserRepository, linkPolicy config.LinkProviderPolicy) *IdentityReconciler {
	if linkPolicy == "" {
		linkPolicy = config.LinkPolicyKeep
	}

	return &IdentityReconciler{
		userRepo:   userRepo,
		linkPolicy: linkPolicy,
	}
}

// ReconcileFederated finds, creates or refreshes the user behind claim.
func (r *IdentityReconciler) ReconcileFederated(
	ctx context.Context,
	claim *provider.IdentityClaim,
	language model.Language,
) (*model.User, bool, error) {
	user, err := r.userRepo.GetUserByFirebaseUID(ctx, claim.UID)
	if err == nil {
		user, err = r.refreshFromClaim(ctx, user, claim)
		return user, false, err
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	email := normalizeEmail(claim.Email)
	if email == "" {
		return nil, false, ErrEmailRequired
	}

	authProvider := MapSignInProvider(claim.SignInProvider)

	existing, err := r.userRepo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.AuthProvider != authProvider {
			return nil, false, &ProviderConflictError{Provider: existing.AuthProvider}
		}
		if !claim.EmailVerified {
			return nil, false, ErrEmailNotVerified
		}
		// Same provider under a new uid: keep the one account for this email.
		user, err = r.refreshFromClaim(ctx, existing, claim)
		return user, false, err
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, false, err
	}

	firstName, lastName := splitName(claim.Name)
	user, err = r.userRepo.CreateUser(ctx, &model.User{
		Email:         email,
		AuthProvider:  authProvider,
		FirebaseUID:   claim.UID,
		EmailVerified: claim.EmailVerified,
		FirstName:     firstName,
		LastName:      lastName,
		DateOfBirth:   model.PlaceholderDateOfBirth,
		ProfilePhoto:  claim.Picture,
		Language:      language,
		Subscription:  model.DefaultSubscription(),
		Therapy:       model.DefaultTherapy(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.resolveCreateConflict(ctx, claim.UID, email)
		}
		return nil, false, err
	}

	return user, true, nil
}

// resolveCreateConflict handles a create that lost to a concurrent writer.
func (r *IdentityReconciler) resolveCreateConflict(ctx context.Context, uid, email string) (*model.User, bool, error) {
	winner, err := r.userRepo.GetUserByFirebaseUID(ctx, uid)
	if err == nil {
		return winner, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	holder, err := r.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, ErrUserAlreadyExists
		}
		return nil, false, err
	}

	return nil, false, &ProviderConflictError{Provider: holder.AuthProvider}
}

// refreshFromClaim copies changed claim fields onto user with at most one write.
func (r *IdentityReconciler) refreshFromClaim(
	ctx context.Context,
	user *model.User,
	claim *provider.IdentityClaim,
) (*model.User, error) {
	var params repository.UpdateUserParams

	if email := normalizeEmail(claim.Email); email != "" && email != user.Email {
		params.Email = &email
	}
	if user.FirebaseUID != claim.UID {
		params.FirebaseUID = &claim.UID
	}
	if strings.TrimSpace(claim.Name) != "" {
		firstName, lastName := splitName(claim.Name)
		if firstName != user.FirstName {
			params.FirstName = &firstName
		}
		if lastName != user.LastName {
			params.LastName = &lastName
		}
	}
	if claim.Picture != "" && claim.Picture != user.ProfilePhoto {
		params.ProfilePhoto = &claim.Picture
	}
	if claim.EmailVerified && !user.EmailVerified {
		verified := true
		params.EmailVerified = &verified
	}

	if params.IsEmpty() {
		return user, nil
	}

	updated, err := r.userRepo.UpdateUser(ctx, user.ID.Hex(), params)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return updated, nil
}

// ReconcileEmailCode finds or creates the email-provider user after a code
// has been redeemed.
func (r *IdentityReconciler) ReconcileEmailCode(
	ctx context.Context,
	email, name string,
	language model.Language,
) (*model.User, bool, error) {
	user, err := r.userRepo.GetUserByEmail(ctx, email)
	if err == nil {
		return r.confirmEmailUser(ctx, user)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	if strings.TrimSpace(name) == "" {
		return nil, false, ErrNameRequired
	}

	firstName, lastName := splitName(name)
	user, err = r.userRepo.CreateUser(ctx, &model.User{
		Email:         email,
		AuthProvider:  model.AuthProviderEmail,
		EmailVerified: true,
		FirstName:     firstName,
		LastName:      lastName,
		DateOfBirth:   model.PlaceholderDateOfBirth,
		Language:      language,
		Subscription:  model.DefaultSubscription(),
		Therapy:       model.DefaultTherapy(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			winner, err := r.userRepo.GetUserByEmail(ctx, email)
			if err != nil {
				return nil, false, err
			}
			return r.confirmEmailUser(ctx, winner)
		}
		return nil, false, err
	}

	return user, true, nil
}

func (r *IdentityReconciler) confirmEmailUser(ctx context.Context, user *model.User) (*model.User, bool, error) {
	if user.AuthProvider != model.AuthProviderEmail {
		return nil, false, &ProviderConflictError{Provider: user.AuthProvider}
	}
	if user.EmailVerified {
		return user, false, nil
	}

	verified := true
	updated, err := r.userRepo.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{EmailVerified: &verified})
	if err != nil {
		return nil, false, err
	}

	return updated, false, nil
}

// Link attaches the federated identity in claim to the user with userID.
func (r *IdentityReconciler) Link(ctx context.Context, userID string, claim *provider.IdentityClaim) (*model.User, error) {
	owner, err := r.userRepo.GetUserByFirebaseUID(ctx, claim.UID)
	switch {
	case err == nil:
		if owner.ID.Hex() != userID {
			return nil, ErrIdentityAlreadyLinked
		}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, err
	}

	user, err := r.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var params repository.UpdateUserParams
	if user.FirebaseUID != claim.UID {
		params.FirebaseUID = &claim.UID
	}
	if claim.EmailVerified && !user.EmailVerified {
		verified := true
		params.EmailVerified = &verified
	}
	if r.linkPolicy == config.LinkPolicyAdopt && !user.HasPassword() {
		if mapped := MapSignInProvider(claim.SignInProvider); mapped != user.AuthProvider {
			params.AuthProvider = &mapped
		}
	}

	if params.IsEmpty() {
		return user, nil
	}

	updated, err := r.userRepo.UpdateUser(ctx, userID, params)
	if err != nil {
		switch {
		case mongo.IsDuplicateKeyError(err):
			return nil, ErrIdentityAlreadyLinked
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return updated, nil
}

// MapSignInProvider maps the token issuer's sign-in provider to an auth provider.
func MapSignInProvider(signInProvider string) model.AuthProvider {
	switch signInProvider {
	case provider.SignInApple:
		return model.AuthProviderApple
	case provider.SignInFacebook:
		return model.AuthProviderFacebook
	default:
		return model.AuthProviderGoogle
	}
}

// splitName returns the first token and the remainder, each defaulting to "User".
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return defaultNamePart, defaultNamePart
	}

	lastName := strings.Join(parts[1:], " ")
	if lastName == "" {
		lastName = defaultNamePart
	}

	return parts[0], lastName
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
