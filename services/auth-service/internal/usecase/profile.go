package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/repository"
)

// UpdateProfileParams holds the profile fields a user may change. Nil fields
// are left untouched.
type UpdateProfileParams struct {
	FirstName   *string
	LastName    *string
	DateOfBirth *time.Time
	Language    *model.Language
}

func (u *authUsecase) GetMe(ctx context.Context, userID string) (*model.User, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

func (u *authUsecase) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*model.User, error) {
	update := repository.UpdateUserParams{
		DateOfBirth: params.DateOfBirth,
		Language:    params.Language,
	}
	if params.FirstName != nil {
		if v := strings.TrimSpace(*params.FirstName); v != "" {
			update.FirstName = &v
		}
	}
	if params.LastName != nil {
		if v := strings.TrimSpace(*params.LastName); v != "" {
			update.LastName = &v
		}
	}

	if update.IsEmpty() {
		return u.GetMe(ctx, userID)
	}

	user, err := u.userRepo.UpdateUser(ctx, userID, update)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}
