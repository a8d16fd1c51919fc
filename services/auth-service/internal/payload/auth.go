package payload

import (
	"time"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
)

type RegisterRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Password    string `json:"password"    validate:"required,min=6,max=128"`
	FirstName   string `json:"firstName"   validate:"required,max=100"`
	LastName    string `json:"lastName"    validate:"required,max=100"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Language    string `json:"language"    validate:"omitempty,oneof=uz ru en"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SendCodeRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Language string `json:"language" validate:"omitempty,oneof=uz ru en"`
}

type VerifyCodeRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Code     string `json:"code"     validate:"required,len=6,numeric"`
	Name     string `json:"name"     validate:"omitempty,max=200"`
	Language string `json:"language" validate:"omitempty,oneof=uz ru en"`
}

type FederatedAuthRequest struct {
	IDToken  string `json:"idToken"  validate:"required"`
	Language string `json:"language" validate:"omitempty,oneof=uz ru en"`
}

type LinkFederatedRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName   *string `json:"firstName"   validate:"omitempty,max=100"`
	LastName    *string `json:"lastName"    validate:"omitempty,max=100"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Language    *string `json:"language"    validate:"omitempty,oneof=uz ru en"`
}

type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	DateOfBirth   time.Time  `json:"dateOfBirth"`
	Age           int        `json:"age"`
	Language      string     `json:"language"`
	AuthProvider  string     `json:"authProvider"`
	EmailVerified bool       `json:"emailVerified"`
	ProfilePhoto  string     `json:"profilePhoto,omitempty"`
	FirebaseUID   string     `json:"firebaseUid,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

type AuthResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *UserResponse `json:"user"`
	IsNewUser *bool         `json:"isNewUser,omitempty"`
}

type SendCodeResponse struct {
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expiresIn"`
}

type UserEnvelope struct {
	User *UserResponse `json:"user"`
}

// NewUserResponse renders user with its age computed at now.
func NewUserResponse(user *model.User, now time.Time) *UserResponse {
	resp := &UserResponse{
		ID:            user.ID.Hex(),
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		DateOfBirth:   user.DateOfBirth,
		Age:           user.Age(now),
		Language:      string(user.Language),
		AuthProvider:  string(user.AuthProvider),
		EmailVerified: user.EmailVerified,
		ProfilePhoto:  user.ProfilePhoto,
		FirebaseUID:   user.FirebaseUID,
	}
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		resp.CreatedAt = &createdAt
	}

	return resp
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
