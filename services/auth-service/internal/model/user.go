package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuthProvider identifies how a user first signed up.
type AuthProvider string

const (
	AuthProviderEmail    AuthProvider = "email"
	AuthProviderGoogle   AuthProvider = "google"
	AuthProviderApple    AuthProvider = "apple"
	AuthProviderFacebook AuthProvider = "facebook"
)

// Language is a supported UI and email language.
type Language string

const (
	LanguageUzbek   Language = "uz"
	LanguageRussian Language = "ru"
	LanguageEnglish Language = "en"
)

// ParseLanguage returns the language for s, defaulting to English.
func ParseLanguage(s string) Language {
	switch Language(s) {
	case LanguageUzbek, LanguageRussian, LanguageEnglish:
		return Language(s)
	default:
		return LanguageEnglish
	}
}

// PlaceholderDateOfBirth is stored for users created without a birth date.
var PlaceholderDateOfBirth = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// User represents a user in the authentication system.
type User struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	Email         string        `bson:"email"`
	PasswordHash  string        `bson:"password_hash,omitempty"`
	AuthProvider  AuthProvider  `bson:"auth_provider"`
	FirebaseUID   string        `bson:"firebase_uid,omitempty"`
	EmailVerified bool          `bson:"email_verified"`
	FirstName     string        `bson:"first_name"`
	LastName      string        `bson:"last_name"`
	DateOfBirth   time.Time     `bson:"date_of_birth"`
	ProfilePhoto  string        `bson:"profile_photo,omitempty"`
	Language      Language      `bson:"language"`
	Balance       float64       `bson:"balance"`
	Subscription  Subscription  `bson:"subscription"`
	Therapy       Therapy       `bson:"therapy"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Age returns the user's age in whole years at now.
func (u *User) Age(now time.Time) int {
	return AgeAt(u.DateOfBirth, now)
}

// AgeAt returns the number of full years between dob and now, or 0 when dob
// is unset or in the future.
func AgeAt(dob, now time.Time) int {
	if dob.IsZero() {
		return 0
	}
	dob = dob.UTC()
	now = now.UTC()

	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Subscription is billing state kept on the user record. Nothing in the
// auth service reads it.
type Subscription struct {
	Status        string     `bson:"status"`
	PlanID        string     `bson:"plan_id,omitempty"`
	StartAt       *time.Time `bson:"start_at,omitempty"`
	EndAt         *time.Time `bson:"end_at,omitempty"`
	AutoRenew     bool       `bson:"auto_renew"`
	LastPaymentAt *time.Time `bson:"last_payment_at,omitempty"`
	Provider      string     `bson:"provider,omitempty"`
}

// Therapy is medical profile data kept on the user record.
type Therapy struct {
	HasDiabetes  bool        `bson:"has_diabetes"`
	DiabetesType string      `bson:"diabetes_type"`
	Treatments   []Treatment `bson:"treatments,omitempty"`
}

type Treatment struct {
	Kind     string     `bson:"kind"`
	Name     string     `bson:"name"`
	Dose     string     `bson:"dose,omitempty"`
	Schedule string     `bson:"schedule,omitempty"`
	Note     string     `bson:"note,omitempty"`
	StartAt  *time.Time `bson:"start_at,omitempty"`
	EndAt    *time.Time `bson:"end_at,omitempty"`
	IsActive bool       `bson:"is_active"`
}

// DefaultSubscription and DefaultTherapy are the values new users start with.
func DefaultSubscription() Subscription { return Subscription{Status: "none"} }

func DefaultTherapy() Therapy { return Therapy{DiabetesType: "unknown"} }
