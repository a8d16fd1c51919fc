package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MaxCodeAttempts is the number of failed guesses after which a code is dead.
const MaxCodeAttempts = 5

// VerificationCode is a one-time code emailed to a user.
type VerificationCode struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Code      string        `bson:"code"`
	ExpiresAt time.Time     `bson:"expires_at"`
	Used      bool          `bson:"used"`
	Attempts  int           `bson:"attempts"`
	CreatedAt time.Time     `bson:"created_at"`
}

// IsValid reports whether the code can still be redeemed at now.
func (c *VerificationCode) IsValid(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt) && c.Attempts < MaxCodeAttempts
}
