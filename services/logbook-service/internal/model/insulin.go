package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type InsulinType string

const (
	InsulinRapid InsulinType = "rapid"
	InsulinLong  InsulinType = "long"
)

type InsulinLog struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	Amount    float64       `bson:"amount"`
	Type      InsulinType   `bson:"type"`
	Timestamp time.Time     `bson:"timestamp"`
	Notes     string        `bson:"notes,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
}
