package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Sensor is a continuous glucose monitor registered to a user.
type Sensor struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	UserID         bson.ObjectID `bson:"user_id"`
	SerialNumber   string        `bson:"serial_number"`
	ConnectionCode string        `bson:"connection_code"`
	ActivatedAt    time.Time     `bson:"activated_at"`
	LastSync       *time.Time    `bson:"last_sync,omitempty"`
	IsActive       bool          `bson:"is_active"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}
