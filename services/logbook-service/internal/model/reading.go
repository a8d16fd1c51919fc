package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// GlucoseStatus classifies a reading in mmol/L.
type GlucoseStatus string

const (
	GlucoseLow    GlucoseStatus = "low"
	GlucoseNormal GlucoseStatus = "normal"
	GlucoseHigh   GlucoseStatus = "high"
)

// Target range bounds in mmol/L.
const (
	LowThreshold  = 3.9
	HighThreshold = 7.0
)

// StatusFor returns the status of a glucose value.
func StatusFor(value float64) GlucoseStatus {
	switch {
	case value < LowThreshold:
		return GlucoseLow
	case value > HighThreshold:
		return GlucoseHigh
	default:
		return GlucoseNormal
	}
}

type GlucoseReading struct {
	ID        bson.ObjectID  `bson:"_id,omitempty"`
	UserID    bson.ObjectID  `bson:"user_id"`
	SensorID  *bson.ObjectID `bson:"sensor_id,omitempty"`
	Value     float64        `bson:"value"`
	Timestamp time.Time      `bson:"timestamp"`
	Status    GlucoseStatus  `bson:"status"`
	CreatedAt time.Time      `bson:"created_at"`
}
