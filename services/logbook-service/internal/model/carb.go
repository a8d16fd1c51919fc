package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

type CarbLog struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    bson.ObjectID `bson:"user_id"`
	Amount    float64       `bson:"amount"`
	MealType  MealType      `bson:"meal_type,omitempty"`
	Timestamp time.Time     `bson:"timestamp"`
	Notes     string        `bson:"notes,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
}
