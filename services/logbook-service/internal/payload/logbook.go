package payload

import (
	"time"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
)

type CreateReadingRequest struct {
	Value     float64    `json:"value"     validate:"required,gt=0,lte=50"`
	Timestamp *time.Time `json:"timestamp"`
	SensorID  string     `json:"sensorId"  validate:"omitempty,len=24,hexadecimal"`
}

type CreateInsulinRequest struct {
	Amount    float64    `json:"amount"    validate:"required,gt=0,lte=200"`
	Type      string     `json:"type"      validate:"required,oneof=rapid long"`
	Timestamp *time.Time `json:"timestamp"`
	Notes     string     `json:"notes"     validate:"max=500"`
}

type CreateCarbRequest struct {
	Amount    float64    `json:"amount"    validate:"required,gt=0,lte=1000"`
	MealType  string     `json:"mealType"  validate:"omitempty,oneof=breakfast lunch dinner snack"`
	Timestamp *time.Time `json:"timestamp"`
	Notes     string     `json:"notes"     validate:"max=500"`
}

type RegisterSensorRequest struct {
	SerialNumber   string `json:"serialNumber"   validate:"required,len=19"`
	ConnectionCode string `json:"connectionCode" validate:"required,len=8"`
}

// ListQuery is decoded from the query string of list endpoints.
type ListQuery struct {
	StartDate *time.Time `form:"startDate" json:"startDate"`
	EndDate   *time.Time `form:"endDate"   json:"endDate"`
	Limit     int64      `form:"limit"     json:"limit"     validate:"omitempty,min=1,max=1000"`
}

type ReadingResponse struct {
	ID        string    `json:"id"`
	SensorID  *string   `json:"sensorId,omitempty"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewReadingResponse(r *model.GlucoseReading) ReadingResponse {
	resp := ReadingResponse{
		ID:        r.ID.Hex(),
		Value:     r.Value,
		Timestamp: r.Timestamp,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
	if r.SensorID != nil {
		sensorID := r.SensorID.Hex()
		resp.SensorID = &sensorID
	}

	return resp
}

type InsulinResponse struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewInsulinResponse(l *model.InsulinLog) InsulinResponse {
	return InsulinResponse{
		ID:        l.ID.Hex(),
		Amount:    l.Amount,
		Type:      string(l.Type),
		Timestamp: l.Timestamp,
		Notes:     l.Notes,
		CreatedAt: l.CreatedAt,
	}
}

type CarbResponse struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	MealType  string    `json:"mealType,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewCarbResponse(l *model.CarbLog) CarbResponse {
	return CarbResponse{
		ID:        l.ID.Hex(),
		Amount:    l.Amount,
		MealType:  string(l.MealType),
		Timestamp: l.Timestamp,
		Notes:     l.Notes,
		CreatedAt: l.CreatedAt,
	}
}

type SensorResponse struct {
	ID           string     `json:"id"`
	SerialNumber string     `json:"serialNumber"`
	ActivatedAt  time.Time  `json:"activatedAt"`
	LastSync     *time.Time `json:"lastSync,omitempty"`
	IsActive     bool       `json:"isActive"`
}

// NewSensorResponse omits the connection code, which is only needed for pairing.
func NewSensorResponse(s *model.Sensor) SensorResponse {
	return SensorResponse{
		ID:           s.ID.Hex(),
		SerialNumber: s.SerialNumber,
		ActivatedAt:  s.ActivatedAt,
		LastSync:     s.LastSync,
		IsActive:     s.IsActive,
	}
}

// Map converts each element of items with fn.
func Map[T any, R any](items []*T, fn func(*T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
