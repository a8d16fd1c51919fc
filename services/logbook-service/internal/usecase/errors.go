package usecase

import "errors"

var (
	ErrInvalidID               = errors.New("invalid id")
	ErrInvalidDateRange        = errors.New("endDate must not be before startDate")
	ErrNoReadings              = errors.New("no glucose readings found")
	ErrEntryNotFound           = errors.New("entry not found")
	ErrSensorNotFound          = errors.New("sensor not found")
	ErrSensorAlreadyRegistered = errors.New("sensor is already registered")
)
