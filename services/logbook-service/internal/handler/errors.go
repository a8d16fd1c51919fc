package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/usecase"
	"github.com/vasapolrittideah/glucosense-api/shared/response"
)

func writeError(w http.ResponseWriter, logger *zerolog.Logger, err error, op string) {
	switch {
	case errors.Is(err, usecase.ErrInvalidID),
		errors.Is(err, usecase.ErrInvalidDateRange),
		errors.Is(err, usecase.ErrSensorAlreadyRegistered):
		response.Error(w, response.ValidationError, err.Error())
	case errors.Is(err, usecase.ErrNoReadings),
		errors.Is(err, usecase.ErrEntryNotFound),
		errors.Is(err, usecase.ErrSensorNotFound):
		response.Error(w, response.NotFoundError, err.Error())
	default:
		logger.Error().Err(err).Str("op", op).Msg("request failed")
		response.Error(w, response.InternalError, "Something went wrong")
	}
}
