package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/glucosense-api/shared/response"
)

// writeError maps a usecase error to its response kind. Unknown errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, logger *zerolog.Logger, err error, op string) {
	var conflict *usecase.ProviderConflictError

	switch {
	case errors.As(err, &conflict):
		response.Error(w, response.ValidationError, conflict.Error())
	case errors.Is(err, usecase.ErrUserAlreadyExists),
		errors.Is(err, usecase.ErrNameRequired),
		errors.Is(err, usecase.ErrEmailRequired),
		errors.Is(err, usecase.ErrEmailNotVerified),
		errors.Is(err, usecase.ErrIdentityAlreadyLinked):
		response.Error(w, response.ValidationError, err.Error())
	case errors.Is(err, usecase.ErrInvalidCredentials):
		response.Error(w, response.AuthenticationError, usecase.ErrInvalidCredentials.Error())
	case errors.Is(err, usecase.ErrInvalidCode):
		response.Error(w, response.AuthenticationError, usecase.ErrInvalidCode.Error())
	case errors.Is(err, usecase.ErrInvalidIdentityToken):
		response.Error(w, response.AuthenticationError, usecase.ErrInvalidIdentityToken.Error())
	case errors.Is(err, usecase.ErrRateLimited):
		response.Error(w, response.RateLimitError, usecase.ErrRateLimited.Error())
	case errors.Is(err, usecase.ErrUserNotFound):
		response.Error(w, response.NotFoundError, usecase.ErrUserNotFound.Error())
	case errors.Is(err, usecase.ErrDeliveryFailed):
		logger.Error().Err(err).Str("op", op).Msg("verification code delivery failed")
		response.Error(w, response.UpstreamError, usecase.ErrDeliveryFailed.Error())
	case errors.Is(err, usecase.ErrVerifierUnavailable):
		logger.Error().Err(err).Str("op", op).Msg("identity token verifier unavailable")
		response.Error(w, response.UpstreamError, usecase.ErrVerifierUnavailable.Error())
	default:
		logger.Error().Err(err).Str("op", op).Msg("request failed")
		response.Error(w, response.InternalError, "Something went wrong")
	}
}
