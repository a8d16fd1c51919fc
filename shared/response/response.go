package response

import (
	"encoding/json"
	"net/http"
)

// ErrorKind is the machine-readable error category returned to clients.
type ErrorKind string

const (
	ValidationError     ErrorKind = "ValidationError"
	AuthenticationError ErrorKind = "AuthenticationError"
	RateLimitError      ErrorKind = "RateLimitError"
	NotFoundError       ErrorKind = "NotFoundError"
	Unauthorized        ErrorKind = "Unauthorized"
	UpstreamError       ErrorKind = "UpstreamError"
	InternalError       ErrorKind = "InternalError"
)

// Status returns the HTTP status code for kind.
func (k ErrorKind) Status() int {
	switch k {
	case ValidationError:
		return http.StatusBadRequest
	case AuthenticationError, Unauthorized:
		return http.StatusUnauthorized
	case NotFoundError:
		return http.StatusNotFound
	case RateLimitError:
		return http.StatusTooManyRequests
	case UpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Envelope is the body of every API response.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Message string    `json:"message,omitempty"`
	Error   ErrorKind `json:"error,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// Success writes a successful envelope.
func Success(w http.ResponseWriter, statusCode int, data any, message string) {
	WriteJSON(w, statusCode, Envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// Error writes a failed envelope with the status derived from kind.
func Error(w http.ResponseWriter, kind ErrorKind, message string) {
	WriteJSON(w, kind.Status(), Envelope{
		Success: false,
		Message: message,
		Error:   kind,
	})
}
