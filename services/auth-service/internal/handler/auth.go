package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/glucosense-api/shared/middleware"
	"github.com/vasapolrittideah/glucosense-api/shared/response"
	"github.com/vasapolrittideah/glucosense-api/shared/validation"
)

const maxBodyBytes = 1 << 20

type AuthHTTPHandler struct {
	logger      *zerolog.Logger
	authUsecase usecase.AuthUsecase
	validator   *validation.Validator
	now         func() time.Time
}

func NewAuthHTTPHandler(
	logger *zerolog.Logger,
	authUsecase usecase.AuthUsecase,
	validator *validation.Validator,
) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		logger:      logger,
		authUsecase: authUsecase,
		validator:   validator,
		now:         time.Now,
	}
}

// RegisterRoutes mounts the auth endpoints under /api/auth.
func (h *AuthHTTPHandler) RegisterRoutes(r chi.Router, sessions middleware.SessionVerifier) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/send-code", h.SendCode)
		r.Post("/verify-code", h.VerifyCode)
		r.Post("/firebase", h.FederatedAuth)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(sessions))
			r.Post("/link-firebase", h.LinkFederated)
			r.Get("/me", h.GetMe)
			r.Patch("/profile", h.UpdateProfile)
		})
	})
}

func (h *AuthHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	dob, err := payload.ParseDate(req.DateOfBirth)
	if err != nil {
		response.Error(w, response.ValidationError, "dateOfBirth must be a valid date")
		return
	}

	result, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		Language:    model.ParseLanguage(req.Language),
	})
	if err != nil {
		writeError(w, h.logger, err, "register")
		return
	}

	response.Success(w, http.StatusCreated, h.authResponse(result, false), "User registered successfully")
}

func (h *AuthHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err, "login")
		return
	}

	response.Success(w, http.StatusOK, h.authResponse(result, false), "Login successful")
}

func (h *AuthHTTPHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req payload.SendCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authUsecase.SendCode(r.Context(), usecase.SendCodeParams{
		Email:    req.Email,
		Language: model.ParseLanguage(req.Language),
	})
	if err != nil {
		writeError(w, h.logger, err, "send_code")
		return
	}

	response.Success(w, http.StatusOK, payload.SendCodeResponse{
		Email:     result.Email,
		ExpiresIn: int64(result.ExpiresIn / time.Second),
	}, "Verification code sent to your email")
}

func (h *AuthHTTPHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authUsecase.VerifyCode(r.Context(), usecase.VerifyCodeParams{
		Email:    req.Email,
		Code:     req.Code,
		Name:     req.Name,
		Language: model.ParseLanguage(req.Language),
	})
	if err != nil {
		writeError(w, h.logger, err, "verify_code")
		return
	}

	response.Success(w, http.StatusOK, h.authResponse(result, true), signInMessage(result.IsNewUser))
}

func (h *AuthHTTPHandler) FederatedAuth(w http.ResponseWriter, r *http.Request) {
	var req payload.FederatedAuthRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authUsecase.FederatedAuth(r.Context(), usecase.FederatedAuthParams{
		IDToken:  req.IDToken,
		Language: model.ParseLanguage(req.Language),
	})
	if err != nil {
		writeError(w, h.logger, err, "federated_auth")
		return
	}

	response.Success(w, http.StatusOK, h.authResponse(result, true), signInMessage(result.IsNewUser))
}

func (h *AuthHTTPHandler) LinkFederated(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, response.Unauthorized, "No token provided")
		return
	}

	var req payload.LinkFederatedRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.authUsecase.LinkFederated(r.Context(), userID, req.IDToken)
	if err != nil {
		writeError(w, h.logger, err, "link_federated")
		return
	}

	response.Success(w, http.StatusOK, payload.UserEnvelope{
		User: payload.NewUserResponse(user, h.now()),
	}, "Federated account linked successfully")
}

func (h *AuthHTTPHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, response.Unauthorized, "No token provided")
		return
	}

	user, err := h.authUsecase.GetMe(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err, "get_me")
		return
	}

	response.Success(w, http.StatusOK, payload.UserEnvelope{User: payload.NewUserResponse(user, h.now())}, "")
}

func (h *AuthHTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, response.Unauthorized, "No token provided")
		return
	}

	var req payload.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	params := usecase.UpdateProfileParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.DateOfBirth != nil {
		dob, err := payload.ParseDate(*req.DateOfBirth)
		if err != nil {
			response.Error(w, response.ValidationError, "dateOfBirth must be a valid date")
			return
		}
		params.DateOfBirth = &dob
	}
	if req.Language != nil {
		lang := model.ParseLanguage(*req.Language)
		params.Language = &lang
	}

	user, err := h.authUsecase.UpdateProfile(r.Context(), userID, params)
	if err != nil {
		writeError(w, h.logger, err, "update_profile")
		return
	}

	response.Success(w, http.StatusOK, payload.UserEnvelope{
		User: payload.NewUserResponse(user, h.now()),
	}, "Profile updated successfully")
}

// decode reads and validates the JSON body into dst, writing a
// ValidationError response on failure.
func (h *AuthHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, response.ValidationError, "Invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		response.Error(w, response.ValidationError, err.Error())
		return false
	}

	return true
}

func (h *AuthHTTPHandler) authResponse(result *usecase.AuthResult, withIsNew bool) payload.AuthResponse {
	resp := payload.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      payload.NewUserResponse(result.User, h.now()),
	}
	if withIsNew {
		isNew := result.IsNewUser
		resp.IsNewUser = &isNew
	}

	return resp
}

func signInMessage(isNew bool) string {
	if isNew {
		return "Registration successful"
	}
	return "Login successful"
}
