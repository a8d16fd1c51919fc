package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/payload"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/usecase"
	"github.com/vasapolrittideah/glucosense-api/shared/middleware"
	"github.com/vasapolrittideah/glucosense-api/shared/response"
	"github.com/vasapolrittideah/glucosense-api/shared/validation"
)

const maxBodyBytes = 1 << 20

type LogbookHTTPHandler struct {
	logger         *zerolog.Logger
	logbookUsecase usecase.LogbookUsecase
	sensorUsecase  usecase.SensorUsecase
	validator      *validation.Validator
	queryDecoder   *form.Decoder
}

func NewLogbookHTTPHandler(
	logger *zerolog.Logger,
	logbookUsecase usecase.LogbookUsecase,
	sensorUsecase usecase.SensorUsecase,
	validator *validation.Validator,
) *LogbookHTTPHandler {
	return &LogbookHTTPHandler{
		logger:         logger,
		logbookUsecase: logbookUsecase,
		sensorUsecase:  sensorUsecase,
		validator:      validator,
		queryDecoder:   newQueryDecoder(),
	}
}

// RegisterRoutes mounts the logbook endpoints. All of them require a session.
func (h *LogbookHTTPHandler) RegisterRoutes(r chi.Router, sessions middleware.SessionVerifier) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions))

		r.Route("/api/readings", func(r chi.Router) {
			r.Post("/", h.CreateReading)
			r.Get("/", h.ListReadings)
			r.Get("/latest", h.LatestReading)
		})

		r.Route("/api/insulin", func(r chi.Router) {
			r.Post("/", h.CreateInsulinLog)
			r.Get("/", h.ListInsulinLogs)
			r.Delete("/{id}", h.DeleteInsulinLog)
		})

		r.Route("/api/carbs", func(r chi.Router) {
			r.Post("/", h.CreateCarbLog)
			r.Get("/", h.ListCarbLogs)
			r.Delete("/{id}", h.DeleteCarbLog)
		})

		r.Route("/api/sensors", func(r chi.Router) {
			r.Post("/", h.RegisterSensor)
			r.Get("/", h.ListActiveSensors)
			r.Get("/{id}", h.GetSensor)
			r.Delete("/{id}", h.DeactivateSensor)
		})
	})
}

func (h *LogbookHTTPHandler) CreateReading(w http.ResponseWriter, r *http.Request) {
	var req payload.CreateReadingRequest
	if !h.decode(w, r, &req) {
		return
	}

	reading, err := h.logbookUsecase.CreateReading(r.Context(), userID(r), usecase.CreateReadingParams{
		Value:     req.Value,
		Timestamp: req.Timestamp,
		SensorID:  req.SensorID,
	})
	if err != nil {
		writeError(w, h.logger, err, "create_reading")
		return
	}

	response.Success(w, http.StatusCreated, map[string]any{
		"reading": payload.NewReadingResponse(reading),
	}, "Reading recorded")
}

func (h *LogbookHTTPHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	query, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	readings, err := h.logbookUsecase.ListReadings(r.Context(), userID(r), query)
	if err != nil {
		writeError(w, h.logger, err, "list_readings")
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"readings": payload.Map(readings, payload.NewReadingResponse),
	}, "")
}

func (h *LogbookHTTPHandler) LatestReading(w http.ResponseWriter, r *http.Request) {
	reading, err := h.logbookUsecase.LatestReading(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err, "latest_reading")
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"reading": payload.NewReadingResponse(reading),
	}, "")
}

func (h *LogbookHTTPHandler) CreateInsulinLog(w http.ResponseWriter, r *http.Request) {
	var req payload.CreateInsulinRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.logbookUsecase.CreateInsulinLog(r.Context(), userID(r), usecase.CreateInsulinParams{
		Amount:    req.Amount,
		Type:      model.InsulinType(req.Type),
		Timestamp: req.Timestamp,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err, "create_insulin_log")
		return
	}

	response.Success(w, http.StatusCreated, map[string]any{
		"log": payload.NewInsulinResponse(entry),
	}, "Insulin logged")
}

func (h *LogbookHTTPHandler) ListInsulinLogs(w http.ResponseWriter, r *http.Request) {
	query, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	logs, err := h.logbookUsecase.ListInsulinLogs(r.Context(), userID(r), query)
	if err != nil {
		writeError(w, h.logger, err, "list_insulin_logs")
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"logs": payload.Map(logs, payload.NewInsulinResponse),
	}, "")
}

func (h *LogbookHTTPHandler) DeleteInsulinLog(w http.ResponseWriter, r *http.Request) {
	if err := h.logbookUsecase.DeleteInsulinLog(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err, "delete_insulin_log")
		return
	}

	response.Success(w, http.StatusOK, nil, "Insulin log deleted")
}

func (h *LogbookHTTPHandler) CreateCarbLog(w http.ResponseWriter, r *http.Request) {
	var req payload.CreateCarbRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.logbookUsecase.CreateCarbLog(r.Context(), userID(r), usecase.CreateCarbParams{
		Amount:    req.Amount,
		MealType:  model.MealType(req.MealType),
		Timestamp: req.Timestamp,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err, "create_carb_log")
		return
	}

	response.Success(w, http.StatusCreated, map[string]any{
		"log": payload.NewCarbResponse(entry),
	}, "Carbs logged")
}

func (h *LogbookHTTPHandler) ListCarbLogs(w http.ResponseWriter, r *http.Request) {
	query, ok := h.listQuery(w, r)
	if !ok {
		return
	}

	logs, err := h.logbookUsecase.ListCarbLogs(r.Context(), userID(r), query)
	if err != nil {
		writeError(w, h.logger, err, "list_carb_logs")
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"logs": payload.Map(logs, payload.NewCarbResponse),
	}, "")
}

func (h *LogbookHTTPHandler) DeleteCarbLog(w http.ResponseWriter, r *http.Request) {
	if err := h.logbookUsecase.DeleteCarbLog(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err, "delete_carb_log")
		return
	}

	response.Success(w, http.StatusOK, nil, "Carb log deleted")
}

func (h *LogbookHTTPHandler) RegisterSensor(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterSensorRequest
	if !h.decode(w, r, &req) {
		return
	}

	sensor, err := h.sensorUsecase.RegisterSensor(r.Context(), userID(r), usecase.RegisterSensorParams{
		SerialNumber:   req.SerialNumber,
		ConnectionCode: req.ConnectionCode,
	})
	if err != nil {
		writeError(w, h.logger, err, "register_sensor")
		return
	}

	response.Success(w, http.StatusCreated, map[string]any{
		"sensor": payload.NewSensorResponse(sensor),
	}, "Sensor registered")
}

func (h *LogbookHTTPHandler) ListActiveSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.sensorUsecase.ListActiveSensors(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err, "list_sensors")
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"sensors": payload.Map(sensors, payload.NewSensorResponse),
	}, "")
}

func (h *LogbookHTTPHandler) GetSensor(w http.ResponseWriter, r *http.Request) {
	sensor, err := h.sensorUsecase.GetSensor(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "get_sensor")
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"sensor": payload.NewSensorResponse(sensor),
	}, "")
}

func (h *LogbookHTTPHandler) DeactivateSensor(w http.ResponseWriter, r *http.Request) {
	sensor, err := h.sensorUsecase.DeactivateSensor(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err, "deactivate_sensor")
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"sensor": payload.NewSensorResponse(sensor),
	}, "Sensor deactivated")
}

func (h *LogbookHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
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

func (h *LogbookHTTPHandler) listQuery(w http.ResponseWriter, r *http.Request) (usecase.ListQuery, bool) {
	var q payload.ListQuery
	if err := decodeQuery(h.queryDecoder, &q, r.URL.Query()); err != nil {
		response.Error(w, response.ValidationError, "Invalid query parameters")
		return usecase.ListQuery{}, false
	}

	if err := h.validator.Struct(&q); err != nil {
		response.Error(w, response.ValidationError, err.Error())
		return usecase.ListQuery{}, false
	}

	return usecase.ListQuery{StartDate: q.StartDate, EndDate: q.EndDate, Limit: q.Limit}, true
}

// userID is only called behind RequireSession, which guarantees the value.
func userID(r *http.Request) string {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}
