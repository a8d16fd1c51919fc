package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/usecase"
	"github.com/vasapolrittideah/glucosense-api/shared/response"
	"github.com/vasapolrittideah/glucosense-api/shared/validation"
)

const testUserID = "665f1b2c3d4e5f6a7b8c9d0e"

type stubSessions struct{}

func (stubSessions) Verify(token string) (string, error) {
	if token == "good" {
		return testUserID, nil
	}
	return "", errors.New("bad token")
}

type stubLogbook struct {
	err       error
	gotUser   string
	gotID     string
	gotQuery  usecase.ListQuery
	gotCreate usecase.CreateReadingParams
}

func (s *stubLogbook) CreateReading(_ context.Context, userID string, p usecase.CreateReadingParams) (*model.GlucoseReading, error) {
	s.gotUser, s.gotCreate = userID, p
	if s.err != nil {
		return nil, s.err
	}
	return &model.GlucoseReading{ID: bson.NewObjectID(), Value: p.Value, Status: model.StatusFor(p.Value)}, nil
}

func (s *stubLogbook) ListReadings(_ context.Context, userID string, q usecase.ListQuery) ([]*model.GlucoseReading, error) {
	s.gotUser, s.gotQuery = userID, q
	if s.err != nil {
		return nil, s.err
	}
	return []*model.GlucoseReading{{ID: bson.NewObjectID(), Value: 5, Status: model.GlucoseNormal}}, nil
}

func (s *stubLogbook) LatestReading(_ context.Context, userID string) (*model.GlucoseReading, error) {
	s.gotUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return &model.GlucoseReading{ID: bson.NewObjectID(), Value: 5}, nil
}

func (s *stubLogbook) CreateInsulinLog(_ context.Context, userID string, p usecase.CreateInsulinParams) (*model.InsulinLog, error) {
	s.gotUser = userID
	return &model.InsulinLog{ID: bson.NewObjectID(), Amount: p.Amount, Type: p.Type}, s.err
}

func (s *stubLogbook) ListInsulinLogs(_ context.Context, _ string, q usecase.ListQuery) ([]*model.InsulinLog, error) {
	s.gotQuery = q
	return []*model.InsulinLog{}, s.err
}

func (s *stubLogbook) DeleteInsulinLog(_ context.Context, userID, id string) error {
	s.gotUser, s.gotID = userID, id
	return s.err
}

func (s *stubLogbook) CreateCarbLog(_ context.Context, userID string, p usecase.CreateCarbParams) (*model.CarbLog, error) {
	s.gotUser = userID
	return &model.CarbLog{ID: bson.NewObjectID(), Amount: p.Amount, MealType: p.MealType}, s.err
}

func (s *stubLogbook) ListCarbLogs(_ context.Context, _ string, q usecase.ListQuery) ([]*model.CarbLog, error) {
	s.gotQuery = q
	return []*model.CarbLog{}, s.err
}

func (s *stubLogbook) DeleteCarbLog(_ context.Context, userID, id string) error {
	s.gotUser, s.gotID = userID, id
	return s.err
}

type stubSensors struct {
	err error
}

func (s *stubSensors) RegisterSensor(_ context.Context, _ string, p usecase.RegisterSensorParams) (*model.Sensor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Sensor{ID: bson.NewObjectID(), SerialNumber: p.SerialNumber, ConnectionCode: p.ConnectionCode, IsActive: true}, nil
}

func (s *stubSensors) ListActiveSensors(context.Context, string) ([]*model.Sensor, error) {
	return []*model.Sensor{}, s.err
}

func (s *stubSensors) GetSensor(context.Context, string, string) (*model.Sensor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Sensor{ID: bson.NewObjectID(), IsActive: true}, nil
}

func (s *stubSensors) DeactivateSensor(context.Context, string, string) (*model.Sensor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Sensor{ID: bson.NewObjectID()}, nil
}

func newTestRouter(t *testing.T, logbook *stubLogbook, sensors *stubSensors) http.Handler {
	t.Helper()

	v, err := validation.New()
	require.NoError(t, err)

	logger := zerolog.Nop()
	r := chi.NewRouter()
	NewLogbookHTTPHandler(&logger, logbook, sensors, v).RegisterRoutes(r, stubSessions{})

	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return rec, env
}

func TestLogbookRoutesRequireSession(t *testing.T) {
	h := newTestRouter(t, &stubLogbook{}, &stubSensors{})

	for _, target := range []string{"/api/readings", "/api/insulin", "/api/carbs", "/api/sensors"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestCreateReading(t *testing.T) {
	logbook := &stubLogbook{}
	h := newTestRouter(t, logbook, &stubSensors{})

	rec, env := do(t, h, http.MethodPost, "/api/readings", `{"value":8.2,"timestamp":"2024-05-01T08:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, testUserID, logbook.gotUser)
	require.NotNil(t, logbook.gotCreate.Timestamp)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), logbook.gotCreate.Timestamp.UTC())

	data := env.Data.(map[string]any)["reading"].(map[string]any)
	assert.Equal(t, "high", data["status"])
}

func TestCreateValidation(t *testing.T) {
	h := newTestRouter(t, &stubLogbook{}, &stubSensors{})

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"reading missing value", "/api/readings", `{}`},
		{"reading bad sensor id", "/api/readings", `{"value":5,"sensorId":"abc"}`},
		{"insulin bad type", "/api/insulin", `{"amount":4,"type":"medium"}`},
		{"carbs bad meal", "/api/carbs", `{"amount":30,"mealType":"brunch"}`},
		{"sensor short serial", "/api/sensors", `{"serialNumber":"123","connectionCode":"A1B2C3D4"}`},
		{"sensor long code", "/api/sensors", `{"serialNumber":"ABCD-1234-EFGH-5678","connectionCode":"A1B2C3D4E5"}`},
		{"malformed body", "/api/readings", `{"value":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, response.ValidationError, env.Error)
		})
	}
}

func TestListQueryDecoding(t *testing.T) {
	logbook := &stubLogbook{}
	h := newTestRouter(t, logbook, &stubSensors{})

	rec, env := do(t, h, http.MethodGet, "/api/readings?startDate=2024-05-01&endDate=2024-05-02T10:00:00Z&limit=25", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data.(map[string]any)["readings"], 1)

	require.NotNil(t, logbook.gotQuery.StartDate)
	require.NotNil(t, logbook.gotQuery.EndDate)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *logbook.gotQuery.StartDate)
	assert.Equal(t, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), *logbook.gotQuery.EndDate)
	assert.EqualValues(t, 25, logbook.gotQuery.Limit)

	for _, target := range []string{"/api/insulin?startDate=yesterday", "/api/carbs?limit=-1", "/api/carbs?limit=5000"} {
		rec, env := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, response.ValidationError, env.Error, target)
	}
}

func TestLogbookErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		method   string
		target   string
		wantCode int
		wantKind response.ErrorKind
	}{
		{usecase.ErrNoReadings, http.MethodGet, "/api/readings/latest", http.StatusNotFound, response.NotFoundError},
		{usecase.ErrEntryNotFound, http.MethodDelete, "/api/insulin/665f1b2c3d4e5f6a7b8c9d0f", http.StatusNotFound, response.NotFoundError},
		{usecase.ErrInvalidID, http.MethodDelete, "/api/carbs/xyz", http.StatusBadRequest, response.ValidationError},
		{usecase.ErrInvalidDateRange, http.MethodGet, "/api/readings", http.StatusBadRequest, response.ValidationError},
		{errors.New("mongo down"), http.MethodGet, "/api/readings", http.StatusInternalServerError, response.InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newTestRouter(t, &stubLogbook{err: tt.err}, &stubSensors{})
			rec, env := do(t, h, tt.method, tt.target, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantKind, env.Error)
		})
	}
}

func TestSensorRoutes(t *testing.T) {
	h := newTestRouter(t, &stubLogbook{}, &stubSensors{})

	rec, env := do(t, h, http.MethodPost, "/api/sensors", `{"serialNumber":"ABCD-1234-EFGH-5678","connectionCode":"A1B2C3D4"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	sensor := env.Data.(map[string]any)["sensor"].(map[string]any)
	assert.Equal(t, "ABCD-1234-EFGH-5678", sensor["serialNumber"])
	assert.NotContains(t, sensor, "connectionCode")

	rec, _ = do(t, h, http.MethodDelete, "/api/sensors/665f1b2c3d4e5f6a7b8c9d0f", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h = newTestRouter(t, &stubLogbook{}, &stubSensors{err: usecase.ErrSensorAlreadyRegistered})
	rec, env = do(t, h, http.MethodPost, "/api/sensors", `{"serialNumber":"ABCD-1234-EFGH-5678","connectionCode":"A1B2C3D4"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, usecase.ErrSensorAlreadyRegistered.Error(), env.Message)

	h = newTestRouter(t, &stubLogbook{}, &stubSensors{err: usecase.ErrSensorNotFound})
	rec, _ = do(t, h, http.MethodGet, "/api/sensors/665f1b2c3d4e5f6a7b8c9d0f", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOversizedBodyRejected(t *testing.T) {
	logbook := &stubLogbook{}
	h := newTestRouter(t, logbook, &stubSensors{})

	body := `{"amount":4,"type":"rapid","notes":"` + strings.Repeat("n", maxBodyBytes) + `"}`
	rec, env := do(t, h, http.MethodPost, "/api/insulin", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env.Message)
	assert.Empty(t, logbook.gotUser)
}
