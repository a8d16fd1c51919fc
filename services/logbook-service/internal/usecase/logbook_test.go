package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
)

func newTestLogbook(t *testing.T) (*logbookUsecase, *fakeLogbookRepo, *fakeSensorRepo) {
	t.Helper()

	logbookRepo := newFakeLogbookRepo()
	sensorRepo := newFakeSensorRepo()
	u := NewLogbookUsecase(&nopLogger, logbookRepo, sensorRepo).(*logbookUsecase)
	u.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	return u, logbookRepo, sensorRepo
}

func TestCreateReadingDerivesStatus(t *testing.T) {
	u, _, _ := newTestLogbook(t)
	ctx := context.Background()
	userID := bson.NewObjectID().Hex()

	tests := []struct {
		value float64
		want  model.GlucoseStatus
	}{
		{3.2, model.GlucoseLow},
		{6.1, model.GlucoseNormal},
		{9.4, model.GlucoseHigh},
	}

	for _, tt := range tests {
		reading, err := u.CreateReading(ctx, userID, CreateReadingParams{Value: tt.value})
		require.NoError(t, err)
		assert.Equal(t, tt.want, reading.Status)
		assert.Equal(t, u.now(), reading.Timestamp)
		assert.Nil(t, reading.SensorID)
	}
}

func TestCreateReadingWithSensor(t *testing.T) {
	u, _, sensors := newTestLogbook(t)
	ctx := context.Background()
	owner := bson.NewObjectID()

	sensor, err := sensors.CreateSensor(ctx, &model.Sensor{UserID: owner, SerialNumber: "ABCD-1234-EFGH-5678", IsActive: true})
	require.NoError(t, err)

	reading, err := u.CreateReading(ctx, owner.Hex(), CreateReadingParams{Value: 5.5, SensorID: sensor.ID.Hex()})
	require.NoError(t, err)
	require.NotNil(t, reading.SensorID)
	assert.Equal(t, sensor.ID, *reading.SensorID)

	_, err = u.CreateReading(ctx, bson.NewObjectID().Hex(), CreateReadingParams{Value: 5.5, SensorID: sensor.ID.Hex()})
	assert.ErrorIs(t, err, ErrSensorNotFound)

	_, err = u.CreateReading(ctx, owner.Hex(), CreateReadingParams{Value: 5.5, SensorID: "not-hex"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestListReadings(t *testing.T) {
	u, repo, _ := newTestLogbook(t)
	ctx := context.Background()
	userID := bson.NewObjectID().Hex()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		_, err := u.CreateReading(ctx, userID, CreateReadingParams{Value: 5, Timestamp: &ts})
		require.NoError(t, err)
	}
	_, err := u.CreateReading(ctx, bson.NewObjectID().Hex(), CreateReadingParams{Value: 5})
	require.NoError(t, err)

	readings, err := u.ListReadings(ctx, userID, ListQuery{})
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, base.Add(2*time.Hour), readings[0].Timestamp)

	start := base.Add(30 * time.Minute)
	readings, err = u.ListReadings(ctx, userID, ListQuery{StartDate: &start, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, readings, 2)
	assert.EqualValues(t, 10, repo.lastList.Limit)

	end := base
	_, err = u.ListReadings(ctx, userID, ListQuery{StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = u.ListReadings(ctx, "bogus", ListQuery{})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestLatestReading(t *testing.T) {
	u, _, _ := newTestLogbook(t)
	ctx := context.Background()
	userID := bson.NewObjectID().Hex()

	_, err := u.LatestReading(ctx, userID)
	assert.ErrorIs(t, err, ErrNoReadings)

	early := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	_, err = u.CreateReading(ctx, userID, CreateReadingParams{Value: 4, Timestamp: &late})
	require.NoError(t, err)
	_, err = u.CreateReading(ctx, userID, CreateReadingParams{Value: 8, Timestamp: &early})
	require.NoError(t, err)

	latest, err := u.LatestReading(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, late, latest.Timestamp)
}

func TestInsulinLogLifecycle(t *testing.T) {
	u, _, _ := newTestLogbook(t)
	ctx := context.Background()
	userID := bson.NewObjectID().Hex()

	entry, err := u.CreateInsulinLog(ctx, userID, CreateInsulinParams{Amount: 4, Type: model.InsulinRapid, Notes: "lunch"})
	require.NoError(t, err)
	assert.Equal(t, model.InsulinRapid, entry.Type)

	logs, err := u.ListInsulinLogs(ctx, userID, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	err = u.DeleteInsulinLog(ctx, bson.NewObjectID().Hex(), entry.ID.Hex())
	assert.ErrorIs(t, err, ErrEntryNotFound)

	require.NoError(t, u.DeleteInsulinLog(ctx, userID, entry.ID.Hex()))
	assert.ErrorIs(t, u.DeleteInsulinLog(ctx, userID, entry.ID.Hex()), ErrEntryNotFound)
	assert.ErrorIs(t, u.DeleteInsulinLog(ctx, userID, "xyz"), ErrInvalidID)
}

func TestCarbLogLifecycle(t *testing.T) {
	u, _, _ := newTestLogbook(t)
	ctx := context.Background()
	userID := bson.NewObjectID().Hex()

	entry, err := u.CreateCarbLog(ctx, userID, CreateCarbParams{Amount: 45, MealType: model.MealDinner})
	require.NoError(t, err)

	logs, err := u.ListCarbLogs(ctx, userID, ListQuery{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.MealDinner, logs[0].MealType)

	require.NoError(t, u.DeleteCarbLog(ctx, userID, entry.ID.Hex()))
	assert.ErrorIs(t, u.DeleteCarbLog(ctx, userID, entry.ID.Hex()), ErrEntryNotFound)
}
