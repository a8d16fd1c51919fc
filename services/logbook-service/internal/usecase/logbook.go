package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/repository"
)

// LogbookUsecase records and queries a user's diabetes logbook. Every
// operation is scoped to the authenticated user ID.
type LogbookUsecase interface {
	CreateReading(ctx context.Context, userID string, params CreateReadingParams) (*model.GlucoseReading, error)
	ListReadings(ctx context.Context, userID string, query ListQuery) ([]*model.GlucoseReading, error)
	LatestReading(ctx context.Context, userID string) (*model.GlucoseReading, error)

	CreateInsulinLog(ctx context.Context, userID string, params CreateInsulinParams) (*model.InsulinLog, error)
	ListInsulinLogs(ctx context.Context, userID string, query ListQuery) ([]*model.InsulinLog, error)
	DeleteInsulinLog(ctx context.Context, userID, id string) error

	CreateCarbLog(ctx context.Context, userID string, params CreateCarbParams) (*model.CarbLog, error)
	ListCarbLogs(ctx context.Context, userID string, query ListQuery) ([]*model.CarbLog, error)
	DeleteCarbLog(ctx context.Context, userID, id string) error
}

type CreateReadingParams struct {
	Value     float64
	Timestamp *time.Time
	SensorID  string
}

type CreateInsulinParams struct {
	Amount    float64
	Type      model.InsulinType
	Timestamp *time.Time
	Notes     string
}

type CreateCarbParams struct {
	Amount    float64
	MealType  model.MealType
	Timestamp *time.Time
	Notes     string
}

// ListQuery bounds a list request. A zero Limit uses the repository default.
type ListQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int64
}

type logbookUsecase struct {
	logger      *zerolog.Logger
	logbookRepo repository.LogbookRepository
	sensorRepo  repository.SensorRepository
	now         func() time.Time
}

func NewLogbookUsecase(
	logger *zerolog.Logger,
	logbookRepo repository.LogbookRepository,
	sensorRepo repository.SensorRepository,
) LogbookUsecase {
	return &logbookUsecase{
		logger:      logger,
		logbookRepo: logbookRepo,
		sensorRepo:  sensorRepo,
		now:         time.Now,
	}
}

func (u *logbookUsecase) CreateReading(
	ctx context.Context,
	userID string,
	params CreateReadingParams,
) (*model.GlucoseReading, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	reading := &model.GlucoseReading{
		UserID:    uid,
		Value:     params.Value,
		Timestamp: u.timestampOrNow(params.Timestamp),
		Status:    model.StatusFor(params.Value),
	}

	if params.SensorID != "" {
		sensorID, err := parseID(params.SensorID)
		if err != nil {
			return nil, err
		}
		if _, err := u.sensorRepo.GetSensor(ctx, uid, sensorID); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrSensorNotFound
			}
			return nil, err
		}
		reading.SensorID = &sensorID
	}

	created, err := u.logbookRepo.CreateReading(ctx, reading)
	if err != nil {
		return nil, err
	}

	u.logger.Debug().
		Str("user_id", userID).
		Str("status", string(created.Status)).
		Msg("glucose reading recorded")

	return created, nil
}

func (u *logbookUsecase) ListReadings(
	ctx context.Context,
	userID string,
	query ListQuery,
) ([]*model.GlucoseReading, error) {
	params, err := listParams(userID, query)
	if err != nil {
		return nil, err
	}

	return u.logbookRepo.ListReadings(ctx, params)
}

func (u *logbookUsecase) LatestReading(ctx context.Context, userID string) (*model.GlucoseReading, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	reading, err := u.logbookRepo.LatestReading(ctx, uid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoReadings
		}
		return nil, err
	}

	return reading, nil
}

func (u *logbookUsecase) CreateInsulinLog(
	ctx context.Context,
	userID string,
	params CreateInsulinParams,
) (*model.InsulinLog, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	return u.logbookRepo.CreateInsulinLog(ctx, &model.InsulinLog{
		UserID:    uid,
		Amount:    params.Amount,
		Type:      params.Type,
		Timestamp: u.timestampOrNow(params.Timestamp),
		Notes:     params.Notes,
	})
}

func (u *logbookUsecase) ListInsulinLogs(
	ctx context.Context,
	userID string,
	query ListQuery,
) ([]*model.InsulinLog, error) {
	params, err := listParams(userID, query)
	if err != nil {
		return nil, err
	}

	return u.logbookRepo.ListInsulinLogs(ctx, params)
}

func (u *logbookUsecase) DeleteInsulinLog(ctx context.Context, userID, id string) error {
	uid, entryID, err := parseOwned(userID, id)
	if err != nil {
		return err
	}

	return entryNotFound(u.logbookRepo.DeleteInsulinLog(ctx, uid, entryID))
}

func (u *logbookUsecase) CreateCarbLog(
	ctx context.Context,
	userID string,
	params CreateCarbParams,
) (*model.CarbLog, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	return u.logbookRepo.CreateCarbLog(ctx, &model.CarbLog{
		UserID:    uid,
		Amount:    params.Amount,
		MealType:  params.MealType,
		Timestamp: u.timestampOrNow(params.Timestamp),
		Notes:     params.Notes,
	})
}

func (u *logbookUsecase) ListCarbLogs(ctx context.Context, userID string, query ListQuery) ([]*model.CarbLog, error) {
	params, err := listParams(userID, query)
	if err != nil {
		return nil, err
	}

	return u.logbookRepo.ListCarbLogs(ctx, params)
}

func (u *logbookUsecase) DeleteCarbLog(ctx context.Context, userID, id string) error {
	uid, entryID, err := parseOwned(userID, id)
	if err != nil {
		return err
	}

	return entryNotFound(u.logbookRepo.DeleteCarbLog(ctx, uid, entryID))
}

func (u *logbookUsecase) timestampOrNow(ts *time.Time) time.Time {
	if ts == nil || ts.IsZero() {
		return u.now().UTC()
	}
	return ts.UTC()
}

func listParams(userID string, query ListQuery) (repository.ListParams, error) {
	uid, err := parseID(userID)
	if err != nil {
		return repository.ListParams{}, err
	}

	if query.StartDate != nil && query.EndDate != nil && query.EndDate.Before(*query.StartDate) {
		return repository.ListParams{}, ErrInvalidDateRange
	}

	return repository.ListParams{
		UserID: uid,
		Start:  query.StartDate,
		End:    query.EndDate,
		Limit:  query.Limit,
	}, nil
}

func parseID(id string) (bson.ObjectID, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, ErrInvalidID
	}
	return objectID, nil
}

func parseOwned(userID, id string) (bson.ObjectID, bson.ObjectID, error) {
	uid, err := parseID(userID)
	if err != nil {
		return bson.NilObjectID, bson.NilObjectID, err
	}

	entryID, err := parseID(id)
	if err != nil {
		return bson.NilObjectID, bson.NilObjectID, err
	}

	return uid, entryID, nil
}

func entryNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrEntryNotFound
	}
	return err
}
