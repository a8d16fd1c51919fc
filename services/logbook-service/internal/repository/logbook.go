package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
)

// ReadingRepository defines the interface for glucose reading storage.
type ReadingRepository interface {
	CreateReading(ctx context.Context, reading *model.GlucoseReading) (*model.GlucoseReading, error)
	ListReadings(ctx context.Context, params ListParams) ([]*model.GlucoseReading, error)
	LatestReading(ctx context.Context, userID bson.ObjectID) (*model.GlucoseReading, error)
}

// InsulinRepository defines the interface for insulin log storage.
type InsulinRepository interface {
	CreateInsulinLog(ctx context.Context, log *model.InsulinLog) (*model.InsulinLog, error)
	ListInsulinLogs(ctx context.Context, params ListParams) ([]*model.InsulinLog, error)
	DeleteInsulinLog(ctx context.Context, userID, id bson.ObjectID) error
}

// CarbRepository defines the interface for carbohydrate log storage.
type CarbRepository interface {
	CreateCarbLog(ctx context.Context, log *model.CarbLog) (*model.CarbLog, error)
	ListCarbLogs(ctx context.Context, params ListParams) ([]*model.CarbLog, error)
	DeleteCarbLog(ctx context.Context, userID, id bson.ObjectID) error
}

const (
	readingCollection = "glucose_readings"
	insulinCollection = "insulin_logs"
	carbCollection    = "carb_logs"
)

type logbookMongoRepository struct {
	readings entryCollection[model.GlucoseReading]
	insulin  entryCollection[model.InsulinLog]
	carbs    entryCollection[model.CarbLog]
}

// LogbookRepository groups the time series repositories backed by one database.
type LogbookRepository interface {
	ReadingRepository
	InsulinRepository
	CarbRepository
	EnsureIndexes(ctx context.Context) error
}

func NewLogbookMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) LogbookRepository {
	repo := &logbookMongoRepository{
		readings: newEntryCollection[model.GlucoseReading](db, readingCollection),
		insulin:  newEntryCollection[model.InsulinLog](db, insulinCollection),
		carbs:    newEntryCollection[model.CarbLog](db, carbCollection),
	}

	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create logbook indexes")
	}

	return repo
}

func (r *logbookMongoRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.readings.ensureIndexes(ctx); err != nil {
		return err
	}
	if err := r.insulin.ensureIndexes(ctx); err != nil {
		return err
	}
	return r.carbs.ensureIndexes(ctx)
}

func (r *logbookMongoRepository) CreateReading(
	ctx context.Context,
	reading *model.GlucoseReading,
) (*model.GlucoseReading, error) {
	reading.CreatedAt = time.Now()

	id, err := r.readings.insert(ctx, reading)
	if err != nil {
		return nil, err
	}
	reading.ID = id

	return reading, nil
}

func (r *logbookMongoRepository) ListReadings(ctx context.Context, params ListParams) ([]*model.GlucoseReading, error) {
	return r.readings.list(ctx, params)
}

func (r *logbookMongoRepository) LatestReading(ctx context.Context, userID bson.ObjectID) (*model.GlucoseReading, error) {
	return r.readings.latest(ctx, userID)
}

func (r *logbookMongoRepository) CreateInsulinLog(ctx context.Context, log *model.InsulinLog) (*model.InsulinLog, error) {
	log.CreatedAt = time.Now()

	id, err := r.insulin.insert(ctx, log)
	if err != nil {
		return nil, err
	}
	log.ID = id

	return log, nil
}

func (r *logbookMongoRepository) ListInsulinLogs(ctx context.Context, params ListParams) ([]*model.InsulinLog, error) {
	return r.insulin.list(ctx, params)
}

func (r *logbookMongoRepository) DeleteInsulinLog(ctx context.Context, userID, id bson.ObjectID) error {
	return r.insulin.deleteOwned(ctx, userID, id)
}

func (r *logbookMongoRepository) CreateCarbLog(ctx context.Context, log *model.CarbLog) (*model.CarbLog, error) {
	log.CreatedAt = time.Now()

	id, err := r.carbs.insert(ctx, log)
	if err != nil {
		return nil, err
	}
	log.ID = id

	return log, nil
}

func (r *logbookMongoRepository) ListCarbLogs(ctx context.Context, params ListParams) ([]*model.CarbLog, error) {
	return r.carbs.list(ctx, params)
}

func (r *logbookMongoRepository) DeleteCarbLog(ctx context.Context, userID, id bson.ObjectID) error {
	return r.carbs.deleteOwned(ctx, userID, id)
}
