package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
)

// SensorRepository defines the interface for sensor registration storage.
type SensorRepository interface {
	CreateSensor(ctx context.Context, sensor *model.Sensor) (*model.Sensor, error)
	GetSensorBySerial(ctx context.Context, serialNumber string) (*model.Sensor, error)
	GetSensor(ctx context.Context, userID, id bson.ObjectID) (*model.Sensor, error)
	ListActiveSensors(ctx context.Context, userID bson.ObjectID) ([]*model.Sensor, error)
	DeactivateSensor(ctx context.Context, userID, id bson.ObjectID) (*model.Sensor, error)
	EnsureIndexes(ctx context.Context) error
}

const sensorCollection = "sensors"

type sensorMongoRepository struct {
	db *mongo.Database
}

func NewSensorMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) SensorRepository {
	repo := &sensorMongoRepository{db: db}

	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create sensor indexes")
	}

	return repo
}

func (r *sensorMongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serial_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_active", Value: 1}},
		},
	}

	_, err := r.db.Collection(sensorCollection).Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *sensorMongoRepository) CreateSensor(ctx context.Context, sensor *model.Sensor) (*model.Sensor, error) {
	now := time.Now()
	sensor.CreatedAt = now
	sensor.UpdatedAt = now

	result, err := r.db.Collection(sensorCollection).InsertOne(ctx, sensor)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		sensor.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return sensor, nil
}

func (r *sensorMongoRepository) GetSensorBySerial(ctx context.Context, serialNumber string) (*model.Sensor, error) {
	var sensor model.Sensor
	err := r.db.Collection(sensorCollection).FindOne(ctx, bson.M{"serial_number": serialNumber}).Decode(&sensor)
	if err != nil {
		return nil, err
	}

	return &sensor, nil
}

func (r *sensorMongoRepository) GetSensor(ctx context.Context, userID, id bson.ObjectID) (*model.Sensor, error) {
	var sensor model.Sensor
	err := r.db.Collection(sensorCollection).FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&sensor)
	if err != nil {
		return nil, err
	}

	return &sensor, nil
}

func (r *sensorMongoRepository) ListActiveSensors(ctx context.Context, userID bson.ObjectID) ([]*model.Sensor, error) {
	cursor, err := r.db.Collection(sensorCollection).Find(
		ctx,
		bson.M{"user_id": userID, "is_active": true},
		options.Find().SetSort(bson.D{{Key: "activated_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sensors := make([]*model.Sensor, 0)
	if err := cursor.All(ctx, &sensors); err != nil {
		return nil, err
	}

	return sensors, nil
}

func (r *sensorMongoRepository) DeactivateSensor(ctx context.Context, userID, id bson.ObjectID) (*model.Sensor, error) {
	result := r.db.Collection(sensorCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var sensor model.Sensor
	if err := result.Decode(&sensor); err != nil {
		return nil, err
	}

	return &sensor, nil
}
