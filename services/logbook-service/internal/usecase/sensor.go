package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/model"
	"github.com/vasapolrittideah/glucosense-api/services/logbook-service/internal/repository"
)

// SensorUsecase manages the glucose sensors a user has paired.
type SensorUsecase interface {
	RegisterSensor(ctx context.Context, userID string, params RegisterSensorParams) (*model.Sensor, error)
	ListActiveSensors(ctx context.Context, userID string) ([]*model.Sensor, error)
	GetSensor(ctx context.Context, userID, id string) (*model.Sensor, error)
	DeactivateSensor(ctx context.Context, userID, id string) (*model.Sensor, error)
}

type RegisterSensorParams struct {
	SerialNumber   string
	ConnectionCode string
}

type sensorUsecase struct {
	logger     *zerolog.Logger
	sensorRepo repository.SensorRepository
	now        func() time.Time
}

func NewSensorUsecase(logger *zerolog.Logger, sensorRepo repository.SensorRepository) SensorUsecase {
	return &sensorUsecase{
		logger:     logger,
		sensorRepo: sensorRepo,
		now:        time.Now,
	}
}

func (u *sensorUsecase) RegisterSensor(
	ctx context.Context,
	userID string,
	params RegisterSensorParams,
) (*model.Sensor, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	existing, err := u.sensorRepo.GetSensorBySerial(ctx, params.SerialNumber)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSensorAlreadyRegistered
	}

	sensor, err := u.sensorRepo.CreateSensor(ctx, &model.Sensor{
		UserID:         uid,
		SerialNumber:   params.SerialNumber,
		ConnectionCode: params.ConnectionCode,
		ActivatedAt:    u.now().UTC(),
		IsActive:       true,
	})
	if err != nil {
		// A concurrent registration of the same serial lost the unique index race.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrSensorAlreadyRegistered
		}
		return nil, err
	}

	u.logger.Info().Str("user_id", userID).Str("sensor_id", sensor.ID.Hex()).Msg("sensor registered")

	return sensor, nil
}

func (u *sensorUsecase) ListActiveSensors(ctx context.Context, userID string) ([]*model.Sensor, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	return u.sensorRepo.ListActiveSensors(ctx, uid)
}

func (u *sensorUsecase) GetSensor(ctx context.Context, userID, id string) (*model.Sensor, error) {
	uid, sensorID, err := parseOwned(userID, id)
	if err != nil {
		return nil, err
	}

	sensor, err := u.sensorRepo.GetSensor(ctx, uid, sensorID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSensorNotFound
		}
		return nil, err
	}

	return sensor, nil
}

func (u *sensorUsecase) DeactivateSensor(ctx context.Context, userID, id string) (*model.Sensor, error) {
	uid, sensorID, err := parseOwned(userID, id)
	if err != nil {
		return nil, err
	}

	sensor, err := u.sensorRepo.DeactivateSensor(ctx, uid, sensorID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSensorNotFound
		}
		return nil, err
	}

	u.logger.Info().Str("user_id", userID).Str("sensor_id", id).Msg("sensor deactivated")

	return sensor, nil
}
