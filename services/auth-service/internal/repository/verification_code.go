package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/glucosense-api/services/auth-service/internal/model"
)

// VerificationCodeRepository defines the interface for one-time code operations.
type VerificationCodeRepository interface {
	// CreateCode stores a new unused code.
	CreateCode(ctx context.Context, code *model.VerificationCode) (*model.VerificationCode, error)

	// FindLatestActive returns the newest unused, unexpired code for email
	// that matches code, or mongo.ErrNoDocuments.
	FindLatestActive(ctx context.Context, email, code string, now time.Time) (*model.VerificationCode, error)

	// InvalidateUnused marks every unused code for email as used.
	InvalidateUnused(ctx context.Context, email string) (int64, error)

	// MarkUsed redeems the code with id if it is still valid at now. It
	// reports false when another caller got there first.
	MarkUsed(ctx context.Context, id string, now time.Time) (bool, error)

	// IncrementAttempts records a failed guess against the newest unused,
	// unexpired code for email.
	IncrementAttempts(ctx context.Context, email string, now time.Time) error

	EnsureIndexes(ctx context.Context) error
}

const verificationCodeCollection = "verification_codes"

type verificationCodeMongoRepository struct {
	db        *mongo.Database
	retention time.Duration
}

// NewVerificationCodeMongoRepository creates a new MongoDB repository for
// verification codes. Codes are removed by the server once expired or once
// older than retention.
func NewVerificationCodeMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
	retention time.Duration,
) VerificationCodeRepository {
	repo := &verificationCodeMongoRepository{db: db, retention: retention}

	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create verification code indexes")
	}

	return repo
}

func (r *verificationCodeMongoRepository) EnsureIndexes(ctx context.Context) error {
	retention := r.retention
	if retention <= 0 {
		retention = 10 * time.Minute
	}

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "email", Value: 1},
				{Key: "used", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		},
	}

	_, err := r.db.Collection(verificationCodeCollection).Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *verificationCodeMongoRepository) CreateCode(
	ctx context.Context,
	code *model.VerificationCode,
) (*model.VerificationCode, error) {
	code.CreatedAt = time.Now()
	code.Used = false
	code.Attempts = 0

	result, err := r.db.Collection(verificationCodeCollection).InsertOne(ctx, code)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		code.ID = objectID
	}

	return code, nil
}

func (r *verificationCodeMongoRepository) FindLatestActive(
	ctx context.Context,
	email, code string,
	now time.Time,
) (*model.VerificationCode, error) {
	filter := bson.M{
		"email":      email,
		"code":       code,
		"used":       false,
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var record model.VerificationCode
	if err := r.db.Collection(verificationCodeCollection).FindOne(ctx, filter, opts).Decode(&record); err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *verificationCodeMongoRepository) InvalidateUnused(ctx context.Context, email string) (int64, error) {
	filter := bson.M{
		"email": email,
		"used":  false,
	}
	update := bson.M{"$set": bson.M{"used": true}}

	result, err := r.db.Collection(verificationCodeCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}

func (r *verificationCodeMongoRepository) MarkUsed(ctx context.Context, id string, now time.Time) (bool, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}

	filter := bson.M{
		"_id":        objectID,
		"used":       false,
		"attempts":   bson.M{"$lt": model.MaxCodeAttempts},
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"used": true}}

	result, err := r.db.Collection(verificationCodeCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}

	return result.ModifiedCount == 1, nil
}

func (r *verificationCodeMongoRepository) IncrementAttempts(ctx context.Context, email string, now time.Time) error {
	filter := bson.M{
		"email":      email,
		"used":       false,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$inc": bson.M{"attempts": 1}}
	opts := options.FindOneAndUpdate().SetSort(bson.D{{Key: "created_at", Value: -1}})

	err := r.db.Collection(verificationCodeCollection).FindOneAndUpdate(ctx, filter, update, opts).Err()

	return ignoreNoDocuments(err)
}

// ignoreNoDocuments treats a missing document as success.
func ignoreNoDocuments(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}
