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

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, params UpdateUserParams) (*model.User, error)
	EnsureIndexes(ctx context.Context) error
}

// UpdateUserParams defines the optional parameters for updating a user.
// Only the fields that are not nil will be updated.
type UpdateUserParams struct {
	Email         *string
	PasswordHash  *string
	AuthProvider  *model.AuthProvider
	FirebaseUID   *string
	EmailVerified *bool
	FirstName     *string
	LastName      *string
	DateOfBirth   *time.Time
	ProfilePhoto  *string
	Language      *model.Language
}

// IsEmpty reports whether params would change nothing.
func (p UpdateUserParams) IsEmpty() bool {
	return len(p.setDocument()) == 0
}

func (p UpdateUserParams) setDocument() bson.M {
	set := bson.M{}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.PasswordHash != nil {
		set["password_hash"] = *p.PasswordHash
	}
	if p.AuthProvider != nil {
		set["auth_provider"] = *p.AuthProvider
	}
	if p.FirebaseUID != nil {
		set["firebase_uid"] = *p.FirebaseUID
	}
	if p.EmailVerified != nil {
		set["email_verified"] = *p.EmailVerified
	}
	if p.FirstName != nil {
		set["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		set["last_name"] = *p.LastName
	}
	if p.DateOfBirth != nil {
		set["date_of_birth"] = *p.DateOfBirth
	}
	if p.ProfilePhoto != nil {
		set["profile_photo"] = *p.ProfilePhoto
	}
	if p.Language != nil {
		set["language"] = *p.Language
	}
	return set
}

var ErrNoFieldsToUpdate = errors.New("no user fields to update")

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	repo := &userMongoRepository{db: db}

	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return repo
}

func (r *userMongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "firebase_uid", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}, {Key: "auth_provider", Value: 1}},
		},
	}

	_, err := r.db.Collection(userCollection).Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		user.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) GetUserByFirebaseUID(ctx context.Context, uid string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": uid})
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.db.Collection(userCollection).FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userMongoRepository) UpdateUser(
	ctx context.Context,
	id string,
	params UpdateUserParams,
) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	set := params.setDocument()
	if len(set) == 0 {
		return nil, ErrNoFieldsToUpdate
	}
	set["updated_at"] = time.Now()

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
