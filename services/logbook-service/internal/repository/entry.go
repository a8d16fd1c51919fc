package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ListParams filters a user's time-stamped entries. Start and End are inclusive.
type ListParams struct {
	UserID bson.ObjectID
	Start  *time.Time
	End    *time.Time
	Limit  int64
}

func (p ListParams) filter() bson.M {
	filter := bson.M{"user_id": p.UserID}

	if p.Start != nil || p.End != nil {
		ts := bson.M{}
		if p.Start != nil {
			ts["$gte"] = *p.Start
		}
		if p.End != nil {
			ts["$lte"] = *p.End
		}
		filter["timestamp"] = ts
	}

	return filter
}

func (p ListParams) limit() int64 {
	switch {
	case p.Limit <= 0:
		return DefaultListLimit
	case p.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return p.Limit
	}
}

// entryCollection holds the queries shared by the per-user time series collections.
type entryCollection[T any] struct {
	coll *mongo.Collection
}

func newEntryCollection[T any](db *mongo.Database, name string) entryCollection[T] {
	return entryCollection[T]{coll: db.Collection(name)}
}

func (c entryCollection[T]) ensureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	return err
}

func (c entryCollection[T]) insert(ctx context.Context, doc *T) (bson.ObjectID, error) {
	result, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return bson.NilObjectID, err
	}

	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, errors.New("failed to convert inserted ID to ObjectID")
	}

	return objectID, nil
}

func (c entryCollection[T]) list(ctx context.Context, params ListParams) ([]*T, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(params.limit())

	cursor, err := c.coll.Find(ctx, params.filter(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := make([]*T, 0)
	for cursor.Next(ctx) {
		var entry T
		if err := cursor.Decode(&entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (c entryCollection[T]) latest(ctx context.Context, userID bson.ObjectID) (*T, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var entry T
	if err := c.coll.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// deleteOwned removes the entry only if it belongs to userID.
func (c entryCollection[T]) deleteOwned(ctx context.Context, userID, id bson.ObjectID) error {
	result, err := c.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}
