package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	database "github.com/duynhne/mining-service/internal/core"
	"github.com/duynhne/mining-service/internal/core/domain"
)

// MongoMiningRepository implements domain.MiningRepository on MongoDB.
// Replacements are filtered on the version field; a single-document write
// is atomic, which makes the conditional replace a compare-and-swap.
type MongoMiningRepository struct {
	coll *mongo.Collection
}

// NewMongoMiningRepository creates a new MongoMiningRepository.
func NewMongoMiningRepository(db *mongo.Database) *MongoMiningRepository {
	return &MongoMiningRepository{coll: db.Collection(database.MiningCollection)}
}

func (r *MongoMiningRepository) Get(ctx context.Context, userID string) (*domain.MiningSession, error) {
	var doc miningDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toSession(), nil
}

func (r *MongoMiningRepository) Save(ctx context.Context, s *domain.MiningSession, expectedVersion int64) error {
	doc := newMiningDocument(s)

	if expectedVersion == 0 {
		_, err := r.coll.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrVersionConflict
		}
		return err
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": s.UserID, "version": expectedVersion}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}
