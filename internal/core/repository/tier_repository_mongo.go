package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	database "github.com/duynhne/mining-service/internal/core"
	"github.com/duynhne/mining-service/internal/core/domain"
)

// MongoTierRepository implements domain.TierRepository on MongoDB.
type MongoTierRepository struct {
	coll *mongo.Collection
}

// NewMongoTierRepository creates a new MongoTierRepository.
func NewMongoTierRepository(db *mongo.Database) *MongoTierRepository {
	return &MongoTierRepository{coll: db.Collection(database.TiersCollection)}
}

func (r *MongoTierRepository) GetByName(ctx context.Context, name string) (*domain.Tier, error) {
	var doc tierDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Tier{
		Name:                   doc.Name,
		CoinsPerSecond:         doc.CoinsPerSecond,
		SessionDurationSeconds: doc.SessionDurationSeconds,
		DailyRewardCoins:       doc.DailyRewardCoins,
	}, nil
}

func (r *MongoTierRepository) Upsert(ctx context.Context, tier domain.Tier) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": tier.Name}, tierDocument{
		Name:                   tier.Name,
		CoinsPerSecond:         tier.CoinsPerSecond,
		SessionDurationSeconds: tier.SessionDurationSeconds,
		DailyRewardCoins:       tier.DailyRewardCoins,
	}, options.Replace().SetUpsert(true))
	return err
}
