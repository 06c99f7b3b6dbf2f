package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	database "github.com/duynhne/mining-service/internal/core"
	"github.com/duynhne/mining-service/internal/core/domain"
)

// MongoUserRepository implements domain.UserRepository on a MongoDB
// collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(database.UsersCollection)}
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*domain.UserRow, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (*domain.UserRow, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.UserRow, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.UserRow, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toRow(), nil
}

func (r *MongoUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user domain.UserRow) error {
	_, err := r.coll.InsertOne(ctx, userDocument{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		MembershipTier: user.MembershipTier,
		CreatedAt:      user.CreatedAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateUser
	}
	return err
}

func (r *MongoUserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"last_login": at.UTC()},
	})
	return err
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.setOne(ctx, userID, bson.M{"password_hash": passwordHash})
}

func (r *MongoUserRepository) UpdateEmail(ctx context.Context, userID, email string) error {
	return r.setOne(ctx, userID, bson.M{"email": email})
}

func (r *MongoUserRepository) setOne(ctx context.Context, userID string, fields bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateUser
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
