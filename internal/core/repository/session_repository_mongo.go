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

// MongoSessionRepository implements domain.SessionRepository on MongoDB.
type MongoSessionRepository struct {
	sessions *mongo.Collection
	users    *mongo.Collection
}

// NewMongoSessionRepository creates a new MongoSessionRepository.
func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{
		sessions: db.Collection(database.SessionsCollection),
		users:    db.Collection(database.UsersCollection),
	}
}

func (r *MongoSessionRepository) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.sessions.InsertOne(ctx, sessionDocument{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// GetUserByToken resolves the token and then its owner. A session whose
// user was deleted is reported as not found.
func (r *MongoSessionRepository) GetUserByToken(ctx context.Context, token string) (*domain.SessionRow, error) {
	var sess sessionDocument
	if err := r.sessions.FindOne(ctx, bson.M{"_id": token}).Decode(&sess); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	var user userDocument
	if err := r.users.FindOne(ctx, bson.M{"_id": sess.UserID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return &domain.SessionRow{
		UserID:         user.ID,
		Username:       user.Username,
		Email:          user.Email,
		MembershipTier: user.MembershipTier,
		ExpiresAt:      sess.ExpiresAt,
	}, nil
}

func (r *MongoSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
