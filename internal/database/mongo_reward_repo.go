package database

import (
	"context"
	"time"

	"memehub-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	grantsCollectionName  = "reward_grants"
	streaksCollectionName = "streaks"
)

// MongoRewardRepository implements RewardStore for MongoDB.
type MongoRewardRepository struct {
	grants  *mongo.Collection
	streaks *mongo.Collection
}

// NewMongoRewardRepository creates a new MongoDB reward repository.
func NewMongoRewardRepository(db *mongo.Database) *MongoRewardRepository {
	return &MongoRewardRepository{
		grants:  db.Collection(grantsCollectionName),
		streaks: db.Collection(streaksCollectionName),
	}
}

// GrantOnce inserts a grant under its deterministic key. A duplicate key
// means the reward was already granted; that is reported as (false, nil),
// which is what makes every reward step retry-safe.
func (r *MongoRewardRepository) GrantOnce(ctx context.Context, grant *models.RewardGrant) (bool, error) {
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = time.Now()
	}
	_, err := r.grants.InsertOne(ctx, grant)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, wrapStoreErr("insert reward grant", err)
	}
	return true, nil
}

// GetStreak returns the submitter's streak, or nil when none exists yet.
func (r *MongoRewardRepository) GetStreak(ctx context.Context, userID int64) (*models.Streak, error) {
	var streak models.Streak
	err := r.streaks.FindOne(ctx, bson.M{"_id": userID}).Decode(&streak)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, wrapStoreErr("find streak", err)
	}
	return &streak, nil
}

// SaveStreak upserts the submitter's streak document.
func (r *MongoRewardRepository) SaveStreak(ctx context.Context, streak *models.Streak) error {
	streak.UpdatedAt = time.Now()
	_, err := r.streaks.ReplaceOne(ctx,
		bson.M{"_id": streak.UserID},
		streak,
		options.Replace().SetUpsert(true),
	)
	return wrapStoreErr("save streak", err)
}
