package database

import (
	"context"
	"time"

	"memehub-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const auditCollectionName = "audit_log"

// MongoAuditRepository implements AuditLogger for MongoDB.
type MongoAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoAuditRepository creates a new MongoDB audit repository.
func NewMongoAuditRepository(db *mongo.Database) *MongoAuditRepository {
	return &MongoAuditRepository{
		collection: db.Collection(auditCollectionName),
	}
}

// AppendAudit writes one append-only audit trail entry.
func (r *MongoAuditRepository) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return wrapStoreErr("append audit entry", err)
}

// RecentAudit returns a channel's latest audit entries, newest first.
func (r *MongoAuditRepository) RecentAudit(ctx context.Context, channelID int64, limit int) ([]models.AuditEntry, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"channel_id": channelID}, findOptions)
	if err != nil {
		return nil, wrapStoreErr("find audit entries", err)
	}
	defer cursor.Close(ctx)

	var entries []models.AuditEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, wrapStoreErr("decode audit entries", err)
	}
	return entries, nil
}

// CountAuditByAction counts one action type across the given channels.
// An empty channel list counts globally.
func (r *MongoAuditRepository) CountAuditByAction(ctx context.Context, channelIDs []int64, action string) (int64, error) {
	filter := bson.M{"action": action}
	if len(channelIDs) > 0 {
		filter["channel_id"] = bson.M{"$in": channelIDs}
	}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrapStoreErr("count audit entries", err)
	}
	return count, nil
}
