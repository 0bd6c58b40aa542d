package database

import (
	"context"
	"time"

	"memehub-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	pendingCollectionName   = "pending_posts"
	scheduledCollectionName = "scheduled_posts"
	publishedCollectionName = "published_posts"
)

// MongoPostRepository implements PostStore for MongoDB.
type MongoPostRepository struct {
	pending   *mongo.Collection
	scheduled *mongo.Collection
	published *mongo.Collection
}

// NewMongoPostRepository creates a new MongoDB post repository.
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{
		pending:   db.Collection(pendingCollectionName),
		scheduled: db.Collection(scheduledCollectionName),
		published: db.Collection(publishedCollectionName),
	}
}

// InsertPending adds a new post to the pending moderation queue.
func (r *MongoPostRepository) InsertPending(ctx context.Context, post *models.PendingPost) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	_, err := r.pending.InsertOne(ctx, post)
	return wrapStoreErr("insert pending post", err)
}

// ListPending returns a channel's pending queue in creation-time order.
func (r *MongoPostRepository) ListPending(ctx context.Context, channelID int64) ([]models.PendingPost, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.pending.Find(ctx, bson.M{"channel_id": channelID}, findOptions)
	if err != nil {
		return nil, wrapStoreErr("find pending posts", err)
	}
	defer cursor.Close(ctx)

	var posts []models.PendingPost
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, wrapStoreErr("decode pending posts", err)
	}
	return posts, nil
}

// CountPending returns the size of a channel's pending queue.
func (r *MongoPostRepository) CountPending(ctx context.Context, channelID int64) (int64, error) {
	count, err := r.pending.CountDocuments(ctx, bson.M{"channel_id": channelID})
	if err != nil {
		return 0, wrapStoreErr("count pending posts", err)
	}
	return count, nil
}

// GetPendingByID returns a single pending post or ErrPostNotFound.
func (r *MongoPostRepository) GetPendingByID(ctx context.Context, id primitive.ObjectID) (*models.PendingPost, error) {
	var post models.PendingPost
	err := r.pending.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, wrapStoreErr("find pending post by id", err)
	}
	return &post, nil
}

// RemovePendingIfPresent deletes a pending post by ID. The boolean result is
// the sole signal that this caller claimed the post.
func (r *MongoPostRepository) RemovePendingIfPresent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.pending.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, wrapStoreErr("remove pending post", err)
	}
	return result.DeletedCount == 1, nil
}

// InsertScheduled adds a deferred post to the schedule.
func (r *MongoPostRepository) InsertScheduled(ctx context.Context, post *models.ScheduledPost) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	_, err := r.scheduled.InsertOne(ctx, post)
	return wrapStoreErr("insert scheduled post", err)
}

// ListScheduledByChannel returns a channel's scheduled posts in delivery order.
func (r *MongoPostRepository) ListScheduledByChannel(ctx context.Context, channelID int64) ([]models.ScheduledPost, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "scheduled_time", Value: 1}})
	cursor, err := r.scheduled.Find(ctx, bson.M{"channel_id": channelID}, findOptions)
	if err != nil {
		return nil, wrapStoreErr("find scheduled posts", err)
	}
	defer cursor.Close(ctx)

	var posts []models.ScheduledPost
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, wrapStoreErr("decode scheduled posts", err)
	}
	return posts, nil
}

// ListDueScheduled returns all posts due at or before now, globally, ordered
// by scheduled_time ascending.
func (r *MongoPostRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]models.ScheduledPost, error) {
	filter := bson.M{"scheduled_time": bson.M{"$lte": now}}
	findOptions := options.Find().SetSort(bson.D{{Key: "scheduled_time", Value: 1}})
	cursor, err := r.scheduled.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, wrapStoreErr("find due scheduled posts", err)
	}
	defer cursor.Close(ctx)

	var posts []models.ScheduledPost
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, wrapStoreErr("decode due scheduled posts", err)
	}
	return posts, nil
}

// RemoveScheduledIfPresent deletes a scheduled post by ID, reporting whether
// this caller removed it.
func (r *MongoPostRepository) RemoveScheduledIfPresent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.scheduled.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, wrapStoreErr("remove scheduled post", err)
	}
	return result.DeletedCount == 1, nil
}

// InsertPublished creates the one-time published record for a post. The
// record reuses the post's ID, so a duplicate insert maps to
// ErrAlreadyPublished instead of a second row.
func (r *MongoPostRepository) InsertPublished(ctx context.Context, post *models.PublishedPost) error {
	if post.PublishedAt.IsZero() {
		post.PublishedAt = time.Now()
	}
	_, err := r.published.InsertOne(ctx, post)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyPublished
		}
		return wrapStoreErr("insert published post", err)
	}
	return nil
}

// UpdateReactions sets the reaction count on a published post by channel message ID.
func (r *MongoPostRepository) UpdateReactions(ctx context.Context, messageID int, reactions int) (bool, error) {
	result, err := r.published.UpdateOne(ctx,
		bson.M{"message_id": messageID},
		bson.M{"$set": bson.M{"reactions": reactions}},
	)
	if err != nil {
		return false, wrapStoreErr("update reactions", err)
	}
	return result.MatchedCount == 1, nil
}

// CountPublishedBySubmitter returns a submitter's lifetime published count.
func (r *MongoPostRepository) CountPublishedBySubmitter(ctx context.Context, submitterID int64) (int64, error) {
	count, err := r.published.CountDocuments(ctx, bson.M{"submitter_id": submitterID})
	if err != nil {
		return 0, wrapStoreErr("count published posts", err)
	}
	return count, nil
}

// CountPublishedBySubmitterSince counts a submitter's posts published at or after since.
func (r *MongoPostRepository) CountPublishedBySubmitterSince(ctx context.Context, submitterID int64, since time.Time) (int64, error) {
	filter := bson.M{
		"submitter_id": submitterID,
		"published_at": bson.M{"$gte": since},
	}
	count, err := r.published.CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrapStoreErr("count published posts since", err)
	}
	return count, nil
}

// CountPublishedByChannelSince counts a channel's posts published at or after
// since. Feeds the daily publish cap.
func (r *MongoPostRepository) CountPublishedByChannelSince(ctx context.Context, channelID int64, since time.Time) (int64, error) {
	filter := bson.M{
		"channel_id":   channelID,
		"published_at": bson.M{"$gte": since},
	}
	count, err := r.published.CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrapStoreErr("count channel published since", err)
	}
	return count, nil
}

// Leaderboard aggregates published posts per submitter, ordered by total
// reactions then post count. channelID 0 means global.
func (r *MongoPostRepository) Leaderboard(ctx context.Context, channelID int64, limit int) ([]models.LeaderboardEntry, error) {
	match := bson.M{}
	if channelID != 0 {
		match["channel_id"] = channelID
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$submitter_id",
			"username":  bson.M{"$last": "$submitter_name"},
			"posts":     bson.M{"$sum": 1},
			"reactions": bson.M{"$sum": "$reactions"},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "reactions", Value: -1},
			{Key: "posts", Value: -1},
		}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.published.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapStoreErr("aggregate leaderboard", err)
	}
	defer cursor.Close(ctx)

	var entries []models.LeaderboardEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, wrapStoreErr("decode leaderboard", err)
	}
	return entries, nil
}
