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
	channelsCollectionName = "channels"
	adminsCollectionName   = "channel_admins"
	bansCollectionName     = "banned_users"
)

// MongoAccessRepository implements AccessStore for MongoDB.
type MongoAccessRepository struct {
	channels *mongo.Collection
	admins   *mongo.Collection
	bans     *mongo.Collection
}

// NewMongoAccessRepository creates a new MongoDB access repository.
func NewMongoAccessRepository(db *mongo.Database) *MongoAccessRepository {
	return &MongoAccessRepository{
		channels: db.Collection(channelsCollectionName),
		admins:   db.Collection(adminsCollectionName),
		bans:     db.Collection(bansCollectionName),
	}
}

// AddChannel registers a channel, keeping the existing record if present.
func (r *MongoAccessRepository) AddChannel(ctx context.Context, ch *models.Channel) error {
	if ch.AddedAt.IsZero() {
		ch.AddedAt = time.Now()
	}
	_, err := r.channels.UpdateOne(ctx,
		bson.M{"channel_id": ch.ChannelID},
		bson.M{"$setOnInsert": bson.M{
			"title":    ch.Title,
			"added_by": ch.AddedBy,
			"added_at": ch.AddedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return wrapStoreErr("add channel", err)
}

// ListChannels returns every registered channel.
func (r *MongoAccessRepository) ListChannels(ctx context.Context) ([]models.Channel, error) {
	cursor, err := r.channels.Find(ctx, bson.M{})
	if err != nil {
		return nil, wrapStoreErr("find channels", err)
	}
	defer cursor.Close(ctx)

	var channels []models.Channel
	if err = cursor.All(ctx, &channels); err != nil {
		return nil, wrapStoreErr("decode channels", err)
	}
	return channels, nil
}

// IsChannelCreator reports whether the user originally registered the channel.
func (r *MongoAccessRepository) IsChannelCreator(ctx context.Context, userID, channelID int64) (bool, error) {
	err := r.channels.FindOne(ctx, bson.M{"channel_id": channelID, "added_by": userID}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, wrapStoreErr("find channel creator", err)
	}
	return true, nil
}

// ReplaceChannelAdmins swaps the channel's admin list for the given one.
func (r *MongoAccessRepository) ReplaceChannelAdmins(ctx context.Context, channelID int64, admins []models.ChannelAdmin) error {
	if _, err := r.admins.DeleteMany(ctx, bson.M{"channel_id": channelID}); err != nil {
		return wrapStoreErr("clear channel admins", err)
	}
	if len(admins) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(admins))
	now := time.Now()
	for _, admin := range admins {
		admin.ChannelID = channelID
		if admin.UpdatedAt.IsZero() {
			admin.UpdatedAt = now
		}
		docs = append(docs, admin)
	}
	_, err := r.admins.InsertMany(ctx, docs)
	return wrapStoreErr("insert channel admins", err)
}

// IsAdmin reports whether the user administers the channel. Authorization
// checks must call this at decision time, not trust earlier lookups.
func (r *MongoAccessRepository) IsAdmin(ctx context.Context, userID, channelID int64) (bool, error) {
	err := r.admins.FindOne(ctx, bson.M{"user_id": userID, "channel_id": channelID}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, wrapStoreErr("find channel admin", err)
	}
	return true, nil
}

// ListAdminChannels returns the channels a user administers.
func (r *MongoAccessRepository) ListAdminChannels(ctx context.Context, userID int64) ([]int64, error) {
	cursor, err := r.admins.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, wrapStoreErr("find admin channels", err)
	}
	defer cursor.Close(ctx)

	var rows []models.ChannelAdmin
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, wrapStoreErr("decode admin channels", err)
	}
	channelIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		channelIDs = append(channelIDs, row.ChannelID)
	}
	return channelIDs, nil
}

// IsBanned reports whether the submitter is banned in the channel.
func (r *MongoAccessRepository) IsBanned(ctx context.Context, userID, channelID int64) (bool, error) {
	err := r.bans.FindOne(ctx, bson.M{"user_id": userID, "channel_id": channelID}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, wrapStoreErr("find ban", err)
	}
	return true, nil
}

// Ban records a per-channel submitter ban; re-banning is a no-op.
func (r *MongoAccessRepository) Ban(ctx context.Context, ban *models.BannedUser) error {
	if ban.BannedAt.IsZero() {
		ban.BannedAt = time.Now()
	}
	_, err := r.bans.UpdateOne(ctx,
		bson.M{"user_id": ban.UserID, "channel_id": ban.ChannelID},
		bson.M{"$setOnInsert": bson.M{
			"username":  ban.Username,
			"banned_by": ban.BannedBy,
			"banned_at": ban.BannedAt,
		}},
		options.Update().SetUpsert(true),
	)
	return wrapStoreErr("ban user", err)
}

// Unban lifts a per-channel ban.
func (r *MongoAccessRepository) Unban(ctx context.Context, userID, channelID int64) error {
	_, err := r.bans.DeleteOne(ctx, bson.M{"user_id": userID, "channel_id": channelID})
	return wrapStoreErr("unban user", err)
}

// ListBanned returns the channel's ban list, most recent first.
func (r *MongoAccessRepository) ListBanned(ctx context.Context, channelID int64) ([]models.BannedUser, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "banned_at", Value: -1}})
	cursor, err := r.bans.Find(ctx, bson.M{"channel_id": channelID}, findOptions)
	if err != nil {
		return nil, wrapStoreErr("find banned users", err)
	}
	defer cursor.Close(ctx)

	var banned []models.BannedUser
	if err = cursor.All(ctx, &banned); err != nil {
		return nil, wrapStoreErr("decode banned users", err)
	}
	return banned, nil
}
