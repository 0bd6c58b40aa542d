package database

import (
	"context"
	"time"

	"memehub-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settingsCollectionName = "channel_settings"

// Settings keys accepted by UpsertSetting.
const (
	SettingIntervalMinutes = "interval_minutes"
	SettingMaxPostsPerDay  = "max_posts_per_day"
	SettingRequireCaption  = "require_caption"
	SettingSpamFilter      = "spam_filter_enabled"
	SettingAllowGlobal     = "allow_global"
	SettingSmartMode       = "smart_mode"
	SettingAggressiveness  = "aggressiveness"
)

// MongoSettingsRepository implements SettingsStore for MongoDB.
type MongoSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoSettingsRepository creates a new MongoDB settings repository.
func NewMongoSettingsRepository(db *mongo.Database) *MongoSettingsRepository {
	return &MongoSettingsRepository{
		collection: db.Collection(settingsCollectionName),
	}
}

// GetSettings returns the channel's settings document, or defaults when the
// channel has never been configured.
func (r *MongoSettingsRepository) GetSettings(ctx context.Context, channelID int64) (*models.ChannelSettings, error) {
	var settings models.ChannelSettings
	err := r.collection.FindOne(ctx, bson.M{"channel_id": channelID}).Decode(&settings)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.DefaultChannelSettings(channelID), nil
		}
		return nil, wrapStoreErr("find channel settings", err)
	}
	if settings.Aggressiveness == "" {
		settings.Aggressiveness = models.AggressivenessModerate
	}
	return &settings, nil
}

// UpsertSetting sets a single settings field, creating the document with
// defaults on first write.
func (r *MongoSettingsRepository) UpsertSetting(ctx context.Context, channelID int64, key string, value interface{}) error {
	defaults := models.DefaultChannelSettings(channelID)
	// Seed untouched fields with their defaults so a later read is complete.
	// channel_id itself comes from the filter on upsert.
	setOnInsert := bson.M{}
	if key != SettingSpamFilter {
		setOnInsert[SettingSpamFilter] = defaults.SpamFilterEnabled
	}
	if key != SettingAllowGlobal {
		setOnInsert[SettingAllowGlobal] = defaults.AllowGlobal
	}
	if key != SettingAggressiveness {
		setOnInsert[SettingAggressiveness] = defaults.Aggressiveness
	}

	update := bson.M{
		"$set":         bson.M{key: value},
		"$setOnInsert": setOnInsert,
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"channel_id": channelID},
		update,
		options.Update().SetUpsert(true),
	)
	return wrapStoreErr("upsert channel setting", err)
}

// ClaimPublishSlot compares-and-swaps last_post_time. The filter matches only
// when the stored value still equals prev, so of two near-simultaneous
// immediate publishes exactly one claim succeeds.
func (r *MongoSettingsRepository) ClaimPublishSlot(ctx context.Context, channelID int64, prev *time.Time, next time.Time) (bool, error) {
	filter := bson.M{"channel_id": channelID}
	if prev == nil {
		filter["last_post_time"] = bson.M{"$exists": false}
	} else {
		filter["last_post_time"] = *prev
	}

	update := bson.M{"$set": bson.M{"last_post_time": next}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, wrapStoreErr("claim publish slot", err)
	}
	if result.MatchedCount == 1 {
		return true, nil
	}

	// A channel without a settings document has no last_post_time either:
	// first publish creates the document and wins the slot. If a document
	// already exists, a concurrent claimant set last_post_time between our
	// update and now, and inserting would shadow the real settings.
	if prev == nil {
		findErr := r.collection.FindOne(ctx, bson.M{"channel_id": channelID}).Err()
		if findErr == nil {
			return false, nil
		}
		if findErr != mongo.ErrNoDocuments {
			return false, wrapStoreErr("claim publish slot", findErr)
		}
		return r.tryInsertSlot(ctx, channelID, next)
	}
	return false, nil
}

func (r *MongoSettingsRepository) tryInsertSlot(ctx context.Context, channelID int64, next time.Time) (bool, error) {
	defaults := models.DefaultChannelSettings(channelID)
	defaults.LastPostTime = &next
	_, err := r.collection.InsertOne(ctx, defaults)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, wrapStoreErr("insert channel settings", err)
	}
	return true, nil
}

// TouchLastPostTime moves last_post_time forward to at; $max keeps it monotonic
// under concurrent publishers.
func (r *MongoSettingsRepository) TouchLastPostTime(ctx context.Context, channelID int64, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"channel_id": channelID},
		bson.M{"$max": bson.M{"last_post_time": at}},
		options.Update().SetUpsert(true),
	)
	return wrapStoreErr("touch last post time", err)
}
