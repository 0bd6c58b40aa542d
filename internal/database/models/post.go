package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PendingPost is a submitted image awaiting an administrator decision for one channel.
type PendingPost struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ChannelID     int64              `bson:"channel_id"`
	SubmitterID   int64              `bson:"submitter_id"`
	SubmitterName string             `bson:"submitter_name,omitempty"`
	FileID        string             `bson:"file_id"` // Telegram photo file ID
	Caption       string             `bson:"caption,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
}

// ScheduledPost is an approved image whose delivery was deferred by pacing.
type ScheduledPost struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ChannelID     int64              `bson:"channel_id"`
	SubmitterID   int64              `bson:"submitter_id"`
	SubmitterName string             `bson:"submitter_name,omitempty"`
	FileID        string             `bson:"file_id"`
	Caption       string             `bson:"caption,omitempty"`
	ScheduledTime time.Time          `bson:"scheduled_time"`
	CreatedAt     time.Time          `bson:"created_at"`
}

// PublishedPost records a single successful delivery to a channel.
// Its ID reuses the pending/scheduled post ID, so inserting a second record
// for the same post fails with a duplicate key error.
type PublishedPost struct {
	ID            primitive.ObjectID `bson:"_id"`
	ChannelID     int64              `bson:"channel_id"`
	SubmitterID   int64              `bson:"submitter_id"`
	SubmitterName string             `bson:"submitter_name,omitempty"`
	MessageID     int                `bson:"message_id"`
	Reactions     int                `bson:"reactions"`
	PublishedAt   time.Time          `bson:"published_at"`
}

// LeaderboardEntry is an aggregated row over published posts.
type LeaderboardEntry struct {
	UserID    int64  `bson:"_id"`
	Username  string `bson:"username"`
	Posts     int64  `bson:"posts"`
	Reactions int64  `bson:"reactions"`
}
