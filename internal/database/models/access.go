package models

import "time"

// Channel is a broadcast channel registered for moderation.
type Channel struct {
	ChannelID int64     `bson:"channel_id"`
	Title     string    `bson:"title,omitempty"`
	AddedBy   int64     `bson:"added_by"`
	AddedAt   time.Time `bson:"added_at"`
}

// ChannelAdmin maps an administrator to a channel they moderate.
type ChannelAdmin struct {
	ChannelID int64     `bson:"channel_id"`
	UserID    int64     `bson:"user_id"`
	Username  string    `bson:"username,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// BannedUser records a per-channel submitter ban.
type BannedUser struct {
	UserID    int64     `bson:"user_id"`
	ChannelID int64     `bson:"channel_id"`
	Username  string    `bson:"username,omitempty"`
	BannedBy  int64     `bson:"banned_by"`
	BannedAt  time.Time `bson:"banned_at"`
}
