package models

import "time"

// Aggressiveness tiers for adaptive pacing. Wider spacing = more conservative.
const (
	AggressivenessConservative = "conservative"
	AggressivenessModerate     = "moderate"
	AggressivenessAggressive   = "aggressive"
)

// ChannelSettings holds the per-channel moderation and pacing configuration.
// Singleton per channel. LastPostTime is mutated only by a successful publish.
type ChannelSettings struct {
	ChannelID         int64      `bson:"channel_id"`
	IntervalMinutes   int        `bson:"interval_minutes"`
	MaxPostsPerDay    int        `bson:"max_posts_per_day"`
	RequireCaption    bool       `bson:"require_caption"`
	SpamFilterEnabled bool       `bson:"spam_filter_enabled"`
	AllowGlobal       bool       `bson:"allow_global"`
	SmartMode         bool       `bson:"smart_mode"`
	Aggressiveness    string     `bson:"aggressiveness,omitempty"`
	LastPostTime      *time.Time `bson:"last_post_time,omitempty"`
}

// DefaultChannelSettings returns the settings used for a channel that has no
// stored settings document yet.
func DefaultChannelSettings(channelID int64) *ChannelSettings {
	return &ChannelSettings{
		ChannelID:         channelID,
		IntervalMinutes:   0,
		MaxPostsPerDay:    0,
		RequireCaption:    false,
		SpamFilterEnabled: true,
		AllowGlobal:       true,
		SmartMode:         false,
		Aggressiveness:    AggressivenessModerate,
	}
}
