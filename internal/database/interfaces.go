package database

import (
	"context"
	"errors"
	"time"

	"memehub-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrStoreUnavailable marks failures of the underlying store. Treated as
	// fatal for the current operation, never silently swallowed.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrAlreadyPublished is returned when a published record for the same
	// post already exists.
	ErrAlreadyPublished = errors.New("post already published")
	// ErrPostNotFound is returned when a pending post cannot be found by ID.
	ErrPostNotFound = errors.New("post not found")
)

// PostStore is the durable record of pending, scheduled and published posts.
// The Remove*IfPresent operations are conditional: their boolean result is
// the sole signal that the caller won the race for the post.
type PostStore interface {
	InsertPending(ctx context.Context, post *models.PendingPost) error
	ListPending(ctx context.Context, channelID int64) ([]models.PendingPost, error)
	CountPending(ctx context.Context, channelID int64) (int64, error)
	GetPendingByID(ctx context.Context, id primitive.ObjectID) (*models.PendingPost, error)
	RemovePendingIfPresent(ctx context.Context, id primitive.ObjectID) (bool, error)

	InsertScheduled(ctx context.Context, post *models.ScheduledPost) error
	ListScheduledByChannel(ctx context.Context, channelID int64) ([]models.ScheduledPost, error)
	ListDueScheduled(ctx context.Context, now time.Time) ([]models.ScheduledPost, error)
	RemoveScheduledIfPresent(ctx context.Context, id primitive.ObjectID) (bool, error)

	// InsertPublished creates the one-time published record. It returns
	// ErrAlreadyPublished when a record with the same post ID exists.
	InsertPublished(ctx context.Context, post *models.PublishedPost) error
	UpdateReactions(ctx context.Context, messageID int, reactions int) (bool, error)
	CountPublishedBySubmitter(ctx context.Context, submitterID int64) (int64, error)
	CountPublishedBySubmitterSince(ctx context.Context, submitterID int64, since time.Time) (int64, error)
	CountPublishedByChannelSince(ctx context.Context, channelID int64, since time.Time) (int64, error)
	Leaderboard(ctx context.Context, channelID int64, limit int) ([]models.LeaderboardEntry, error)
}

// SettingsStore reads and mutates per-channel settings.
type SettingsStore interface {
	// GetSettings returns stored settings or defaults when the channel has none.
	GetSettings(ctx context.Context, channelID int64) (*models.ChannelSettings, error)
	UpsertSetting(ctx context.Context, channelID int64, key string, value interface{}) error
	// ClaimPublishSlot advances last_post_time from prev to next only if it
	// still equals prev. A false result means another publisher won the slot.
	ClaimPublishSlot(ctx context.Context, channelID int64, prev *time.Time, next time.Time) (bool, error)
	// TouchLastPostTime moves last_post_time forward to at (never backwards).
	TouchLastPostTime(ctx context.Context, channelID int64, at time.Time) error
}

// AccessStore holds channel registrations, admin lists and ban lists.
type AccessStore interface {
	AddChannel(ctx context.Context, ch *models.Channel) error
	ListChannels(ctx context.Context) ([]models.Channel, error)
	IsChannelCreator(ctx context.Context, userID, channelID int64) (bool, error)

	ReplaceChannelAdmins(ctx context.Context, channelID int64, admins []models.ChannelAdmin) error
	IsAdmin(ctx context.Context, userID, channelID int64) (bool, error)
	ListAdminChannels(ctx context.Context, userID int64) ([]int64, error)

	IsBanned(ctx context.Context, userID, channelID int64) (bool, error)
	Ban(ctx context.Context, ban *models.BannedUser) error
	Unban(ctx context.Context, userID, channelID int64) error
	ListBanned(ctx context.Context, channelID int64) ([]models.BannedUser, error)
}

// AuditLogger appends and reads the per-channel audit trail.
type AuditLogger interface {
	AppendAudit(ctx context.Context, entry models.AuditEntry) error
	RecentAudit(ctx context.Context, channelID int64, limit int) ([]models.AuditEntry, error)
	CountAuditByAction(ctx context.Context, channelIDs []int64, action string) (int64, error)
}

// RewardStore persists reward grants and streaks.
type RewardStore interface {
	// GrantOnce inserts a grant under a deterministic key. It returns false
	// without error when an identical grant already exists.
	GrantOnce(ctx context.Context, grant *models.RewardGrant) (bool, error)
	GetStreak(ctx context.Context, userID int64) (*models.Streak, error)
	SaveStreak(ctx context.Context, streak *models.Streak) error
}
