package moderation

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database/models"
	"memehub-bot/internal/pacing"
)

// --- PostStore ---

type MockPostStore struct {
	mock.Mock
}

func (m *MockPostStore) InsertPending(ctx context.Context, post *models.PendingPost) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostStore) ListPending(ctx context.Context, channelID int64) ([]models.PendingPost, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).([]models.PendingPost), args.Error(1)
}

func (m *MockPostStore) CountPending(ctx context.Context, channelID int64) (int64, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostStore) GetPendingByID(ctx context.Context, id primitive.ObjectID) (*models.PendingPost, error) {
	args := m.Called(ctx, id)
	if post, ok := args.Get(0).(*models.PendingPost); ok {
		return post, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPostStore) RemovePendingIfPresent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostStore) InsertScheduled(ctx context.Context, post *models.ScheduledPost) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostStore) ListScheduledByChannel(ctx context.Context, channelID int64) ([]models.ScheduledPost, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).([]models.ScheduledPost), args.Error(1)
}

func (m *MockPostStore) ListDueScheduled(ctx context.Context, now time.Time) ([]models.ScheduledPost, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]models.ScheduledPost), args.Error(1)
}

func (m *MockPostStore) RemoveScheduledIfPresent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostStore) InsertPublished(ctx context.Context, post *models.PublishedPost) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockPostStore) UpdateReactions(ctx context.Context, messageID int, reactions int) (bool, error) {
	args := m.Called(ctx, messageID, reactions)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostStore) CountPublishedBySubmitter(ctx context.Context, submitterID int64) (int64, error) {
	args := m.Called(ctx, submitterID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostStore) CountPublishedBySubmitterSince(ctx context.Context, submitterID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, submitterID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostStore) CountPublishedByChannelSince(ctx context.Context, channelID int64, since time.Time) (int64, error) {
	args := m.Called(ctx, channelID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostStore) Leaderboard(ctx context.Context, channelID int64, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, channelID, limit)
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

// --- SettingsStore ---

type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) GetSettings(ctx context.Context, channelID int64) (*models.ChannelSettings, error) {
	args := m.Called(ctx, channelID)
	if settings, ok := args.Get(0).(*models.ChannelSettings); ok {
		return settings, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSettingsStore) UpsertSetting(ctx context.Context, channelID int64, key string, value interface{}) error {
	return m.Called(ctx, channelID, key, value).Error(0)
}

func (m *MockSettingsStore) ClaimPublishSlot(ctx context.Context, channelID int64, prev *time.Time, next time.Time) (bool, error) {
	args := m.Called(ctx, channelID, prev, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettingsStore) TouchLastPostTime(ctx context.Context, channelID int64, at time.Time) error {
	return m.Called(ctx, channelID, at).Error(0)
}

// --- AccessStore ---

type MockAccessStore struct {
	mock.Mock
}

func (m *MockAccessStore) AddChannel(ctx context.Context, ch *models.Channel) error {
	return m.Called(ctx, ch).Error(0)
}

func (m *MockAccessStore) ListChannels(ctx context.Context) ([]models.Channel, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Channel), args.Error(1)
}

func (m *MockAccessStore) IsChannelCreator(ctx context.Context, userID, channelID int64) (bool, error) {
	args := m.Called(ctx, userID, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessStore) ReplaceChannelAdmins(ctx context.Context, channelID int64, admins []models.ChannelAdmin) error {
	return m.Called(ctx, channelID, admins).Error(0)
}

func (m *MockAccessStore) IsAdmin(ctx context.Context, userID, channelID int64) (bool, error) {
	args := m.Called(ctx, userID, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessStore) ListAdminChannels(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAccessStore) IsBanned(ctx context.Context, userID, channelID int64) (bool, error) {
	args := m.Called(ctx, userID, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessStore) Ban(ctx context.Context, ban *models.BannedUser) error {
	return m.Called(ctx, ban).Error(0)
}

func (m *MockAccessStore) Unban(ctx context.Context, userID, channelID int64) error {
	return m.Called(ctx, userID, channelID).Error(0)
}

func (m *MockAccessStore) ListBanned(ctx context.Context, channelID int64) ([]models.BannedUser, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).([]models.BannedUser), args.Error(1)
}

// --- AuditLogger ---

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) AppendAudit(ctx context.Context, entry models.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditLogger) RecentAudit(ctx context.Context, channelID int64, limit int) ([]models.AuditEntry, error) {
	args := m.Called(ctx, channelID, limit)
	return args.Get(0).([]models.AuditEntry), args.Error(1)
}

func (m *MockAuditLogger) CountAuditByAction(ctx context.Context, channelIDs []int64, action string) (int64, error) {
	args := m.Called(ctx, channelIDs, action)
	return args.Get(0).(int64), args.Error(1)
}

// --- Notifier ---

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, channelID int64, fileID, caption string) (int, error) {
	args := m.Called(ctx, channelID, fileID, caption)
	return args.Int(0), args.Error(1)
}

func (m *MockNotifier) Notify(ctx context.Context, userID int64, text string) error {
	return m.Called(ctx, userID, text).Error(0)
}

func (m *MockNotifier) ResolveDisplayName(ctx context.Context, chatID int64) string {
	return m.Called(ctx, chatID).String(0)
}

// --- Small collaborators ---

type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) IsAuthorized(ctx context.Context, userID, channelID int64) (bool, error) {
	args := m.Called(ctx, userID, channelID)
	return args.Bool(0), args.Error(1)
}

type MockPacer struct {
	mock.Mock
}

func (m *MockPacer) Decide(ctx context.Context, channelID int64, now time.Time) (pacing.Decision, error) {
	args := m.Called(ctx, channelID, now)
	return args.Get(0).(pacing.Decision), args.Error(1)
}

type MockChannelPublisher struct {
	mock.Mock
}

func (m *MockChannelPublisher) Publish(ctx context.Context, content PostContent, adminID int64, auditAction string) (int, error) {
	args := m.Called(ctx, content, adminID, auditAction)
	return args.Int(0), args.Error(1)
}

type MockRewardNotifier struct {
	mock.Mock
}

func (m *MockRewardNotifier) OnPublished(ctx context.Context, submitterID int64, postID primitive.ObjectID) error {
	return m.Called(ctx, submitterID, postID).Error(0)
}
