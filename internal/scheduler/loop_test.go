package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database/models"
	"memehub-bot/internal/moderation"
)

type mockScheduleStore struct {
	mock.Mock
}

func (m *mockScheduleStore) ListDueScheduled(ctx context.Context, now time.Time) ([]models.ScheduledPost, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]models.ScheduledPost), args.Error(1)
}

func (m *mockScheduleStore) RemoveScheduledIfPresent(ctx context.Context, id primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, content moderation.PostContent, adminID int64, auditAction string) (int, error) {
	args := m.Called(ctx, content, adminID, auditAction)
	return args.Int(0), args.Error(1)
}

func scheduledPost(channelID int64, at time.Time) models.ScheduledPost {
	return models.ScheduledPost{
		ID:            primitive.NewObjectID(),
		ChannelID:     channelID,
		SubmitterID:   42,
		FileID:        "file",
		ScheduledTime: at,
	}
}

func newTestLoop(store *mockScheduleStore, pub *mockPublisher, now time.Time) *Loop {
	loop := NewLoop(store, pub, time.Minute)
	loop.now = func() time.Time { return now }
	return loop
}

func TestTickNothingDue(t *testing.T) {
	store := new(mockScheduleStore)
	pub := new(mockPublisher)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.On("ListDueScheduled", mock.Anything, now).Return([]models.ScheduledPost{}, nil)

	newTestLoop(store, pub, now).Tick(context.Background())

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTickPublishesOnlyEarliestDuePost(t *testing.T) {
	store := new(mockScheduleStore)
	pub := new(mockPublisher)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := scheduledPost(100, now.Add(-30*time.Minute))
	second := scheduledPost(100, now.Add(-20*time.Minute))
	third := scheduledPost(200, now.Add(-10*time.Minute))
	store.On("ListDueScheduled", mock.Anything, now).Return([]models.ScheduledPost{first, second, third}, nil)
	store.On("RemoveScheduledIfPresent", mock.Anything, first.ID).Return(true, nil)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(c moderation.PostContent) bool {
		return c.ID == first.ID
	}), int64(0), models.AuditAutoPublished).Return(555, nil)

	newTestLoop(store, pub, now).Tick(context.Background())

	pub.AssertNumberOfCalls(t, "Publish", 1)
	store.AssertCalled(t, "RemoveScheduledIfPresent", mock.Anything, first.ID)
}

func TestTickSkipsPostsNotYetDue(t *testing.T) {
	store := new(mockScheduleStore)
	pub := new(mockPublisher)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	future := scheduledPost(100, now.Add(5*time.Minute))
	store.On("ListDueScheduled", mock.Anything, now).Return([]models.ScheduledPost{future}, nil)

	newTestLoop(store, pub, now).Tick(context.Background())

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTickLeavesPostOnDeliveryFailure(t *testing.T) {
	store := new(mockScheduleStore)
	pub := new(mockPublisher)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	post := scheduledPost(100, now.Add(-time.Minute))
	store.On("ListDueScheduled", mock.Anything, now).Return([]models.ScheduledPost{post}, nil)
	pub.On("Publish", mock.Anything, mock.Anything, int64(0), models.AuditAutoPublished).Return(0, assert.AnError)

	newTestLoop(store, pub, now).Tick(context.Background())

	store.AssertNotCalled(t, "RemoveScheduledIfPresent", mock.Anything, mock.Anything)
}
