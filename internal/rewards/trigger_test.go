package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database/models"
)

// fakeCounts returns fixed totals for the counters the trigger consults.
type fakeCounts struct {
	total int64
	today int64
}

func (f *fakeCounts) CountPublishedBySubmitter(ctx context.Context, submitterID int64) (int64, error) {
	return f.total, nil
}

func (f *fakeCounts) CountPublishedBySubmitterSince(ctx context.Context, submitterID int64, since time.Time) (int64, error) {
	return f.today, nil
}

// memoryRewardStore mimics the duplicate-key behavior of the Mongo store.
type memoryRewardStore struct {
	grants  map[string]*models.RewardGrant
	streaks map[int64]*models.Streak
}

func newMemoryRewardStore() *memoryRewardStore {
	return &memoryRewardStore{
		grants:  make(map[string]*models.RewardGrant),
		streaks: make(map[int64]*models.Streak),
	}
}

func (s *memoryRewardStore) GrantOnce(ctx context.Context, grant *models.RewardGrant) (bool, error) {
	if _, exists := s.grants[grant.Key]; exists {
		return false, nil
	}
	s.grants[grant.Key] = grant
	return true, nil
}

func (s *memoryRewardStore) GetStreak(ctx context.Context, userID int64) (*models.Streak, error) {
	streak, ok := s.streaks[userID]
	if !ok {
		return nil, nil
	}
	copied := *streak
	return &copied, nil
}

func (s *memoryRewardStore) SaveStreak(ctx context.Context, streak *models.Streak) error {
	copied := *streak
	s.streaks[streak.UserID] = &copied
	return nil
}

func (s *memoryRewardStore) totalCoins(userID int64) int {
	total := 0
	for _, g := range s.grants {
		if g.UserID == userID {
			total += g.Amount
		}
	}
	return total
}

func newTestTrigger(counts *fakeCounts, store *memoryRewardStore, now time.Time) *Trigger {
	trigger := NewTrigger(counts, store)
	trigger.now = func() time.Time { return now }
	return trigger
}

func TestOnPublishedGrantsBaseCoinsOnce(t *testing.T) {
	store := newMemoryRewardStore()
	counts := &fakeCounts{total: 1, today: 1}
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	trigger := newTestTrigger(counts, store, now)
	postID := primitive.NewObjectID()

	require.NoError(t, trigger.OnPublished(context.Background(), 42, postID))
	require.NoError(t, trigger.OnPublished(context.Background(), 42, postID))

	// second run is a replay of the same post: nothing is paid twice
	assert.Equal(t, coinsPerPublish, store.totalCoins(42))
}

func TestOnPublishedStreakAdvancesAndResets(t *testing.T) {
	store := newMemoryRewardStore()
	counts := &fakeCounts{total: 3, today: 1}
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	trigger := newTestTrigger(counts, store, base)
	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))
	assert.Equal(t, 1, store.streaks[42].Length)

	// next day extends
	trigger.now = func() time.Time { return base.AddDate(0, 0, 1) }
	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))
	assert.Equal(t, 2, store.streaks[42].Length)

	// same day again is a no-op
	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))
	assert.Equal(t, 2, store.streaks[42].Length)

	// a two-day gap resets to 1
	trigger.now = func() time.Time { return base.AddDate(0, 0, 4) }
	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))
	assert.Equal(t, 1, store.streaks[42].Length)
}

func TestOnPublishedStreakMilestoneBonus(t *testing.T) {
	store := newMemoryRewardStore()
	counts := &fakeCounts{total: 20, today: 1}
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store.streaks[42] = &models.Streak{
		UserID:  42,
		Length:  6,
		LastDay: now.AddDate(0, 0, -1).Format(dayLayout),
	}
	trigger := newTestTrigger(counts, store, now)

	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))

	assert.Equal(t, 7, store.streaks[42].Length)
	key := "streak:42:7:" + now.Format(dayLayout)
	grant, ok := store.grants[key]
	require.True(t, ok, "week milestone should be granted")
	assert.Equal(t, streakWeekBonus, grant.Amount)
}

func TestOnPublishedDailyQuests(t *testing.T) {
	store := newMemoryRewardStore()
	counts := &fakeCounts{total: 5, today: 3}
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	trigger := newTestTrigger(counts, store, now)

	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))

	day := now.Format(dayLayout)
	_, three := store.grants["quest:three_posts:42:"+day]
	_, five := store.grants["quest:five_posts:42:"+day]
	assert.True(t, three)
	assert.False(t, five, "five-post quest needs five posts")

	// two more posts the same day unlock the bigger quest exactly once
	counts.today = 5
	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))
	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))
	grant, ok := store.grants["quest:five_posts:42:"+day]
	require.True(t, ok)
	assert.Equal(t, questFiveBonus, grant.Amount)
}

func TestOnPublishedAchievementFiresOnce(t *testing.T) {
	store := newMemoryRewardStore()
	counts := &fakeCounts{total: 10, today: 1}
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	trigger := newTestTrigger(counts, store, now)

	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))
	grant, ok := store.grants["ach:10:42"]
	require.True(t, ok)
	assert.Equal(t, achievementTenBonus, grant.Amount)

	// the 11th post crosses no new threshold and repays nothing
	counts.total = 11
	before := store.totalCoins(42)
	require.NoError(t, trigger.OnPublished(context.Background(), 42, primitive.NewObjectID()))
	assert.Equal(t, before+coinsPerPublish, store.totalCoins(42))
}
