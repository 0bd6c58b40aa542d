package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database/models"
)

// Reward amounts. Every grant is keyed so retries and duplicate publish
// events never pay twice.
const (
	coinsPerPublish = 10

	streakWeekLength    = 7
	streakWeekBonus     = 50
	streakMonthLength   = 30
	streakMonthBonus    = 250
	questStreakMinimum  = 3
	questStreakBonus    = 10
	questThreeDaily     = 3
	questThreeBonus     = 15
	questFiveDaily      = 5
	questFiveBonus      = 30
	achievementTen      = 10
	achievementTenBonus = 100
	achievementFifty    = 50
	achievementFiftyBns = 500
	achievementHundred  = 100
	achievementHndrdBns = 1000
)

const dayLayout = "2006-01-02"

// PublishCounter exposes the published-post counters the trigger reads.
type PublishCounter interface {
	CountPublishedBySubmitter(ctx context.Context, submitterID int64) (int64, error)
	CountPublishedBySubmitterSince(ctx context.Context, submitterID int64, since time.Time) (int64, error)
}

// Store persists grants and streak state.
type Store interface {
	GrantOnce(ctx context.Context, grant *models.RewardGrant) (bool, error)
	GetStreak(ctx context.Context, userID int64) (*models.Streak, error)
	SaveStreak(ctx context.Context, streak *models.Streak) error
}

// Trigger evaluates reward rules after a post reaches the channel. All
// grants are idempotent: each is written under a deterministic key and a
// duplicate key means the reward was already paid.
type Trigger struct {
	posts PublishCounter
	store Store
	now   func() time.Time
}

// NewTrigger creates a reward trigger. The published post is expected to be
// recorded before OnPublished runs, so counters include it.
func NewTrigger(posts PublishCounter, store Store) *Trigger {
	return &Trigger{posts: posts, store: store, now: time.Now}
}

// OnPublished runs the full reward evaluation for one published post.
// Individual rule failures are collected; the publish itself never depends
// on the result.
func (t *Trigger) OnPublished(ctx context.Context, submitterID int64, postID primitive.ObjectID) error {
	now := t.now().UTC()
	var errs []error

	if err := t.grantPublishCoins(ctx, submitterID, postID); err != nil {
		errs = append(errs, err)
	}

	streak, err := t.advanceStreak(ctx, submitterID, now)
	if err != nil {
		errs = append(errs, err)
		streak = nil
	}
	if streak != nil {
		if err := t.grantStreakBonuses(ctx, submitterID, streak, now); err != nil {
			errs = append(errs, err)
		}
	}

	if err := t.grantDailyQuests(ctx, submitterID, streak, now); err != nil {
		errs = append(errs, err)
	}
	if err := t.grantAchievements(ctx, submitterID); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (t *Trigger) grantPublishCoins(ctx context.Context, submitterID int64, postID primitive.ObjectID) error {
	grant := &models.RewardGrant{
		Key:       fmt.Sprintf("publish:%s", postID.Hex()),
		UserID:    submitterID,
		Amount:    coinsPerPublish,
		Reason:    "post published",
		GrantedAt: t.now().UTC(),
	}
	if _, err := t.store.GrantOnce(ctx, grant); err != nil {
		return fmt.Errorf("publish coins: %w", err)
	}
	return nil
}

// advanceStreak updates the daily streak: consecutive day extends it, a gap
// resets it to 1, a repeat publish on the same day leaves it untouched.
func (t *Trigger) advanceStreak(ctx context.Context, submitterID int64, now time.Time) (*models.Streak, error) {
	today := now.Format(dayLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dayLayout)

	streak, err := t.store.GetStreak(ctx, submitterID)
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	switch {
	case streak == nil:
		streak = &models.Streak{UserID: submitterID, Length: 1, LastDay: today}
	case streak.LastDay == today:
		return streak, nil
	case streak.LastDay == yesterday:
		streak.Length++
		streak.LastDay = today
	default:
		streak.Length = 1
		streak.LastDay = today
	}
	if err := t.store.SaveStreak(ctx, streak); err != nil {
		return nil, fmt.Errorf("save streak: %w", err)
	}
	return streak, nil
}

// grantStreakBonuses pays milestone bonuses exactly when the streak reaches
// the threshold. Keyed by the day it was reached so a longer streak later
// can earn the milestone again after a reset.
func (t *Trigger) grantStreakBonuses(ctx context.Context, submitterID int64, streak *models.Streak, now time.Time) error {
	day := now.Format(dayLayout)
	milestones := []struct {
		length int
		bonus  int
	}{
		{streakWeekLength, streakWeekBonus},
		{streakMonthLength, streakMonthBonus},
	}
	for _, m := range milestones {
		if streak.Length != m.length {
			continue
		}
		grant := &models.RewardGrant{
			Key:       fmt.Sprintf("streak:%d:%d:%s", submitterID, m.length, day),
			UserID:    submitterID,
			Amount:    m.bonus,
			Reason:    fmt.Sprintf("%d-day streak", m.length),
			GrantedAt: now,
		}
		if _, err := t.store.GrantOnce(ctx, grant); err != nil {
			return fmt.Errorf("streak bonus %d: %w", m.length, err)
		}
	}
	return nil
}

func (t *Trigger) grantDailyQuests(ctx context.Context, submitterID int64, streak *models.Streak, now time.Time) error {
	day := now.Format(dayLayout)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	todayCount, err := t.posts.CountPublishedBySubmitterSince(ctx, submitterID, midnight)
	if err != nil {
		return fmt.Errorf("count today's posts: %w", err)
	}

	if todayCount >= questThreeDaily {
		if err := t.grantQuest(ctx, submitterID, "three_posts", questThreeBonus, day, now); err != nil {
			return err
		}
	}
	if todayCount >= questFiveDaily {
		if err := t.grantQuest(ctx, submitterID, "five_posts", questFiveBonus, day, now); err != nil {
			return err
		}
	}
	if streak != nil && streak.Length >= questStreakMinimum {
		if err := t.grantQuest(ctx, submitterID, "keep_streak", questStreakBonus, day, now); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trigger) grantQuest(ctx context.Context, submitterID int64, questID string, bonus int, day string, now time.Time) error {
	grant := &models.RewardGrant{
		Key:       fmt.Sprintf("quest:%s:%d:%s", questID, submitterID, day),
		UserID:    submitterID,
		Amount:    bonus,
		Reason:    fmt.Sprintf("daily quest %s", questID),
		GrantedAt: now,
	}
	if _, err := t.store.GrantOnce(ctx, grant); err != nil {
		return fmt.Errorf("quest %s: %w", questID, err)
	}
	return nil
}

// grantAchievements pays lifetime milestones once the total published count
// crosses the threshold. Keys carry no date, so each fires once per user.
func (t *Trigger) grantAchievements(ctx context.Context, submitterID int64) error {
	total, err := t.posts.CountPublishedBySubmitter(ctx, submitterID)
	if err != nil {
		return fmt.Errorf("count published: %w", err)
	}
	tiers := []struct {
		threshold int64
		bonus     int
	}{
		{achievementTen, achievementTenBonus},
		{achievementFifty, achievementFiftyBns},
		{achievementHundred, achievementHndrdBns},
	}
	for _, tier := range tiers {
		if total < tier.threshold {
			break
		}
		grant := &models.RewardGrant{
			Key:       fmt.Sprintf("ach:%d:%d", tier.threshold, submitterID),
			UserID:    submitterID,
			Amount:    tier.bonus,
			Reason:    fmt.Sprintf("published %d posts", tier.threshold),
			GrantedAt: t.now().UTC(),
		}
		if _, err := t.store.GrantOnce(ctx, grant); err != nil {
			return fmt.Errorf("achievement %d: %w", tier.threshold, err)
		}
	}
	return nil
}
