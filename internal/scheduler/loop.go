package scheduler

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database/models"
	"memehub-bot/internal/moderation"
)

// At most this many scheduled posts leave the queue per tick. One keeps the
// drain rate bounded by the tick interval and preserves pacing spacing.
const maxPublishesPerTick = 1

// ScheduleStore is the slice of the post store the loop drains from.
type ScheduleStore interface {
	ListDueScheduled(ctx context.Context, now time.Time) ([]models.ScheduledPost, error)
	RemoveScheduledIfPresent(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// Loop drains due scheduled posts. One loop runs per process; the published
// record's unique key is the safety net against double delivery.
type Loop struct {
	posts     ScheduleStore
	publisher moderation.ChannelPublisher
	interval  time.Duration
	now       func() time.Time
}

// NewLoop creates a scheduler loop ticking at the given interval.
func NewLoop(posts ScheduleStore, publisher moderation.ChannelPublisher, interval time.Duration) *Loop {
	return &Loop{posts: posts, publisher: publisher, interval: interval, now: time.Now}
}

// Run ticks until the context is cancelled.
func (l *Loop) Run(ctx context.Context) {
	log.Printf("[Scheduler] Started, tick interval %s", l.interval)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Scheduler] Stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick publishes the earliest due scheduled post, if any. A failed delivery
// leaves the post in place for the next tick.
func (l *Loop) Tick(ctx context.Context) {
	now := l.now()
	due, err := l.posts.ListDueScheduled(ctx, now)
	if err != nil {
		log.Printf("[Scheduler] Failed to list due posts: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	published := 0
	for i := range due {
		if published >= maxPublishesPerTick {
			break
		}
		post := &due[i]
		if post.ScheduledTime.After(now) {
			continue
		}

		if _, err := l.publisher.Publish(ctx, moderation.ContentFromScheduled(post), 0, models.AuditAutoPublished); err != nil {
			log.Printf("[Scheduler Post:%s] Publish failed, will retry: %v", post.ID.Hex(), err)
			continue
		}
		if _, err := l.posts.RemoveScheduledIfPresent(ctx, post.ID); err != nil {
			log.Printf("[Scheduler Post:%s] Failed to remove from schedule: %v", post.ID.Hex(), err)
		}
		published++
	}
}
