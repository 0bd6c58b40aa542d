package moderation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database"
	"memehub-bot/internal/database/models"
	"memehub-bot/internal/locales"
	"memehub-bot/internal/notifier"
)

// PostContent is the channel-bound payload shared by pending and scheduled
// posts.
type PostContent struct {
	ID            primitive.ObjectID
	ChannelID     int64
	SubmitterID   int64
	SubmitterName string
	FileID        string
	Caption       string
}

// ContentFromPending converts a pending post into publishable content.
func ContentFromPending(p *models.PendingPost) PostContent {
	return PostContent{
		ID:            p.ID,
		ChannelID:     p.ChannelID,
		SubmitterID:   p.SubmitterID,
		SubmitterName: p.SubmitterName,
		FileID:        p.FileID,
		Caption:       p.Caption,
	}
}

// ContentFromScheduled converts a scheduled post into publishable content.
func ContentFromScheduled(p *models.ScheduledPost) PostContent {
	return PostContent{
		ID:            p.ID,
		ChannelID:     p.ChannelID,
		SubmitterID:   p.SubmitterID,
		SubmitterName: p.SubmitterName,
		FileID:        p.FileID,
		Caption:       p.Caption,
	}
}

// RewardNotifier is the post-publish hook that pays out rewards.
type RewardNotifier interface {
	OnPublished(ctx context.Context, submitterID int64, postID primitive.ObjectID) error
}

// Publisher delivers approved content to its channel and records the outcome.
// Delivery comes first: no published record and no rewards exist for a post
// that never reached the channel.
type Publisher struct {
	posts    database.PostStore
	settings database.SettingsStore
	audit    database.AuditLogger
	rewards  RewardNotifier
	notify   notifier.Notifier
	now      func() time.Time
}

// NewPublisher creates a publisher over the given stores and notifier.
func NewPublisher(posts database.PostStore, settings database.SettingsStore, audit database.AuditLogger, rewards RewardNotifier, notify notifier.Notifier) *Publisher {
	return &Publisher{
		posts:    posts,
		settings: settings,
		audit:    audit,
		rewards:  rewards,
		notify:   notify,
		now:      time.Now,
	}
}

// Publish sends the content to its channel and records the published post.
// auditAction names how the post got here (approved directly, drained from
// the schedule, smart-paced). A delivery failure leaves no trace, but an
// error can also follow a successful delivery when recording it fails, so an
// error is not proof the channel never saw the post.
func (p *Publisher) Publish(ctx context.Context, content PostContent, adminID int64, auditAction string) (int, error) {
	messageID, err := p.notify.Deliver(ctx, content.ChannelID, content.FileID, content.Caption)
	if err != nil {
		return 0, fmt.Errorf("publish post %s: %w", content.ID.Hex(), err)
	}

	published := &models.PublishedPost{
		ID:            content.ID,
		ChannelID:     content.ChannelID,
		SubmitterID:   content.SubmitterID,
		SubmitterName: content.SubmitterName,
		MessageID:     messageID,
		PublishedAt:   p.now().UTC(),
	}
	if err := p.posts.InsertPublished(ctx, published); err != nil {
		if errors.Is(err, database.ErrAlreadyPublished) {
			// Replay of an already recorded post: the channel message went
			// out, but rewards and audit stay untouched.
			log.Printf("[Publisher Post:%s] Duplicate publish record, skipping side effects", content.ID.Hex())
			return messageID, nil
		}
		return messageID, fmt.Errorf("record published post %s: %w", content.ID.Hex(), err)
	}

	if err := p.settings.TouchLastPostTime(ctx, content.ChannelID, published.PublishedAt); err != nil {
		log.Printf("[Publisher Channel:%d] Failed to advance last post time: %v", content.ChannelID, err)
	}

	if err := p.rewards.OnPublished(ctx, content.SubmitterID, content.ID); err != nil {
		log.Printf("[Publisher Post:%s] Reward evaluation failed: %v", content.ID.Hex(), err)
	}

	if err := p.audit.AppendAudit(ctx, models.AuditEntry{
		ChannelID:   content.ChannelID,
		Action:      auditAction,
		SubmitterID: content.SubmitterID,
		AdminID:     adminID,
		PostID:      content.ID,
		CreatedAt:   published.PublishedAt,
	}); err != nil {
		log.Printf("[Publisher Post:%s] Failed to append audit entry: %v", content.ID.Hex(), err)
	}

	p.notifySubmitter(ctx, content)
	return messageID, nil
}

func (p *Publisher) notifySubmitter(ctx context.Context, content PostContent) {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	text := locales.GetMessage(localizer, "MsgPostPublished", nil, nil)
	if err := p.notify.Notify(ctx, content.SubmitterID, text); err != nil {
		log.Printf("[Publisher User:%d] Failed to notify submitter: %v", content.SubmitterID, err)
	}
}
