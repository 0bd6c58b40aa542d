package pacing

import (
	"context"
	"fmt"
	"time"

	"memehub-bot/internal/database/models"
)

// Adaptive pacing parameters. Base spacing per aggressiveness tier; queue
// pressure shifts it, the floor bounds it, and the night window pushes a
// deferred time into the morning.
const (
	baseConservative = 90 * time.Minute
	baseModerate     = 60 * time.Minute
	baseAggressive   = 45 * time.Minute

	highPressureQueue = 10 // pending posts above this shorten the interval
	lowPressureQueue  = 3  // pending posts below this lengthen it
	pressureShorten   = 20 * time.Minute
	pressureLengthen  = 15 * time.Minute
	minInterval       = 30 * time.Minute

	nightStartHour = 1 // 01:00 inclusive
	nightEndHour   = 8 // 08:00 exclusive
	morningHour    = 8
)

// Decision is the outcome of a pacing check: publish now, or defer to
// PublishAt. Adaptive marks decisions produced by smart mode.
type Decision struct {
	Immediate bool
	PublishAt time.Time
	Adaptive  bool
}

// SettingsReader provides the channel settings the policy reads.
type SettingsReader interface {
	GetSettings(ctx context.Context, channelID int64) (*models.ChannelSettings, error)
}

// PostCounter reports the post counts the policy consults: queue size is the
// pressure signal in smart mode, the published count enforces the daily cap.
type PostCounter interface {
	CountPending(ctx context.Context, channelID int64) (int64, error)
	CountPublishedByChannelSince(ctx context.Context, channelID int64, since time.Time) (int64, error)
}

// Policy decides whether a just-approved post publishes immediately or is
// deferred. Pure decision: the caller persists the outcome and owns
// last_post_time.
type Policy struct {
	settings SettingsReader
	posts    PostCounter
}

// NewPolicy creates a pacing policy over the given settings and post counters.
func NewPolicy(settings SettingsReader, posts PostCounter) *Policy {
	return &Policy{settings: settings, posts: posts}
}

// Decide applies the channel's pacing mode at time now. Exactly one of
// {no pacing, fixed pacing, adaptive pacing} applies per channel:
// interval 0 disables pacing entirely, smart mode replaces the fixed check.
func (p *Policy) Decide(ctx context.Context, channelID int64, now time.Time) (Decision, error) {
	settings, err := p.settings.GetSettings(ctx, channelID)
	if err != nil {
		return Decision{}, fmt.Errorf("pacing: get settings: %w", err)
	}

	// The daily cap applies in every mode, pacing or not.
	if settings.MaxPostsPerDay > 0 {
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		published, err := p.posts.CountPublishedByChannelSince(ctx, channelID, midnight)
		if err != nil {
			return Decision{}, fmt.Errorf("pacing: count published today: %w", err)
		}
		if published >= int64(settings.MaxPostsPerDay) {
			return Decision{PublishAt: midnight.AddDate(0, 0, 1)}, nil
		}
	}

	if settings.IntervalMinutes == 0 || settings.LastPostTime == nil {
		return Decision{Immediate: true, PublishAt: now}, nil
	}

	if !settings.SmartMode {
		next := settings.LastPostTime.Add(time.Duration(settings.IntervalMinutes) * time.Minute)
		if !now.Before(next) {
			return Decision{Immediate: true, PublishAt: now}, nil
		}
		return Decision{PublishAt: next}, nil
	}

	queueLen, err := p.posts.CountPending(ctx, channelID)
	if err != nil {
		return Decision{}, fmt.Errorf("pacing: count pending: %w", err)
	}

	interval := EffectiveInterval(settings.Aggressiveness, queueLen)
	next := settings.LastPostTime.Add(interval)
	if !now.Before(next) {
		return Decision{Immediate: true, PublishAt: now, Adaptive: true}, nil
	}
	return Decision{PublishAt: avoidNightWindow(next), Adaptive: true}, nil
}

// EffectiveInterval computes the adaptive spacing for a queue of the given
// size. Queue pressure is applied before any other correction.
func EffectiveInterval(aggressiveness string, queueLen int64) time.Duration {
	base := baseModerate
	switch aggressiveness {
	case models.AggressivenessConservative:
		base = baseConservative
	case models.AggressivenessAggressive:
		base = baseAggressive
	}

	interval := base
	if queueLen > highPressureQueue {
		interval -= pressureShorten
	} else if queueLen < lowPressureQueue {
		interval += pressureLengthen
	}
	if interval < minInterval {
		interval = minInterval
	}
	return interval
}

// avoidNightWindow pushes a time that lands in the low-traffic window
// [01:00, 08:00) forward to 08:00, rolling to the next day when 08:00 of
// the computed day has already passed.
func avoidNightWindow(t time.Time) time.Time {
	hour := t.Hour()
	if hour < nightStartHour || hour >= nightEndHour {
		return t
	}
	morning := time.Date(t.Year(), t.Month(), t.Day(), morningHour, 0, 0, 0, t.Location())
	if !morning.After(t) {
		morning = morning.AddDate(0, 0, 1)
	}
	return morning
}
