package moderation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database"
	"memehub-bot/internal/database/models"
	"memehub-bot/internal/locales"
	"memehub-bot/internal/notifier"
	"memehub-bot/internal/pacing"
)

var (
	// ErrNotAuthorized is returned when the acting user does not moderate
	// the channel. Checked on entry and again on every decision.
	ErrNotAuthorized = errors.New("not authorized for this channel")
	// ErrPostAlreadyHandled is returned when the post was already decided,
	// typically by another moderator racing on the same queue.
	ErrPostAlreadyHandled = errors.New("post already handled")
)

// Action is a moderator's decision on a pending post.
type Action int

const (
	ActionApprove Action = iota
	ActionReject
	ActionBan
	ActionSkip
)

// How many times an immediate publish retries the pacing slot before giving
// the post back to the queue.
const publishClaimAttempts = 3

// Session is one moderator working one channel's queue. Cursor points at the
// post currently on screen.
type Session struct {
	AdminID   int64
	ChannelID int64
	Cursor    primitive.ObjectID
	StartedAt time.Time
}

// Outcome describes what a decision did and what the moderator sees next.
type Outcome struct {
	Action       Action
	Published    bool
	MessageID    int
	ScheduledFor *time.Time
	Adaptive     bool
	Next         *models.PendingPost
	QueueLen     int64
}

// Authorizer answers moderation access checks.
type Authorizer interface {
	IsAuthorized(ctx context.Context, userID, channelID int64) (bool, error)
}

// Pacer decides immediate-versus-deferred for an approved post.
type Pacer interface {
	Decide(ctx context.Context, channelID int64, now time.Time) (pacing.Decision, error)
}

// ChannelPublisher performs the actual delivery and bookkeeping of a publish.
type ChannelPublisher interface {
	Publish(ctx context.Context, content PostContent, adminID int64, auditAction string) (int, error)
}

// Manager owns moderation sessions and executes decisions against the queue.
// The pending store is the arbiter for races: whoever removes the pending
// row owns the post.
type Manager struct {
	posts    database.PostStore
	settings database.SettingsStore
	access   database.AccessStore
	audit    database.AuditLogger
	auth     Authorizer
	pacer    Pacer
	pub      ChannelPublisher
	notify   notifier.Notifier
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewManager creates a moderation manager.
func NewManager(posts database.PostStore, settings database.SettingsStore, access database.AccessStore, audit database.AuditLogger, auth Authorizer, pacer Pacer, pub ChannelPublisher, notify notifier.Notifier) *Manager {
	return &Manager{
		posts:    posts,
		settings: settings,
		access:   access,
		audit:    audit,
		auth:     auth,
		pacer:    pacer,
		pub:      pub,
		notify:   notify,
		now:      time.Now,
		sessions: make(map[int64]*Session),
	}
}

// Enter starts (or restarts) a moderation session on a channel and returns
// the head of its queue. A nil head means the queue is empty.
func (m *Manager) Enter(ctx context.Context, adminID, channelID int64) (*models.PendingPost, int64, error) {
	if err := m.authorize(ctx, adminID, channelID); err != nil {
		return nil, 0, err
	}

	pending, err := m.posts.ListPending(ctx, channelID)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending for %d: %w", channelID, err)
	}

	session := &Session{AdminID: adminID, ChannelID: channelID, StartedAt: m.now()}
	var head *models.PendingPost
	if len(pending) > 0 {
		head = &pending[0]
		session.Cursor = head.ID
	}
	m.mu.Lock()
	m.sessions[adminID] = session
	m.mu.Unlock()

	return head, int64(len(pending)), nil
}

// Leave drops the moderator's session, if any.
func (m *Manager) Leave(adminID int64) {
	m.mu.Lock()
	delete(m.sessions, adminID)
	m.mu.Unlock()
}

// ActiveSession returns the moderator's current session or nil.
func (m *Manager) ActiveSession(adminID int64) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[adminID]
}

// Decide applies a moderator action to a specific post. Authorization is
// re-checked here: a session grants nothing once the admin list changes.
func (m *Manager) Decide(ctx context.Context, adminID, channelID int64, postID primitive.ObjectID, action Action) (*Outcome, error) {
	if err := m.authorize(ctx, adminID, channelID); err != nil {
		return nil, err
	}

	post, err := m.posts.GetPendingByID(ctx, postID)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return nil, ErrPostAlreadyHandled
		}
		return nil, fmt.Errorf("load post %s: %w", postID.Hex(), err)
	}

	if action == ActionSkip {
		return m.skip(ctx, adminID, post)
	}

	// Claim: only one moderator gets a true here.
	won, err := m.posts.RemovePendingIfPresent(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("claim post %s: %w", postID.Hex(), err)
	}
	if !won {
		return nil, ErrPostAlreadyHandled
	}

	var outcome *Outcome
	switch action {
	case ActionApprove:
		outcome, err = m.approve(ctx, adminID, post)
	case ActionReject:
		outcome, err = m.reject(ctx, adminID, post)
	case ActionBan:
		outcome, err = m.ban(ctx, adminID, post)
	default:
		err = fmt.Errorf("unknown action %d", action)
	}
	if err != nil {
		return nil, err
	}

	if err := m.attachNext(ctx, adminID, post.ChannelID, outcome); err != nil {
		log.Printf("[Moderation Admin:%d Channel:%d] Failed to load next post: %v", adminID, post.ChannelID, err)
	}
	return outcome, nil
}

// approve routes the claimed post through pacing: publish now behind the
// channel's slot, or park it on the schedule.
func (m *Manager) approve(ctx context.Context, adminID int64, post *models.PendingPost) (*Outcome, error) {
	now := m.now()

	for attempt := 0; attempt < publishClaimAttempts; attempt++ {
		decision, err := m.pacer.Decide(ctx, post.ChannelID, now)
		if err != nil {
			m.requeue(ctx, post)
			return nil, err
		}
		if !decision.Immediate {
			return m.schedule(ctx, adminID, post, decision)
		}

		settings, err := m.settings.GetSettings(ctx, post.ChannelID)
		if err != nil {
			m.requeue(ctx, post)
			return nil, fmt.Errorf("get settings for %d: %w", post.ChannelID, err)
		}
		if settings.IntervalMinutes == 0 {
			return m.publishNow(ctx, adminID, post, decision)
		}

		won, err := m.settings.ClaimPublishSlot(ctx, post.ChannelID, settings.LastPostTime, now)
		if err != nil {
			m.requeue(ctx, post)
			return nil, fmt.Errorf("claim publish slot for %d: %w", post.ChannelID, err)
		}
		if won {
			return m.publishNow(ctx, adminID, post, decision)
		}
		// Lost the slot to a concurrent publish; the refreshed last post
		// time almost certainly defers the next decision.
	}

	m.requeue(ctx, post)
	return nil, fmt.Errorf("channel %d: publish slot contention, post requeued", post.ChannelID)
}

func (m *Manager) publishNow(ctx context.Context, adminID int64, post *models.PendingPost, decision pacing.Decision) (*Outcome, error) {
	messageID, err := m.pub.Publish(ctx, ContentFromPending(post), adminID, models.AuditPublished)
	if err != nil {
		// No requeue: the failure may have hit after the channel message
		// went out, and a re-approval would deliver the post a second time.
		log.Printf("[Moderation Post:%s] Publish failed, post not requeued: %v", post.ID.Hex(), err)
		return nil, err
	}
	return &Outcome{Action: ActionApprove, Published: true, MessageID: messageID, Adaptive: decision.Adaptive}, nil
}

func (m *Manager) schedule(ctx context.Context, adminID int64, post *models.PendingPost, decision pacing.Decision) (*Outcome, error) {
	scheduled := &models.ScheduledPost{
		ID:            post.ID,
		ChannelID:     post.ChannelID,
		SubmitterID:   post.SubmitterID,
		SubmitterName: post.SubmitterName,
		FileID:        post.FileID,
		Caption:       post.Caption,
		CreatedAt:     post.CreatedAt,
		ScheduledTime: decision.PublishAt,
	}
	if err := m.posts.InsertScheduled(ctx, scheduled); err != nil {
		m.requeue(ctx, post)
		return nil, fmt.Errorf("schedule post %s: %w", post.ID.Hex(), err)
	}

	auditAction := models.AuditScheduled
	if decision.Adaptive {
		auditAction = models.AuditSmartScheduled
	}
	m.appendAudit(ctx, models.AuditEntry{
		ChannelID:   post.ChannelID,
		Action:      auditAction,
		SubmitterID: post.SubmitterID,
		AdminID:     adminID,
		PostID:      post.ID,
		Details:     decision.PublishAt.UTC().Format(time.RFC3339),
		CreatedAt:   m.now().UTC(),
	})

	at := decision.PublishAt
	return &Outcome{Action: ActionApprove, ScheduledFor: &at, Adaptive: decision.Adaptive}, nil
}

func (m *Manager) reject(ctx context.Context, adminID int64, post *models.PendingPost) (*Outcome, error) {
	m.appendAudit(ctx, models.AuditEntry{
		ChannelID:   post.ChannelID,
		Action:      models.AuditRejected,
		SubmitterID: post.SubmitterID,
		AdminID:     adminID,
		PostID:      post.ID,
		CreatedAt:   m.now().UTC(),
	})
	m.notifySubmitter(ctx, post.SubmitterID, "MsgPostRejected")
	return &Outcome{Action: ActionReject}, nil
}

func (m *Manager) ban(ctx context.Context, adminID int64, post *models.PendingPost) (*Outcome, error) {
	if err := m.access.Ban(ctx, &models.BannedUser{
		UserID:    post.SubmitterID,
		ChannelID: post.ChannelID,
		Username:  post.SubmitterName,
		BannedBy:  adminID,
		BannedAt:  m.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("ban user %d: %w", post.SubmitterID, err)
	}
	m.appendAudit(ctx, models.AuditEntry{
		ChannelID:   post.ChannelID,
		Action:      models.AuditBanned,
		SubmitterID: post.SubmitterID,
		AdminID:     adminID,
		PostID:      post.ID,
		CreatedAt:   m.now().UTC(),
	})
	m.notifySubmitter(ctx, post.SubmitterID, "MsgUserBanned")
	return &Outcome{Action: ActionBan}, nil
}

// skip advances the session cursor to the next-oldest pending post, wrapping
// to the head of the queue. The skipped post stays where it is.
func (m *Manager) skip(ctx context.Context, adminID int64, post *models.PendingPost) (*Outcome, error) {
	pending, err := m.posts.ListPending(ctx, post.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("list pending for %d: %w", post.ChannelID, err)
	}

	outcome := &Outcome{Action: ActionSkip, QueueLen: int64(len(pending))}
	if len(pending) == 0 {
		return outcome, nil
	}

	next := &pending[0]
	for i := range pending {
		if pending[i].ID == post.ID && i+1 < len(pending) {
			next = &pending[i+1]
			break
		}
	}
	outcome.Next = next

	m.mu.Lock()
	if session, ok := m.sessions[adminID]; ok {
		session.Cursor = next.ID
	}
	m.mu.Unlock()
	return outcome, nil
}

// attachNext refreshes the queue view after a terminal decision: the new
// head becomes the cursor.
func (m *Manager) attachNext(ctx context.Context, adminID, channelID int64, outcome *Outcome) error {
	pending, err := m.posts.ListPending(ctx, channelID)
	if err != nil {
		return err
	}
	outcome.QueueLen = int64(len(pending))
	if len(pending) == 0 {
		return nil
	}
	outcome.Next = &pending[0]
	m.mu.Lock()
	if session, ok := m.sessions[adminID]; ok {
		session.Cursor = pending[0].ID
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) authorize(ctx context.Context, adminID, channelID int64) error {
	ok, err := m.auth.IsAuthorized(ctx, adminID, channelID)
	if err != nil {
		return fmt.Errorf("authorize admin %d on %d: %w", adminID, channelID, err)
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

// requeue puts a claimed post back after a downstream failure. Best effort:
// a second failure here only loses ordering, the post itself is logged.
func (m *Manager) requeue(ctx context.Context, post *models.PendingPost) {
	if err := m.posts.InsertPending(ctx, post); err != nil {
		log.Printf("[Moderation Post:%s] Failed to requeue post: %v", post.ID.Hex(), err)
	}
}

func (m *Manager) appendAudit(ctx context.Context, entry models.AuditEntry) {
	if err := m.audit.AppendAudit(ctx, entry); err != nil {
		log.Printf("[Moderation Channel:%d] Failed to append audit entry: %v", entry.ChannelID, err)
	}
}

func (m *Manager) notifySubmitter(ctx context.Context, userID int64, msgID string) {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	text := locales.GetMessage(localizer, msgID, nil, nil)
	if err := m.notify.Notify(ctx, userID, text); err != nil {
		log.Printf("[Moderation User:%d] Failed to notify submitter: %v", userID, err)
	}
}
