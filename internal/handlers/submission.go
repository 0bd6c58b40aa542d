package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database"
	"memehub-bot/internal/database/models"
	"memehub-bot/internal/dispatch"
	"memehub-bot/internal/locales"
	"memehub-bot/pkg/telegoapi"
)

// Submission rejection reasons surfaced to the user.
var (
	errSubmitterBanned = errors.New("submitter banned")
	errCaptionRequired = errors.New("caption required")
	errLooksLikeSpam   = errors.New("submission looks like spam")
)

// Caption substrings the spam filter rejects. Matches the usual meme-channel
// junk: invite links and self promotion.
var spamMarkers = []string{
	"t.me/",
	"http://",
	"https://",
	"joinchat",
	"подпишись",
	"подписывайся",
	"реклама",
}

// stagedSubmission is a photo waiting for the user to pick its channel.
type stagedSubmission struct {
	FileID        string
	Caption       string
	SubmitterName string
	StagedAt      time.Time
}

// Staged submissions older than this are dropped.
const stagedSubmissionTTL = 30 * time.Minute

// SubmissionManager runs the submitter side: stage a photo, pick a channel,
// land the post in that channel's pending queue.
type SubmissionManager struct {
	bot        telegoapi.BotAPI
	posts      database.PostStore
	settings   database.SettingsStore
	access     database.AccessStore
	dispatcher *dispatch.Dispatcher

	mu     sync.Mutex
	staged map[int64]*stagedSubmission
}

// NewSubmissionManager creates the submission workflow manager.
func NewSubmissionManager(bot telegoapi.BotAPI, posts database.PostStore, settings database.SettingsStore, access database.AccessStore) *SubmissionManager {
	return &SubmissionManager{
		bot:      bot,
		posts:    posts,
		settings: settings,
		access:   access,
		staged:   make(map[int64]*stagedSubmission),
	}
}

// SetDispatcher wires the callback router. Separate from the constructor
// because the dispatcher needs the manager first.
func (s *SubmissionManager) SetDispatcher(d *dispatch.Dispatcher) {
	s.dispatcher = d
}

// HandlePhoto stages a photo submission and asks the user for its channel.
func (s *SubmissionManager) HandlePhoto(ctx context.Context, message telego.Message) error {
	userID := message.From.ID
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	if len(message.Photo) == 0 {
		_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSubmissionRequiresPhoto", nil, nil)))
		return err
	}

	// Telegram sends photo sizes smallest first; the last one is the original.
	fileID := message.Photo[len(message.Photo)-1].FileID
	s.mu.Lock()
	s.staged[userID] = &stagedSubmission{
		FileID:        fileID,
		Caption:       message.Caption,
		SubmitterName: displayName(message.From),
		StagedAt:      time.Now(),
	}
	s.mu.Unlock()

	return s.sendChannelChoice(ctx, message.Chat.ID, userID, nil)
}

// HandleChannelSearch routes a plain text message typed while a submission
// is staged: the text is a channel name filter. Returns false when the user
// has nothing staged.
func (s *SubmissionManager) HandleChannelSearch(ctx context.Context, message telego.Message) (bool, error) {
	userID := message.From.ID
	s.mu.Lock()
	staged, ok := s.staged[userID]
	if ok && time.Since(staged.StagedAt) > stagedSubmissionTTL {
		delete(s.staged, userID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}

	channels, err := s.access.ListChannels(ctx)
	if err != nil {
		return true, fmt.Errorf("list channels: %w", err)
	}

	query := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(message.Text), "@"))
	matched := make([]models.Channel, 0, len(channels))
	for _, ch := range channels {
		if strings.Contains(strings.ToLower(ch.Title), query) {
			matched = append(matched, ch)
		}
	}

	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	if len(matched) == 0 {
		_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSubmissionNoChannelMatch", nil, nil)))
		return true, err
	}

	// A single match needs no button round trip.
	if len(matched) == 1 {
		if err := s.FinalizeToChannel(ctx, userID, matched[0].ChannelID); err != nil {
			return true, err
		}
		_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSubmissionReceived", nil, nil)))
		return true, err
	}
	return true, s.sendChannelChoice(ctx, message.Chat.ID, userID, matched)
}

// sendChannelChoice presents channel buttons. A nil filter shows everything.
func (s *SubmissionManager) sendChannelChoice(ctx context.Context, chatID, userID int64, filtered []models.Channel) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	channels := filtered
	if channels == nil {
		var err error
		channels, err = s.access.ListChannels(ctx)
		if err != nil {
			return fmt.Errorf("list channels: %w", err)
		}
	}
	if len(channels) == 0 {
		_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgNoChannels", nil, nil)))
		return err
	}

	ids := make([]int64, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ChannelID)
	}
	refs, err := s.dispatcher.RegisterChannels(userID, ids)
	if err != nil {
		return fmt.Errorf("register channel refs: %w", err)
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(channels)+1)
	for i, ch := range channels {
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("%d", ch.ChannelID)
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(title).WithCallbackData(dispatch.Data(dispatch.VerbSelect, refs[i])),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton(locales.GetMessage(localizer, "MsgSubmissionSendToAll", nil, nil)).
			WithCallbackData(dispatch.Data(dispatch.VerbSendAll, "")),
	))

	_, err = s.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgSubmissionChooseChannel", nil, nil)).
		WithReplyMarkup(&telego.InlineKeyboardMarkup{InlineKeyboard: rows}))
	return err
}

// FinalizeToChannel lands the staged submission in one channel's queue.
func (s *SubmissionManager) FinalizeToChannel(ctx context.Context, userID, channelID int64) error {
	staged, err := s.take(userID)
	if err != nil {
		return err
	}
	if err := s.submit(ctx, userID, channelID, staged, false); err != nil {
		s.notifyRejection(ctx, userID, err)
		return err
	}
	return nil
}

// FinalizeToAll fans the staged submission out to every channel that accepts
// global sends. Per-channel rejections are skipped, not fatal.
func (s *SubmissionManager) FinalizeToAll(ctx context.Context, userID int64) error {
	staged, err := s.take(userID)
	if err != nil {
		return err
	}
	channels, err := s.access.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	accepted := 0
	for _, ch := range channels {
		if err := s.submit(ctx, userID, ch.ChannelID, staged, true); err != nil {
			log.Printf("[Submission User:%d Channel:%d] Skipped: %v", userID, ch.ChannelID, err)
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("submission from %d accepted by no channel", userID)
	}
	return nil
}

func (s *SubmissionManager) take(userID int64) (*stagedSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged, ok := s.staged[userID]
	if !ok || time.Since(staged.StagedAt) > stagedSubmissionTTL {
		delete(s.staged, userID)
		return nil, fmt.Errorf("no staged submission for user %d", userID)
	}
	delete(s.staged, userID)
	return staged, nil
}

// submit validates the submission against the channel's rules and inserts
// the pending post. globalSend additionally requires the channel to accept
// fan-out submissions.
func (s *SubmissionManager) submit(ctx context.Context, userID, channelID int64, staged *stagedSubmission, globalSend bool) error {
	banned, err := s.access.IsBanned(ctx, userID, channelID)
	if err != nil {
		return fmt.Errorf("check ban: %w", err)
	}
	if banned {
		return errSubmitterBanned
	}

	settings, err := s.settings.GetSettings(ctx, channelID)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	if globalSend && !settings.AllowGlobal {
		return fmt.Errorf("channel %d does not accept global sends", channelID)
	}
	if settings.RequireCaption && strings.TrimSpace(staged.Caption) == "" {
		return errCaptionRequired
	}
	if settings.SpamFilterEnabled && looksLikeSpam(staged.Caption) {
		return errLooksLikeSpam
	}

	post := &models.PendingPost{
		ID:            primitive.NewObjectID(),
		ChannelID:     channelID,
		SubmitterID:   userID,
		SubmitterName: staged.SubmitterName,
		FileID:        staged.FileID,
		Caption:       staged.Caption,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.posts.InsertPending(ctx, post); err != nil {
		return fmt.Errorf("insert pending: %w", err)
	}
	return nil
}

func (s *SubmissionManager) notifyRejection(ctx context.Context, userID int64, cause error) {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	msgID := "MsgErrorGeneral"
	switch {
	case errors.Is(cause, errSubmitterBanned):
		msgID = "MsgSubmissionBanned"
	case errors.Is(cause, errCaptionRequired):
		msgID = "MsgSubmissionCaptionRequired"
	case errors.Is(cause, errLooksLikeSpam):
		msgID = "MsgSubmissionSpamRejected"
	}
	if _, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(userID), locales.GetMessage(localizer, msgID, nil, nil))); err != nil {
		log.Printf("[Submission User:%d] Failed to send rejection notice: %v", userID, err)
	}
}

func looksLikeSpam(caption string) bool {
	lower := strings.ToLower(caption)
	for _, marker := range spamMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func displayName(user *telego.User) string {
	if user == nil {
		return ""
	}
	if user.Username != "" {
		return "@" + user.Username
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}
