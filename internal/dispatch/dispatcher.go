package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"memehub-bot/internal/database"
	"memehub-bot/internal/database/models"
	"memehub-bot/internal/locales"
	"memehub-bot/internal/moderation"
	"memehub-bot/internal/notifier"
	"memehub-bot/pkg/telegoapi"
)

// SubmissionFinalizer binds a user's staged submission to its destination.
type SubmissionFinalizer interface {
	FinalizeToChannel(ctx context.Context, userID, channelID int64) error
	FinalizeToAll(ctx context.Context, userID int64) error
}

// pendingInput tracks a moderator we asked to type a setting value.
type pendingInput struct {
	ChannelID int64
	Setting   string
}

// Dispatcher routes callback queries. Every button the bot issues encodes a
// verb plus a short channel reference; the per-user RefMap turns references
// back into channel IDs and expires stale buttons.
type Dispatcher struct {
	bot      telegoapi.BotAPI
	mod      *moderation.Manager
	posts    database.PostStore
	settings database.SettingsStore
	access   database.AccessStore
	audit    database.AuditLogger
	subs     SubmissionFinalizer
	notify   notifier.Notifier

	mu     sync.Mutex
	refs   map[int64]*RefMap
	inputs map[int64]pendingInput
}

// NewDispatcher creates the callback router.
func NewDispatcher(bot telegoapi.BotAPI, mod *moderation.Manager, posts database.PostStore, settings database.SettingsStore, access database.AccessStore, audit database.AuditLogger, subs SubmissionFinalizer, notify notifier.Notifier) *Dispatcher {
	return &Dispatcher{
		bot:      bot,
		mod:      mod,
		posts:    posts,
		settings: settings,
		access:   access,
		audit:    audit,
		subs:     subs,
		notify:   notify,
		refs:     make(map[int64]*RefMap),
		inputs:   make(map[int64]pendingInput),
	}
}

// RegisterChannels issues short references for the given channels to one
// user and returns them in order.
func (d *Dispatcher) RegisterChannels(userID int64, channelIDs []int64) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	refMap, ok := d.refs[userID]
	if !ok {
		refMap = NewRefMap()
		d.refs[userID] = refMap
	}
	refs := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		ref, err := refMap.Add(id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (d *Dispatcher) resolve(userID int64, ref string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	refMap, ok := d.refs[userID]
	if !ok {
		return 0, ErrUnknownReference
	}
	return refMap.Resolve(ref)
}

// HandleCallback processes one callback query end to end. Errors surface to
// the user as callback alerts; the update loop only logs them.
func (d *Dispatcher) HandleCallback(ctx context.Context, query telego.CallbackQuery) error {
	userID := query.From.ID
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	cmd, err := Parse(query.Data)
	if err != nil {
		log.Printf("[Dispatch User:%d] Malformed callback data %q: %v", userID, query.Data, err)
		d.answer(ctx, query.ID, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), true)
		return err
	}

	var chatID int64
	var messageID int
	if msg, ok := query.Message.(*telego.Message); ok && msg != nil {
		chatID = msg.Chat.ID
		messageID = msg.MessageID
	}
	if chatID == 0 {
		chatID = userID
	}

	var channelID int64
	if cmd.Ref != "" {
		channelID, err = d.resolve(userID, cmd.Ref)
		if err != nil {
			d.answer(ctx, query.ID, locales.GetMessage(localizer, "MsgUnknownReference", nil, nil), true)
			return fmt.Errorf("resolve ref %q for user %d: %w", cmd.Ref, userID, err)
		}
	}

	switch cmd.Verb {
	case VerbModerate:
		err = d.openQueue(ctx, query.ID, userID, chatID, messageID, channelID, cmd.Ref)
	case VerbApprove, VerbReject, VerbBan, VerbSkip:
		err = d.decide(ctx, query, chatID, messageID, channelID, cmd)
	case VerbSelect:
		err = d.finalizeSubmission(ctx, query.ID, userID, chatID, messageID, channelID)
	case VerbSendAll:
		err = d.finalizeSubmissionToAll(ctx, query.ID, userID, chatID, messageID)
	case VerbSettings:
		err = d.openSettings(ctx, query.ID, userID, chatID, messageID, channelID, cmd.Ref)
	case VerbConfigure:
		err = d.configure(ctx, query.ID, userID, chatID, messageID, channelID, cmd)
	case VerbSave:
		d.answer(ctx, query.ID, locales.GetMessage(localizer, "MsgSettingsSaved", nil, nil), false)
		d.deleteMessage(ctx, chatID, messageID)
	case VerbInput:
		err = d.askInput(ctx, query.ID, userID, chatID, channelID, cmd)
	case VerbUnbanMenu:
		err = d.openUnbanMenu(ctx, query.ID, userID, chatID, messageID, channelID, cmd.Ref)
	case VerbUnban:
		err = d.unban(ctx, query.ID, userID, chatID, messageID, channelID, cmd)
	case VerbAudit:
		err = d.showAudit(ctx, query.ID, userID, chatID, channelID)
	case VerbTop:
		err = d.showLeaderboard(ctx, query.ID, userID, chatID, channelID)
	}
	if err != nil {
		log.Printf("[Dispatch User:%d Verb:%s] %v", userID, cmd.Verb, err)
	}
	return err
}

// --- moderation queue ---

func (d *Dispatcher) openQueue(ctx context.Context, queryID string, userID, chatID int64, messageID int, channelID int64, ref string) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	head, queueLen, err := d.mod.Enter(ctx, userID, channelID)
	if errors.Is(err, moderation.ErrNotAuthorized) {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil), true)
		return nil
	}
	if err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgStoreUnavailable", nil, nil), true)
		return err
	}

	d.answer(ctx, queryID, "", false)
	d.deleteMessage(ctx, chatID, messageID)
	if head == nil {
		_, err = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgQueueEmpty", nil, nil)))
		return err
	}
	return d.sendPostCard(ctx, chatID, ref, head, 1, queueLen)
}

func (d *Dispatcher) decide(ctx context.Context, query telego.CallbackQuery, chatID int64, messageID int, channelID int64, cmd Command) error {
	userID := query.From.ID
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	postID, err := primitive.ObjectIDFromHex(cmd.Arg(0))
	if err != nil {
		d.answer(ctx, query.ID, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), true)
		return fmt.Errorf("bad post id %q: %w", cmd.Arg(0), err)
	}

	actions := map[string]moderation.Action{
		VerbApprove: moderation.ActionApprove,
		VerbReject:  moderation.ActionReject,
		VerbBan:     moderation.ActionBan,
		VerbSkip:    moderation.ActionSkip,
	}
	outcome, err := d.mod.Decide(ctx, userID, channelID, postID, actions[cmd.Verb])
	switch {
	case errors.Is(err, moderation.ErrNotAuthorized):
		d.answer(ctx, query.ID, locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil), true)
		return nil
	case errors.Is(err, moderation.ErrPostAlreadyHandled):
		d.answer(ctx, query.ID, locales.GetMessage(localizer, "MsgAlreadyHandled", nil, nil), true)
		return d.refreshQueue(ctx, userID, chatID, messageID, channelID, cmd.Ref)
	case err != nil:
		d.answer(ctx, query.ID, locales.GetMessage(localizer, "MsgStoreUnavailable", nil, nil), true)
		return err
	}

	d.answer(ctx, query.ID, outcomeText(localizer, outcome), false)
	d.deleteMessage(ctx, chatID, messageID)
	if outcome.Next == nil {
		_, err = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgQueueEmpty", nil, nil)))
		return err
	}
	return d.sendPostCard(ctx, chatID, cmd.Ref, outcome.Next, 1, outcome.QueueLen)
}

// outcomeText picks the short confirmation shown in the callback toast.
func outcomeText(localizer *i18n.Localizer, outcome *moderation.Outcome) string {
	switch {
	case outcome.Published:
		return locales.GetMessage(localizer, "MsgPostApproved", nil, nil)
	case outcome.ScheduledFor != nil:
		msgID := "MsgPostScheduled"
		if outcome.Adaptive {
			msgID = "MsgPostSmartScheduled"
		}
		return locales.GetMessage(localizer, msgID, map[string]interface{}{
			"Time": outcome.ScheduledFor.Format("02.01 15:04"),
		}, nil)
	case outcome.Action == moderation.ActionReject:
		return locales.GetMessage(localizer, "MsgPostRejectedConfirm", nil, nil)
	case outcome.Action == moderation.ActionBan:
		return locales.GetMessage(localizer, "MsgPostBannedConfirm", nil, nil)
	default:
		return ""
	}
}

func (d *Dispatcher) refreshQueue(ctx context.Context, userID, chatID int64, messageID int, channelID int64, ref string) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	head, queueLen, err := d.mod.Enter(ctx, userID, channelID)
	if err != nil {
		return err
	}
	d.deleteMessage(ctx, chatID, messageID)
	if head == nil {
		_, err = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgQueueEmpty", nil, nil)))
		return err
	}
	return d.sendPostCard(ctx, chatID, ref, head, 1, queueLen)
}

// sendPostCard presents one pending post with its decision keyboard.
func (d *Dispatcher) sendPostCard(ctx context.Context, chatID int64, ref string, post *models.PendingPost, position, total int64) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	submitter := post.SubmitterName
	if submitter == "" {
		submitter = strconv.FormatInt(post.SubmitterID, 10)
	}
	text := locales.GetMessage(localizer, "MsgPostCard", map[string]interface{}{
		"Submitter": submitter,
		"Position":  position,
		"Total":     total,
	}, nil)
	if post.Caption != "" {
		text = post.Caption + "\n\n" + text
	}

	postHex := post.ID.Hex()
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅").WithCallbackData(Data(VerbApprove, ref, postHex)),
			tu.InlineKeyboardButton("❌").WithCallbackData(Data(VerbReject, ref, postHex)),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🚫 Ban").WithCallbackData(Data(VerbBan, ref, postHex)),
			tu.InlineKeyboardButton("⏭").WithCallbackData(Data(VerbSkip, ref, postHex)),
		),
	)

	_, err := d.bot.SendPhoto(ctx, &telego.SendPhotoParams{
		ChatID:      tu.ID(chatID),
		Photo:       telego.InputFile{FileID: post.FileID},
		Caption:     text,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return fmt.Errorf("send post card: %w", err)
	}
	return nil
}

// --- submissions ---

func (d *Dispatcher) finalizeSubmission(ctx context.Context, queryID string, userID, chatID int64, messageID int, channelID int64) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	if err := d.subs.FinalizeToChannel(ctx, userID, channelID); err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), true)
		return err
	}
	d.answer(ctx, queryID, "", false)
	d.deleteMessage(ctx, chatID, messageID)
	_, err := d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgSubmissionReceived", nil, nil)))
	return err
}

func (d *Dispatcher) finalizeSubmissionToAll(ctx context.Context, queryID string, userID, chatID int64, messageID int) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	if err := d.subs.FinalizeToAll(ctx, userID); err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), true)
		return err
	}
	d.answer(ctx, queryID, "", false)
	d.deleteMessage(ctx, chatID, messageID)
	_, err := d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgSubmissionReceived", nil, nil)))
	return err
}

// --- settings ---

func (d *Dispatcher) openSettings(ctx context.Context, queryID string, userID, chatID int64, messageID int, channelID int64, ref string) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	ok, err := d.authorized(ctx, userID, channelID)
	if err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgStoreUnavailable", nil, nil), true)
		return err
	}
	if !ok {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil), true)
		return nil
	}

	d.answer(ctx, queryID, "", false)
	d.deleteMessage(ctx, chatID, messageID)
	return d.sendSettingsMenu(ctx, chatID, channelID, ref)
}

func (d *Dispatcher) sendSettingsMenu(ctx context.Context, chatID, channelID int64, ref string) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	settings, err := d.settings.GetSettings(ctx, channelID)
	if err != nil {
		return err
	}

	title := d.notify.ResolveDisplayName(ctx, channelID)
	text := locales.GetMessage(localizer, "MsgSettingsHeader", map[string]interface{}{"Title": title}, nil)
	text += fmt.Sprintf("\n\nInterval: %d min\nMax posts/day: %d\nSmart pacing: %s (%s)\nSpam filter: %s\nRequire caption: %s\nAccept global sends: %s",
		settings.IntervalMinutes,
		settings.MaxPostsPerDay,
		onOff(settings.SmartMode), settings.Aggressiveness,
		onOff(settings.SpamFilterEnabled),
		onOff(settings.RequireCaption),
		onOff(settings.AllowGlobal),
	)

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Interval").WithCallbackData(Data(VerbInput, ref, "interval")),
			tu.InlineKeyboardButton("Max/day").WithCallbackData(Data(VerbInput, ref, "maxday")),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Smart: "+onOff(settings.SmartMode)).WithCallbackData(Data(VerbConfigure, ref, "smart")),
			tu.InlineKeyboardButton("Mode: "+settings.Aggressiveness).WithCallbackData(Data(VerbConfigure, ref, "aggr")),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Spam: "+onOff(settings.SpamFilterEnabled)).WithCallbackData(Data(VerbConfigure, ref, "spam")),
			tu.InlineKeyboardButton("Caption: "+onOff(settings.RequireCaption)).WithCallbackData(Data(VerbConfigure, ref, "capt")),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Global: "+onOff(settings.AllowGlobal)).WithCallbackData(Data(VerbConfigure, ref, "glob")),
			tu.InlineKeyboardButton("Done").WithCallbackData(Data(VerbSave, ref)),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Banned users").WithCallbackData(Data(VerbUnbanMenu, ref)),
		),
	)

	_, err = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithReplyMarkup(keyboard))
	return err
}

func (d *Dispatcher) configure(ctx context.Context, queryID string, userID, chatID int64, messageID int, channelID int64, cmd Command) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	ok, err := d.authorized(ctx, userID, channelID)
	if err != nil || !ok {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil), true)
		return err
	}

	settings, err := d.settings.GetSettings(ctx, channelID)
	if err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgStoreUnavailable", nil, nil), true)
		return err
	}

	switch arg := cmd.Arg(0); arg {
	case "aggr":
		err = d.settings.UpsertSetting(ctx, channelID, database.SettingAggressiveness, nextAggressiveness(settings.Aggressiveness))
	case "smart":
		err = d.settings.UpsertSetting(ctx, channelID, database.SettingSmartMode, !settings.SmartMode)
	case "spam":
		err = d.settings.UpsertSetting(ctx, channelID, database.SettingSpamFilter, !settings.SpamFilterEnabled)
	case "capt":
		err = d.settings.UpsertSetting(ctx, channelID, database.SettingRequireCaption, !settings.RequireCaption)
	case "glob":
		err = d.settings.UpsertSetting(ctx, channelID, database.SettingAllowGlobal, !settings.AllowGlobal)
	default:
		err = fmt.Errorf("unknown setting %q", arg)
	}
	if err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), true)
		return err
	}

	d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgSettingsSaved", nil, nil), false)
	d.deleteMessage(ctx, chatID, messageID)
	return d.sendSettingsMenu(ctx, chatID, channelID, cmd.Ref)
}

func (d *Dispatcher) askInput(ctx context.Context, queryID string, userID, chatID, channelID int64, cmd Command) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	setting := ""
	switch cmd.Arg(0) {
	case "interval":
		setting = database.SettingIntervalMinutes
	case "maxday":
		setting = database.SettingMaxPostsPerDay
	default:
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), true)
		return fmt.Errorf("unknown input setting %q", cmd.Arg(0))
	}

	d.mu.Lock()
	d.inputs[userID] = pendingInput{ChannelID: channelID, Setting: setting}
	d.mu.Unlock()

	d.answer(ctx, queryID, "", false)
	prompt := locales.GetMessage(localizer, "MsgSettingsAskValue", map[string]interface{}{"Setting": setting}, nil)
	_, err := d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), prompt))
	return err
}

// AwaitingInput reports whether the user owes us a typed setting value.
func (d *Dispatcher) AwaitingInput(userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inputs[userID]
	return ok
}

// HandleInputValue consumes a typed numeric setting value. Returns true if
// the message was an awaited input, whether or not it was valid.
func (d *Dispatcher) HandleInputValue(ctx context.Context, userID, chatID int64, text string) bool {
	d.mu.Lock()
	input, ok := d.inputs[userID]
	if ok {
		delete(d.inputs, userID)
	}
	d.mu.Unlock()
	if !ok {
		return false
	}

	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || value < 0 {
		_, _ = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgSettingsInvalidValue", nil, nil)))
		return true
	}
	if err := d.settings.UpsertSetting(ctx, input.ChannelID, input.Setting, value); err != nil {
		log.Printf("[Dispatch User:%d] Failed to save setting %s: %v", userID, input.Setting, err)
		_, _ = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil)))
		return true
	}
	_, _ = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgSettingsSaved", nil, nil)))
	return true
}

// --- bans ---

func (d *Dispatcher) openUnbanMenu(ctx context.Context, queryID string, userID, chatID int64, messageID int, channelID int64, ref string) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	ok, err := d.authorized(ctx, userID, channelID)
	if err != nil || !ok {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil), true)
		return err
	}

	banned, err := d.access.ListBanned(ctx, channelID)
	if err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgStoreUnavailable", nil, nil), true)
		return err
	}

	d.answer(ctx, queryID, "", false)
	d.deleteMessage(ctx, chatID, messageID)
	if len(banned) == 0 {
		_, err = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgNoBannedUsers", nil, nil)))
		return err
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(banned))
	for _, b := range banned {
		label := b.Username
		if label == "" {
			label = strconv.FormatInt(b.UserID, 10)
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Unban "+label).WithCallbackData(Data(VerbUnban, ref, strconv.FormatInt(b.UserID, 10))),
		))
	}
	_, err = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgBannedUsersHeader", nil, nil)).WithReplyMarkup(&telego.InlineKeyboardMarkup{InlineKeyboard: rows}))
	return err
}

func (d *Dispatcher) unban(ctx context.Context, queryID string, userID, chatID int64, messageID int, channelID int64, cmd Command) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	ok, err := d.authorized(ctx, userID, channelID)
	if err != nil || !ok {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil), true)
		return err
	}

	target, err := strconv.ParseInt(cmd.Arg(0), 10, 64)
	if err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil), true)
		return fmt.Errorf("bad user id %q: %w", cmd.Arg(0), err)
	}
	if err := d.access.Unban(ctx, target, channelID); err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgStoreUnavailable", nil, nil), true)
		return err
	}

	d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgUnbanned", nil, nil), false)
	return d.openUnbanMenu(ctx, queryID, userID, chatID, messageID, channelID, cmd.Ref)
}

// --- reporting ---

func (d *Dispatcher) showAudit(ctx context.Context, queryID string, userID, chatID, channelID int64) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	ok, err := d.authorized(ctx, userID, channelID)
	if err != nil || !ok {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil), true)
		return err
	}

	entries, err := d.audit.RecentAudit(ctx, channelID, 15)
	if err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgStoreUnavailable", nil, nil), true)
		return err
	}

	d.answer(ctx, queryID, "", false)
	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgAuditHeader", nil, nil))
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("\n%s  %s  by %d", e.CreatedAt.Format("02.01 15:04"), e.Action, e.AdminID))
	}
	_, err = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), b.String()))
	return err
}

func (d *Dispatcher) showLeaderboard(ctx context.Context, queryID string, userID, chatID, channelID int64) error {
	localizer := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	entries, err := d.posts.Leaderboard(ctx, channelID, 10)
	if err != nil {
		d.answer(ctx, queryID, locales.GetMessage(localizer, "MsgStoreUnavailable", nil, nil), true)
		return err
	}

	d.answer(ctx, queryID, "", false)
	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgLeaderboardHeader", nil, nil))
	for i, e := range entries {
		name := e.Username
		if name == "" {
			name = strconv.FormatInt(e.UserID, 10)
		}
		b.WriteString(fmt.Sprintf("\n%d. %s — %d posts, %d reactions", i+1, name, e.Posts, e.Reactions))
	}
	_, err = d.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), b.String()))
	return err
}

// --- helpers ---

func (d *Dispatcher) authorized(ctx context.Context, userID, channelID int64) (bool, error) {
	creator, err := d.access.IsChannelCreator(ctx, userID, channelID)
	if err != nil {
		return false, err
	}
	if creator {
		return true, nil
	}
	return d.access.IsAdmin(ctx, userID, channelID)
}

func (d *Dispatcher) answer(ctx context.Context, queryID, text string, showAlert bool) {
	params := &telego.AnswerCallbackQueryParams{CallbackQueryID: queryID}
	if text != "" {
		params.Text = text
		params.ShowAlert = showAlert
	}
	if err := d.bot.AnswerCallbackQuery(ctx, params); err != nil {
		log.Printf("[Dispatch] Failed to answer callback %s: %v", queryID, err)
	}
}

func (d *Dispatcher) deleteMessage(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := d.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{ChatID: tu.ID(chatID), MessageID: messageID}); err != nil {
		log.Printf("[Dispatch Chat:%d] Failed to delete message %d: %v", chatID, messageID, err)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func nextAggressiveness(current string) string {
	switch current {
	case models.AggressivenessConservative:
		return models.AggressivenessModerate
	case models.AggressivenessModerate:
		return models.AggressivenessAggressive
	default:
		return models.AggressivenessConservative
	}
}
