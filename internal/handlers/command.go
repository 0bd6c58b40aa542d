package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"memehub-bot/internal/database/models"
	"memehub-bot/internal/dispatch"
	"memehub-bot/internal/locales"
)

// HandleStart greets the user.
func (h *MessageHandler) HandleStart(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgStart", nil, nil)))
	return err
}

// HandleHelp lists the commands available to this user.
func (h *MessageHandler) HandleHelp(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()

	moderatesAny := false
	channels, err := h.access.ListAdminChannels(ctx, message.From.ID)
	if err != nil {
		log.Printf("[Cmd:help User:%d] Failed to list admin channels: %v", message.From.ID, err)
	} else {
		moderatesAny = len(channels) > 0
	}

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgHelpHeader", nil, nil) + "\n")
	for _, cmd := range h.commands {
		if cmd.AdminOnly && !moderatesAny {
			continue
		}
		desc := locales.GetMessage(localizer, cmd.Description, nil, nil)
		b.WriteString(fmt.Sprintf("/%s - %s\n", cmd.Command, desc))
	}

	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), b.String()))
	return err
}

// HandleModerate offers the user's channels and opens the chosen queue.
func (h *MessageHandler) HandleModerate(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	userID := message.From.ID

	channelIDs, err := h.moderatedChannels(ctx, userID)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}
	if len(channelIDs) == 0 {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil)))
		return err
	}

	refs, err := h.dispatcher.RegisterChannels(userID, channelIDs)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(channelIDs))
	for i, channelID := range channelIDs {
		title := h.notify.ResolveDisplayName(ctx, channelID)
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(title).WithCallbackData(dispatch.Data(dispatch.VerbModerate, refs[i])),
		))
	}
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgModerationChooseChannel", nil, nil)).
		WithReplyMarkup(&telego.InlineKeyboardMarkup{InlineKeyboard: rows}))
	return err
}

// HandleAddChannel registers a channel and syncs its admin list. The caller
// must be an administrator of the channel itself.
func (h *MessageHandler) HandleAddChannel(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	arg := strings.TrimSpace(strings.TrimPrefix(message.Text, "/addchannel"))
	if arg == "" {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgChannelAddUsage", nil, nil)))
		return err
	}

	var chatID telego.ChatID
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		chatID = tu.ID(id)
	} else {
		chatID = tu.Username(arg)
	}

	chat, err := h.bot.GetChat(ctx, &telego.GetChatParams{ChatID: chatID})
	if err != nil {
		log.Printf("[Cmd:addchannel User:%d] GetChat %q failed: %v", message.From.ID, arg, err)
		_, sendErr := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgChannelAddFailed", nil, nil)))
		return sendErr
	}
	if chat.Type != telego.ChatTypeChannel {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgChannelAddFailed", nil, nil)))
		return err
	}

	member, err := h.bot.GetChatMember(ctx, &telego.GetChatMemberParams{ChatID: tu.ID(chat.ID), UserID: message.From.ID})
	if err != nil {
		log.Printf("[Cmd:addchannel User:%d Channel:%d] GetChatMember failed: %v", message.From.ID, chat.ID, err)
		_, sendErr := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgChannelAddFailed", nil, nil)))
		return sendErr
	}
	status := member.MemberStatus()
	if status != telego.MemberStatusCreator && status != telego.MemberStatusAdministrator {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgChannelAddFailed", nil, nil)))
		return err
	}

	if err := h.access.AddChannel(ctx, &models.Channel{
		ChannelID: chat.ID,
		Title:     chat.Title,
		AddedBy:   message.From.ID,
		AddedAt:   time.Now().UTC(),
	}); err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}

	synced, err := h.checker.SyncChannelAdmins(ctx, chat.ID)
	if err != nil {
		log.Printf("[Cmd:addchannel Channel:%d] Admin sync failed: %v", chat.ID, err)
	}

	text := locales.GetMessage(localizer, "MsgChannelAdded", map[string]interface{}{
		"Title":  chat.Title,
		"Admins": synced,
	}, nil)
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), text))
	return err
}

// HandleChannels lists the channels the user moderates.
func (h *MessageHandler) HandleChannels(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	channelIDs, err := h.moderatedChannels(ctx, message.From.ID)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}
	if len(channelIDs) == 0 {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgNoChannels", nil, nil)))
		return err
	}

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgChannelList", nil, nil))
	for _, channelID := range channelIDs {
		count, err := h.posts.CountPending(ctx, channelID)
		if err != nil {
			count = 0
		}
		b.WriteString(fmt.Sprintf("\n%s — %d pending", h.notify.ResolveDisplayName(ctx, channelID), count))
	}
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), b.String()))
	return err
}

// HandleSettings opens the settings menu for one of the user's channels.
func (h *MessageHandler) HandleSettings(ctx context.Context, message telego.Message) error {
	return h.channelMenu(ctx, message, dispatch.VerbSettings, "MsgModerationChooseChannel")
}

// HandleQueue reports pending queue sizes per moderated channel.
func (h *MessageHandler) HandleQueue(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	channelIDs, err := h.moderatedChannels(ctx, message.From.ID)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}

	var total int64
	var b strings.Builder
	for _, channelID := range channelIDs {
		count, err := h.posts.CountPending(ctx, channelID)
		if err != nil {
			return h.replyError(ctx, message.Chat.ID, err)
		}
		total += count
		scheduled, err := h.posts.ListScheduledByChannel(ctx, channelID)
		if err != nil {
			return h.replyError(ctx, message.Chat.ID, err)
		}
		b.WriteString(fmt.Sprintf("\n%s: %d pending, %d scheduled", h.notify.ResolveDisplayName(ctx, channelID), count, len(scheduled)))
	}

	header := locales.GetMessage(localizer, "MsgQueueStatus", map[string]interface{}{"Count": total}, nil)
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), header+b.String()))
	return err
}

// HandleAudit opens the audit view for one of the user's channels.
func (h *MessageHandler) HandleAudit(ctx context.Context, message telego.Message) error {
	return h.channelMenu(ctx, message, dispatch.VerbAudit, "MsgAuditHeader")
}

// HandleStats summarizes moderation activity across the user's channels.
func (h *MessageHandler) HandleStats(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	channelIDs, err := h.moderatedChannels(ctx, message.From.ID)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgStatsHeader", nil, nil))
	for _, action := range []string{models.AuditPublished, models.AuditAutoPublished, models.AuditScheduled, models.AuditSmartScheduled, models.AuditRejected, models.AuditBanned} {
		count, err := h.audit.CountAuditByAction(ctx, channelIDs, action)
		if err != nil {
			return h.replyError(ctx, message.Chat.ID, err)
		}
		b.WriteString(fmt.Sprintf("\n%s: %d", action, count))
	}
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), b.String()))
	return err
}

// HandleLeaderboard shows the global submitter leaderboard.
func (h *MessageHandler) HandleLeaderboard(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	entries, err := h.posts.Leaderboard(ctx, 0, 10)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}

	var b strings.Builder
	b.WriteString(locales.GetMessage(localizer, "MsgLeaderboardHeader", nil, nil))
	for i, e := range entries {
		name := e.Username
		if name == "" {
			name = strconv.FormatInt(e.UserID, 10)
		}
		b.WriteString(fmt.Sprintf("\n%d. %s — %d posts, %d reactions", i+1, name, e.Posts, e.Reactions))
	}
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), b.String()))
	return err
}

// HandleTopChannel names the channel with the most publishes this week.
func (h *MessageHandler) HandleTopChannel(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	channels, err := h.access.ListChannels(ctx)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}
	if len(channels) == 0 {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgNoChannels", nil, nil)))
		return err
	}

	var topChannel models.Channel
	var topCount int64 = -1
	for _, ch := range channels {
		count, err := h.audit.CountAuditByAction(ctx, []int64{ch.ChannelID}, models.AuditPublished)
		if err != nil {
			return h.replyError(ctx, message.Chat.ID, err)
		}
		if count > topCount {
			topCount = count
			topChannel = ch
		}
	}

	text := locales.GetMessage(localizer, "MsgTopChannelHeader", map[string]interface{}{"Title": topChannel.Title}, nil)
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), text))
	return err
}

// HandleUnban opens the banned-user menu for one of the user's channels.
func (h *MessageHandler) HandleUnban(ctx context.Context, message telego.Message) error {
	return h.channelMenu(ctx, message, dispatch.VerbUnbanMenu, "MsgModerationChooseChannel")
}

// HandleUpdate re-syncs admin lists for every channel the user created.
func (h *MessageHandler) HandleUpdate(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	channels, err := h.access.ListChannels(ctx)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}

	totalSynced := 0
	for _, ch := range channels {
		creator, err := h.access.IsChannelCreator(ctx, message.From.ID, ch.ChannelID)
		if err != nil || !creator {
			continue
		}
		synced, err := h.checker.SyncChannelAdmins(ctx, ch.ChannelID)
		if err != nil {
			log.Printf("[Cmd:update Channel:%d] Sync failed: %v", ch.ChannelID, err)
			continue
		}
		totalSynced += synced
	}

	text := locales.GetMessage(localizer, "MsgAdminsSynced", map[string]interface{}{"Count": totalSynced}, nil)
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), text))
	return err
}

// HandleVersion reports the running build.
func (h *MessageHandler) HandleVersion(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	text := locales.GetMessage(localizer, "MsgVersion", map[string]interface{}{"Version": h.cfg.Version}, nil)
	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), text))
	return err
}

// channelMenu sends one button per moderated channel, all bound to verb.
func (h *MessageHandler) channelMenu(ctx context.Context, message telego.Message, verb, headerMsgID string) error {
	localizer := h.localizer()
	userID := message.From.ID

	channelIDs, err := h.moderatedChannels(ctx, userID)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}
	if len(channelIDs) == 0 {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil)))
		return err
	}

	refs, err := h.dispatcher.RegisterChannels(userID, channelIDs)
	if err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(channelIDs))
	for i, channelID := range channelIDs {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(h.notify.ResolveDisplayName(ctx, channelID)).WithCallbackData(dispatch.Data(verb, refs[i])),
		))
	}
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, headerMsgID, nil, nil)).
		WithReplyMarkup(&telego.InlineKeyboardMarkup{InlineKeyboard: rows}))
	return err
}

// moderatedChannels returns channels the user created plus channels where
// they sit on the synced admin list.
func (h *MessageHandler) moderatedChannels(ctx context.Context, userID int64) ([]int64, error) {
	adminOf, err := h.access.ListAdminChannels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list admin channels: %w", err)
	}
	seen := make(map[int64]bool, len(adminOf))
	for _, id := range adminOf {
		seen[id] = true
	}

	channels, err := h.access.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	for _, ch := range channels {
		if seen[ch.ChannelID] {
			continue
		}
		creator, err := h.access.IsChannelCreator(ctx, userID, ch.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("check creator: %w", err)
		}
		if creator {
			adminOf = append(adminOf, ch.ChannelID)
		}
	}
	return adminOf, nil
}

func (h *MessageHandler) localizer() *i18n.Localizer {
	return locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
}

func (h *MessageHandler) replyError(ctx context.Context, chatID int64, cause error) error {
	log.Printf("[Handlers Chat:%d] %v", chatID, cause)
	localizer := h.localizer()
	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(localizer, "MsgErrorGeneral", nil, nil)))
	if err != nil {
		return err
	}
	return cause
}
