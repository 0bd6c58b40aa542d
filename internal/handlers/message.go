package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"memehub-bot/internal/locales"
)

// HandleMessage routes a non-command private message. Order matters: an
// awaited setting value or support message consumes the text before the
// submission flow sees it.
func (h *MessageHandler) HandleMessage(ctx context.Context, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	userID := message.From.ID

	if message.Text != "" && h.dispatcher.AwaitingInput(userID) {
		h.dispatcher.HandleInputValue(ctx, userID, message.Chat.ID, message.Text)
		return nil
	}

	if _, ok := h.waitingForSupport.Load(userID); ok && message.Text != "" {
		h.waitingForSupport.Delete(userID)
		return h.forwardToSupport(ctx, message)
	}

	if len(message.Photo) > 0 {
		return h.submissions.HandlePhoto(ctx, message)
	}

	if message.Text != "" {
		handled, err := h.submissions.HandleChannelSearch(ctx, message)
		if err != nil {
			return h.replyError(ctx, message.Chat.ID, err)
		}
		if handled {
			return nil
		}
		// Nothing pending: point the user at the submission flow.
		localizer := h.localizer()
		_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSubmissionRequiresPhoto", nil, nil)))
		return err
	}
	return nil
}

// HandleCommand finds and runs the registered handler for a /command message.
func (h *MessageHandler) HandleCommand(ctx context.Context, message telego.Message) (bool, error) {
	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(text, "/") {
		return false, nil
	}
	name := strings.TrimPrefix(strings.Fields(text)[0], "/")
	if at := strings.Index(name, "@"); at != -1 {
		name = name[:at]
	}

	for _, cmd := range h.commands {
		if cmd.Command == name {
			log.Printf("[Cmd:%s User:%d] Handling command", name, message.From.ID)
			return true, cmd.Handler(ctx, message)
		}
	}
	return false, nil
}

// HandleSupport asks the user for their support message.
func (h *MessageHandler) HandleSupport(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	h.waitingForSupport.Store(message.From.ID, true)
	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSupportPrompt", nil, nil)))
	return err
}

// HandleReply relays "/reply <user ID> <text>" from the support admin.
func (h *MessageHandler) HandleReply(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	if h.cfg.SupportAdminID == 0 || message.From.ID != h.cfg.SupportAdminID {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgNotAuthorized", nil, nil)))
		return err
	}

	fields := strings.Fields(message.Text)
	if len(fields) < 3 {
		_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSupportReplyUsage", nil, nil)))
		return err
	}
	targetID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		_, sendErr := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSupportReplyUsage", nil, nil)))
		return sendErr
	}
	reply := strings.Join(fields[2:], " ")

	if err := h.notify.Notify(ctx, targetID, reply); err != nil {
		return h.replyError(ctx, message.Chat.ID, err)
	}
	_, err = h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSupportReplySent", nil, nil)))
	return err
}

func (h *MessageHandler) forwardToSupport(ctx context.Context, message telego.Message) error {
	localizer := h.localizer()
	if h.cfg.SupportAdminID == 0 {
		log.Printf("[Support User:%d] Dropping support message, no SUPPORT_ADMIN_ID", message.From.ID)
	} else {
		text := fmt.Sprintf("Support from %s (ID: %d):\n%s", displayName(message.From), message.From.ID, message.Text)
		if err := h.notify.Notify(ctx, h.cfg.SupportAdminID, text); err != nil {
			return h.replyError(ctx, message.Chat.ID, err)
		}
	}
	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(localizer, "MsgSupportReceived", nil, nil)))
	return err
}

// HandleReactionCount records the aggregate reaction total Telegram reports
// for a channel message. Posts this bot never published are ignored.
func (h *MessageHandler) HandleReactionCount(ctx context.Context, update telego.MessageReactionCountUpdated) error {
	total := 0
	for _, reaction := range update.Reactions {
		total += reaction.TotalCount
	}
	matched, err := h.posts.UpdateReactions(ctx, update.MessageID, total)
	if err != nil {
		return fmt.Errorf("update reactions for message %d: %w", update.MessageID, err)
	}
	if !matched {
		log.Printf("[Reactions Chat:%d Msg:%d] No published post for reaction update", update.Chat.ID, update.MessageID)
	}
	return nil
}

// SetupCommands publishes the command menu to Telegram.
func (h *MessageHandler) SetupCommands(ctx context.Context) error {
	localizer := h.localizer()
	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(localizer, cmd.Description, nil, nil),
		})
	}
	if err := h.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("set bot commands: %w", err)
	}
	return nil
}
