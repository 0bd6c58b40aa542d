package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"

	"memehub-bot/pkg/telegoapi"
)

// ErrDeliveryFailed indicates the Telegram API rejected or failed an outgoing
// send. The wrapped cause carries the API detail.
var ErrDeliveryFailed = errors.New("delivery failed")

// Notifier sends content to channels and direct notifications to users.
type Notifier interface {
	// Deliver posts a photo with caption to the channel and returns the
	// resulting channel message ID.
	Deliver(ctx context.Context, channelID int64, fileID, caption string) (int, error)
	// Notify sends a plain text message to a user. Best effort: callers
	// treat a failure as non-fatal.
	Notify(ctx context.Context, userID int64, text string) error
	// ResolveDisplayName returns a human-readable title for a chat,
	// falling back to the numeric ID when the lookup fails.
	ResolveDisplayName(ctx context.Context, chatID int64) string
}

// TelegramNotifier delivers through the Bot API behind a shared rate limiter.
type TelegramNotifier struct {
	bot     telegoapi.BotAPI
	limiter ratelimit.Limiter
	timeout time.Duration
}

// NewTelegramNotifier creates a notifier over the given bot client.
func NewTelegramNotifier(bot telegoapi.BotAPI, limiter ratelimit.Limiter) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, limiter: limiter, timeout: 30 * time.Second}
}

func (n *TelegramNotifier) Deliver(ctx context.Context, channelID int64, fileID, caption string) (int, error) {
	n.limiter.Take()
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	params := &telego.SendPhotoParams{
		ChatID: telegoutil.ID(channelID),
		Photo:  telego.InputFile{FileID: fileID},
	}
	if caption != "" {
		params.Caption = caption
	}
	msg, err := n.bot.SendPhoto(sendCtx, params)
	if err != nil {
		return 0, fmt.Errorf("send photo to %d: %w: %v", channelID, ErrDeliveryFailed, err)
	}
	return msg.MessageID, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, text string) error {
	n.limiter.Take()
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.bot.SendMessage(sendCtx, telegoutil.Message(telegoutil.ID(userID), text))
	if err != nil {
		return fmt.Errorf("notify user %d: %w: %v", userID, ErrDeliveryFailed, err)
	}
	return nil
}

func (n *TelegramNotifier) ResolveDisplayName(ctx context.Context, chatID int64) string {
	n.limiter.Take()
	getCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	chat, err := n.bot.GetChat(getCtx, &telego.GetChatParams{ChatID: telegoutil.ID(chatID)})
	if err != nil {
		log.Printf("[Notifier] Failed to resolve chat %d title: %v", chatID, err)
		return strconv.FormatInt(chatID, 10)
	}
	if chat.Title != "" {
		return chat.Title
	}
	if chat.Username != "" {
		return "@" + chat.Username
	}
	return strconv.FormatInt(chatID, 10)
}
