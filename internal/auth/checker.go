package auth

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mymmrac/telego"

	"memehub-bot/internal/database"
	"memehub-bot/internal/database/models"
	"memehub-bot/pkg/telegoapi"
)

// Checker answers whether a user may moderate a given channel. The channel's
// admin list lives in the store and is refreshed from Telegram on demand.
type Checker struct {
	bot    telegoapi.BotAPI
	access database.AccessStore
}

// NewChecker creates a Checker over the given bot client and access store.
func NewChecker(bot telegoapi.BotAPI, access database.AccessStore) *Checker {
	return &Checker{bot: bot, access: access}
}

// IsAuthorized reports whether the user is a registered moderator of the
// channel, either its creator or a synced admin.
func (c *Checker) IsAuthorized(ctx context.Context, userID, channelID int64) (bool, error) {
	creator, err := c.access.IsChannelCreator(ctx, userID, channelID)
	if err != nil {
		return false, fmt.Errorf("check channel creator: %w", err)
	}
	if creator {
		return true, nil
	}
	admin, err := c.access.IsAdmin(ctx, userID, channelID)
	if err != nil {
		return false, fmt.Errorf("check channel admin: %w", err)
	}
	return admin, nil
}

// SyncChannelAdmins pulls the current administrator list from Telegram and
// replaces the stored one. Called when a channel is registered and from the
// manual refresh command.
func (c *Checker) SyncChannelAdmins(ctx context.Context, channelID int64) (int, error) {
	members, err := c.bot.GetChatAdministrators(ctx, &telego.GetChatAdministratorsParams{
		ChatID: telego.ChatID{ID: channelID},
	})
	if err != nil {
		return 0, fmt.Errorf("get chat administrators for %d: %w", channelID, err)
	}

	now := time.Now()
	admins := make([]models.ChannelAdmin, 0, len(members))
	for _, member := range members {
		user := member.MemberUser()
		if user.IsBot {
			continue
		}
		admins = append(admins, models.ChannelAdmin{
			ChannelID: channelID,
			UserID:    user.ID,
			Username:  user.Username,
			UpdatedAt: now,
		})
	}
	if err := c.access.ReplaceChannelAdmins(ctx, channelID, admins); err != nil {
		return 0, fmt.Errorf("store channel admins for %d: %w", channelID, err)
	}
	log.Printf("[Auth Channel:%d] Synced %d admins", channelID, len(admins))
	return len(admins), nil
}
