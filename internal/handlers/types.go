package handlers

import (
	"context"
	"log"
	"sync"

	"github.com/mymmrac/telego"

	"memehub-bot/internal/auth"
	"memehub-bot/internal/config"
	"memehub-bot/internal/database"
	"memehub-bot/internal/dispatch"
	"memehub-bot/internal/moderation"
	"memehub-bot/internal/notifier"
	"memehub-bot/pkg/telegoapi"
)

// Command represents a bot command, mapping the command string to its
// description and handler function.
type Command struct {
	Command     string // The command string (e.g., "start").
	Description string // Message ID of the description shown by /help and in the command menu.
	Handler     func(context.Context, telego.Message) error
	AdminOnly   bool // Hidden from users who moderate no channel.
}

// MessageHandler routes private-chat traffic: commands, photo submissions,
// channel-search text and awaited setting values.
type MessageHandler struct {
	bot         telegoapi.BotAPI
	cfg         *config.Config
	posts       database.PostStore
	settings    database.SettingsStore
	access      database.AccessStore
	audit       database.AuditLogger
	mod         *moderation.Manager
	dispatcher  *dispatch.Dispatcher
	submissions *SubmissionManager
	checker     *auth.Checker
	notify      notifier.Notifier

	// waitingForSupport marks users whose next message goes to support.
	// Key: userID (int64), Value: true (bool)
	waitingForSupport sync.Map

	commands []Command
}

// NewMessageHandler creates and initializes a new MessageHandler instance.
func NewMessageHandler(
	bot telegoapi.BotAPI,
	cfg *config.Config,
	posts database.PostStore,
	settings database.SettingsStore,
	access database.AccessStore,
	audit database.AuditLogger,
	mod *moderation.Manager,
	dispatcher *dispatch.Dispatcher,
	submissions *SubmissionManager,
	checker *auth.Checker,
	notify notifier.Notifier,
) *MessageHandler {
	if checker == nil {
		log.Fatal("MessageHandler: auth checker dependency is nil")
	}
	h := &MessageHandler{
		bot:         bot,
		cfg:         cfg,
		posts:       posts,
		settings:    settings,
		access:      access,
		audit:       audit,
		mod:         mod,
		dispatcher:  dispatcher,
		submissions: submissions,
		checker:     checker,
		notify:      notify,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDesc", Handler: h.HandleHelp},
		{Command: "moderate", Description: "CmdModerateDesc", Handler: h.HandleModerate, AdminOnly: true},
		{Command: "addchannel", Description: "CmdAddChannelDesc", Handler: h.HandleAddChannel},
		{Command: "channels", Description: "CmdChannelsDesc", Handler: h.HandleChannels, AdminOnly: true},
		{Command: "settings", Description: "CmdSettingsDesc", Handler: h.HandleSettings, AdminOnly: true},
		{Command: "queue", Description: "CmdQueueDesc", Handler: h.HandleQueue, AdminOnly: true},
		{Command: "audit", Description: "CmdAuditDesc", Handler: h.HandleAudit, AdminOnly: true},
		{Command: "stats", Description: "CmdStatsDesc", Handler: h.HandleStats, AdminOnly: true},
		{Command: "leaderboard", Description: "CmdLeaderboardDesc", Handler: h.HandleLeaderboard},
		{Command: "topchannel", Description: "CmdTopChannelDesc", Handler: h.HandleTopChannel},
		{Command: "unban", Description: "CmdUnbanDesc", Handler: h.HandleUnban, AdminOnly: true},
		{Command: "update", Description: "CmdUpdateDesc", Handler: h.HandleUpdate, AdminOnly: true},
		{Command: "support", Description: "CmdSupportDesc", Handler: h.HandleSupport},
		{Command: "reply", Description: "CmdReplyDesc", Handler: h.HandleReply, AdminOnly: true},
		{Command: "version", Description: "CmdVersionDesc", Handler: h.HandleVersion},
	}
	return h
}

// Commands returns the registered command list.
func (h *MessageHandler) Commands() []Command {
	return h.commands
}
