package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	"go.uber.org/ratelimit"

	"memehub-bot/internal/dispatch"
	"memehub-bot/internal/handlers"
	"memehub-bot/pkg/telegoapi"
)

// Bot wraps the telego update stream: it routes messages to the message
// handler and callback queries to the dispatcher, with panic recovery and
// global rate limiting around every update.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	debug       bool
	handler     *handlers.MessageHandler
	dispatcher  *dispatch.Dispatcher
	ratelimiter ratelimit.Limiter
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot         telegoapi.BotAPI
	UpdatesChan <-chan telego.Update
	Debug       bool
	Handler     *handlers.MessageHandler
	Dispatcher  *dispatch.Dispatcher
}

// New creates a new Bot instance from its dependencies.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}

	return &Bot{
		bot:         deps.Bot,
		updatesChan: deps.UpdatesChan,
		debug:       deps.Debug,
		handler:     deps.Handler,
		dispatcher:  deps.Dispatcher,
		ratelimiter: ratelimit.New(20),
	}, nil
}

// processUpdate routes one incoming update to the appropriate handler.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in processUpdate: %v\n%s", r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			sentry.Flush(time.Second * 2)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch {
	case update.Message != nil:
		message := *update.Message
		if message.From == nil {
			log.Printf("Ignoring message %d from chat %d without sender", message.MessageID, message.Chat.ID)
			return
		}

		if strings.HasPrefix(message.Text, "/") {
			handled, err := b.handler.HandleCommand(processingCtx, message)
			if err != nil {
				log.Printf("[Update Msg:%d] Command handler error: %v", message.MessageID, err)
				sentry.CaptureException(fmt.Errorf("command handler error: %w", err))
			}
			if !handled {
				log.Printf("[Update Msg:%d] Unknown command: %q", message.MessageID, message.Text)
			}
			return
		}

		if err := b.handler.HandleMessage(processingCtx, message); err != nil {
			log.Printf("[Update Msg:%d] Message handler error: %v", message.MessageID, err)
			sentry.CaptureException(fmt.Errorf("message handler error: %w", err))
		}

	case update.MessageReactionCount != nil:
		if err := b.handler.HandleReactionCount(processingCtx, *update.MessageReactionCount); err != nil {
			log.Printf("[Update Chat:%d] Reaction count handler error: %v", update.MessageReactionCount.Chat.ID, err)
		}

	case update.CallbackQuery != nil:
		query := *update.CallbackQuery
		if b.debug {
			log.Printf("[Callback User:%d QueryID:%s] Data: %q", query.From.ID, query.ID, query.Data)
		}
		if err := b.dispatcher.HandleCallback(processingCtx, query); err != nil {
			sentry.CaptureException(fmt.Errorf("callback handler error: %w", err))
		}

	default:
		if b.debug {
			log.Printf("Ignoring unhandled update type: %+v", update)
		}
	}
}

// Start begins the bot's update processing loop and blocks until the
// context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	if err := b.handler.SetupCommands(ctx); err != nil {
		log.Printf("Failed to set bot commands: %v", err)
		sentry.CaptureException(err)
	}

	log.Println("Listening for updates...")
	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			log.Println("Context done, stopping update processing...")
			wg.Wait()
			log.Println("All update processing finished.")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Println("Updates channel closed.")
				wg.Wait()
				return
			}
			wg.Add(1)
			go func(up telego.Update) {
				defer wg.Done()
				b.processUpdate(ctx, up)
			}(update)
		}
	}
}

// Stop gracefully stops the bot. The actual shutdown is driven by context
// cancellation in Start.
func (b *Bot) Stop() {
	log.Println("Bot Stop method called. Actual stop triggered by context cancellation.")
}
