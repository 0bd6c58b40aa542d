package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	telego "github.com/mymmrac/telego"
	"go.uber.org/ratelimit"

	appBot "memehub-bot/bot"
	"memehub-bot/internal/auth"
	"memehub-bot/internal/config"
	"memehub-bot/internal/database"
	"memehub-bot/internal/dispatch"
	"memehub-bot/internal/handlers"
	"memehub-bot/internal/locales"
	"memehub-bot/internal/moderation"
	"memehub-bot/internal/notifier"
	"memehub-bot/internal/pacing"
	"memehub-bot/internal/rewards"
	"memehub-bot/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize localization bundle
	locales.Init(cfg.DefaultLanguage)

	// Initialize Sentry (if DSN is provided)
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          cfg.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Connect to MongoDB
	client, db, err := database.ConnectDB(cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}
	defer func() {
		if err = client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
			sentry.CaptureException(err)
		} else {
			log.Println("Disconnected from MongoDB.")
		}
	}()

	// Create repository instances
	postStore := database.NewMongoPostRepository(db)
	settingsStore := database.NewMongoSettingsRepository(db)
	accessStore := database.NewMongoAccessRepository(db)
	auditLogger := database.NewMongoAuditRepository(db)
	rewardStore := database.NewMongoRewardRepository(db)

	// Creating context for application lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Bot Initialization ---
	var bot *telego.Bot
	if cfg.Debug {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultDebugLogger())
	} else {
		bot, err = telego.NewBot(cfg.BotToken, telego.WithDefaultLogger(false, false))
	}
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to create telego bot: %v", err)
	}

	// Shared outgoing rate limit for channel delivery and notifications.
	limiter := ratelimit.New(20)
	notify := notifier.NewTelegramNotifier(bot, limiter)

	checker := auth.NewChecker(bot, accessStore)
	policy := pacing.NewPolicy(settingsStore, postStore)
	rewardTrigger := rewards.NewTrigger(postStore, rewardStore)
	publisher := moderation.NewPublisher(postStore, settingsStore, auditLogger, rewardTrigger, notify)
	modManager := moderation.NewManager(postStore, settingsStore, accessStore, auditLogger, checker, policy, publisher, notify)

	submissions := handlers.NewSubmissionManager(bot, postStore, settingsStore, accessStore)
	dispatcher := dispatch.NewDispatcher(bot, modManager, postStore, settingsStore, accessStore, auditLogger, submissions, notify)
	submissions.SetDispatcher(dispatcher)

	messageHandler := handlers.NewMessageHandler(
		bot,
		cfg,
		postStore,
		settingsStore,
		accessStore,
		auditLogger,
		modManager,
		dispatcher,
		submissions,
		checker,
		notify,
	)

	// message_reaction_count is not delivered unless asked for explicitly.
	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "callback_query", "message_reaction_count"},
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatalf("Failed to start long polling: %v", err)
	}

	wrapper, err := appBot.New(appBot.BotDeps{
		Bot:         bot,
		UpdatesChan: updates,
		Debug:       cfg.Debug,
		Handler:     messageHandler,
		Dispatcher:  dispatcher,
	})
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal(err)
	}

	// Drain due scheduled posts alongside the update loop.
	schedulerLoop := scheduler.NewLoop(postStore, publisher, cfg.SchedulerInterval)
	go schedulerLoop.Run(ctx)

	go wrapper.Start(ctx)

	// Wait for context cancellation (e.g., SIGINT, SIGTERM)
	<-ctx.Done()

	log.Println("Shutting down bot...")
	wrapper.Stop()

	log.Println("Bot shutdown complete.")
}
