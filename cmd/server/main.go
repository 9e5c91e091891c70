package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"diane/internal/audio"
	"diane/internal/classifier"
	"diane/internal/config"
	"diane/internal/confirm"
	"diane/internal/docextract"
	"diane/internal/handlers"
	"diane/internal/logging"
	"diane/internal/metrics"
	"diane/internal/store"
	"diane/internal/telegram"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logging.Init()
	cfg := config.Load()

	if cfg.TelegramBotToken == "" {
		log.Fatal("❌ TELEGRAM_BOT_TOKEN is required")
	}

	metrics.Init()

	// Item store: MongoDB when configured, SQLite otherwise
	itemStore, err := newItemStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize item store: %v", err)
	}

	// Pending-confirmation backend: Redis when configured, in-process otherwise
	pendingStore, err := newPendingStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize pending store: %v", err)
	}
	registry := confirm.NewRegistry(pendingStore, itemStore)

	// Classifier, with the LLM rule only when an API key is present
	llm := classifier.NewLLMClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	cls := classifier.New(llm)
	if llm == nil {
		log.Println("⚠️ OPENAI_API_KEY not set, classifier runs on tags and heuristics only")
	}
	if cfg.TagMapPath != "" {
		applyTagOverrides(cls, cfg.TagMapPath)
		go watchTagMap(cls, cfg.TagMapPath)
	}

	bot := telegram.NewClient(cfg.TelegramBotToken)
	audioService := audio.NewService(cfg.GroqAPIKey, cfg.OpenAIAPIKey)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "DIANE v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		BodyLimit:    10 * 1024 * 1024, // Telegram webhook payloads are small; API bodies bounded
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("diane")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	itemsHandler := handlers.NewItemsHandler(itemStore)
	intakeHandler := handlers.NewIntakeHandler(bot, cls, registry, audioService, docextract.ExtractText)
	setupHandler := handlers.NewSetupHandler(bot, cfg)

	// Routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Handle)
	app.Get("/set-webhook", setupHandler.HandleSetWebhook)

	app.Post(cfg.WebhookPath(), intakeHandler.HandleWebhook)

	api := app.Group("/api")
	api.Get("/items", itemsHandler.List)
	api.Post("/items", itemsHandler.Create)
	api.Patch("/items/:id", itemsHandler.Patch)
	api.Post("/items/bulk", itemsHandler.Bulk)

	// Register the webhook automatically when a public base URL is known.
	// AUTO_SET_WEBHOOK=false leaves registration to /set-webhook.
	if cfg.WebhookBaseURL != "" && cfg.AutoSetWebhook {
		go registerWebhook(bot, cfg)
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := itemStore.Close(ctx); err != nil {
			log.Printf("⚠️ Error closing item store: %v", err)
		}
	}()

	log.Printf("🚀 DIANE listening on port %s (webhook path %s)", cfg.Port, cfg.WebhookPath())
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// newItemStore selects the item store backend from configuration
func newItemStore(cfg *config.Config) (store.ItemStore, error) {
	if cfg.MongoURI != "" {
		return store.NewMongoStore(cfg.MongoURI, cfg.MongoDatabase)
	}
	return store.NewSQLiteStore(cfg.DatabasePath)
}

// newPendingStore selects the confirmation-registry backend
func newPendingStore(cfg *config.Config) (confirm.Store, error) {
	if cfg.RedisURL != "" {
		return confirm.NewRedisStore(cfg.RedisURL, cfg.PendingTTL)
	}
	return confirm.NewMemoryStore(cfg.PendingTTL), nil
}

// registerWebhook points Telegram at this instance on startup
func registerWebhook(bot *telegram.Client, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	url := cfg.WebhookBaseURL + cfg.WebhookPath()
	if err := bot.SetWebhook(ctx, url); err != nil {
		log.Printf("⚠️ Webhook auto-registration failed (use /set-webhook): %v", err)
	}
}

// applyTagOverrides loads the tag map file into the classifier
func applyTagOverrides(cls *classifier.Classifier, filePath string) {
	overrides, err := config.LoadTagOverrides(filePath)
	if err != nil {
		log.Printf("⚠️ Failed to load tag map %s: %v", filePath, err)
		return
	}
	cls.SetTagOverrides(overrides)
}

// watchTagMap watches the tag map file for changes and hot-reloads it
func watchTagMap(cls *classifier.Classifier, filePath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️ Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️ Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory containing the file (more reliable than watching
	// the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️ Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️ Watching %s for changes (hot-reload enabled)", filePath)

	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					log.Printf("🔄 Detected changes in %s, reloading tag map...", filePath)
					applyTagOverrides(cls, filePath)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️ File watcher error: %v", err)
		}
	}
}
