package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"consentbot/internal/bot"
	"consentbot/internal/config"
	"consentbot/internal/confirm"
	"consentbot/internal/consent"
	"consentbot/internal/storage"
	"consentbot/internal/storage/ch"
	"consentbot/internal/storage/stubs"
	"consentbot/internal/storage/xlsx"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	ledger storage.Ledger
	bot    *bot.Bot
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envLoaded := godotenv.Load() == nil

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if !envLoaded {
		logger.Info("No .env file found, using system environment variables")
	}

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting Consent Bot...")

	// Initialize the consent ledger
	if err := app.initLedger(); err != nil {
		return nil, err
	}

	// Initialize bot
	if err := app.initBot(); err != nil {
		return nil, err
	}

	// Initialize HTTP server
	app.initHTTPServer()

	return app, nil
}

// initLedger initializes the configured ledger backend
func (a *App) initLedger() error {
	var ledger storage.Ledger
	switch a.config.LedgerBackend {
	case config.BackendMock:
		a.logger.Info("Using in-memory ledger")
		ledger = stubs.NewMockLedger(a.config.LedgerStrategy)
	case config.BackendXLSX:
		a.logger.Info("Using spreadsheet ledger",
			zap.String("path", a.config.LedgerFile),
			zap.String("strategy", string(a.config.LedgerStrategy)),
		)
		ledger = xlsx.NewXLSXLedger(a.config.LedgerFile, a.config.LedgerStrategy)
	case config.BackendClickHouse:
		tlsStatus := "without TLS"
		if a.config.ClickHouseUseTLS {
			tlsStatus = "with TLS"
		}
		a.logger.Info(fmt.Sprintf("Connecting to ClickHouse at %s:%d (database: %s, user: %s, %s)",
			a.config.ClickHouseHost, a.config.ClickHousePort, a.config.ClickHouseDatabase, a.config.ClickHouseUser, tlsStatus))
		clickhouseLedger, err := ch.NewClickHouseLedger(
			a.config.ClickHouseHost,
			a.config.ClickHousePort,
			a.config.ClickHouseDatabase,
			a.config.ClickHouseUser,
			a.config.ClickHousePassword,
			a.config.ClickHouseUseTLS,
			a.config.LedgerStrategy,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		ledger = clickhouseLedger
	}

	// Initialize ledger schema (create-on-first-use for the xlsx backend)
	ctx := context.Background()
	if err := ledger.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	a.logger.Info("Ledger initialized successfully")

	a.ledger = ledger
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	service := consent.NewService(a.ledger, a.config.AllowReconsider, a.logger)
	renderer := confirm.NewRenderer(a.config.FontPath, a.config.BoldFontPath, a.logger)

	telegramBot, err := bot.NewBot(
		a.config.TelegramToken,
		service,
		renderer,
		a.config.AdminIDs,
		a.config.PolicyPDF,
		a.config.ConsentPDF,
		a.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int64s("admin_ids", a.config.AdminIDs))

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the HTTP server for health checks and webhook
func (a *App) initHTTPServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // Default port
	}

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	// Root endpoint
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		fmt.Fprintf(w, "Consent Bot is running (mode: %s)", mode)
	})

	// Webhook endpoint (only used in webhook mode)
	mux.HandleFunc("/telegram-webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.logger.Warn("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Process update in background to respond quickly to Telegram
		go a.bot.HandleWebhookUpdate(update)

		w.WriteHeader(http.StatusOK)
	})

	a.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start HTTP server in background
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in appropriate mode
	if a.config.WebhookMode {
		// Webhook mode: configure webhook and wait for HTTP requests
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("webhook_url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
		a.logger.Info("Webhook configured. Bot will receive updates via HTTP endpoint /telegram-webhook")
	} else {
		// Polling mode: actively poll Telegram servers
		go func() {
			a.logger.Info("Starting bot in POLLING mode...")
			if err := a.bot.Start(); err != nil {
				a.logger.Fatal("Failed to start bot", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Close the ledger
	if err := a.ledger.Close(); err != nil {
		a.logger.Error("Error closing ledger", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
