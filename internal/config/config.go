package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"consentbot/internal/storage"
)

// Ledger backend selection
const (
	BackendClickHouse = "clickhouse"
	BackendXLSX       = "xlsx"
	BackendMock       = "mock"
)

// Config holds the application configuration, loaded once at startup and
// immutable for the process lifetime
type Config struct {
	TelegramToken string
	AdminIDs      []int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)

	// Consent rules
	AllowReconsider bool // Whether a Declined user may still switch to Agreed

	// Ledger configuration
	LedgerBackend  string
	LedgerStrategy storage.Strategy
	LedgerFile     string // Workbook path for the xlsx backend

	// Static documents shown to the user and referenced in confirmations
	PolicyPDF  string
	ConsentPDF string

	// Confirmation PDF fonts (optional, defaults probed at render time)
	FontPath     string
	BoldFontPath string

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin IDs (required): operators who receive notifications and may run
	// /report and /clear
	adminIDsStr := os.Getenv("ADMIN_IDS")
	if adminIDsStr == "" {
		return nil, fmt.Errorf("ADMIN_IDS is required (comma-separated list of Telegram user IDs)")
	}

	idStrs := strings.Split(adminIDsStr, ",")
	for _, idStr := range idStrs {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in ADMIN_IDS: %s", idStr)
		}
		config.AdminIDs = append(config.AdminIDs, id)
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	// Declined users may reconsider unless explicitly disabled
	config.AllowReconsider = os.Getenv("ALLOW_RECONSIDER") != "false"

	// Ledger backend (default: xlsx workbook next to the binary)
	config.LedgerBackend = os.Getenv("LEDGER_BACKEND")
	if config.LedgerBackend == "" {
		config.LedgerBackend = BackendXLSX
	}
	switch config.LedgerBackend {
	case BackendClickHouse, BackendXLSX, BackendMock:
	default:
		return nil, fmt.Errorf("invalid LEDGER_BACKEND: %s (expected clickhouse, xlsx or mock)", config.LedgerBackend)
	}

	strategyStr := os.Getenv("LEDGER_STRATEGY")
	if strategyStr == "" {
		config.LedgerStrategy = storage.StrategyAppend
	} else {
		strategy, ok := storage.ParseStrategy(strategyStr)
		if !ok {
			return nil, fmt.Errorf("invalid LEDGER_STRATEGY: %s (expected append or replace)", strategyStr)
		}
		config.LedgerStrategy = strategy
	}

	config.LedgerFile = os.Getenv("LEDGER_FILE")
	if config.LedgerFile == "" {
		config.LedgerFile = "consents.xlsx"
	}

	config.PolicyPDF = os.Getenv("POLICY_PDF")
	if config.PolicyPDF == "" {
		config.PolicyPDF = "consent.pdf"
	}
	config.ConsentPDF = os.Getenv("CONSENT_PDF")
	if config.ConsentPDF == "" {
		config.ConsentPDF = "consent2.pdf"
	}

	config.FontPath = os.Getenv("FONT_PATH")
	config.BoldFontPath = os.Getenv("FONT_BOLD_PATH")

	// ClickHouse configuration (required for the clickhouse backend)
	if config.LedgerBackend == BackendClickHouse {
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when LEDGER_BACKEND is clickhouse")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			config.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			config.ClickHousePort = port
		}

		config.ClickHouseDatabase = os.Getenv("CLICKHOUSE_DATABASE")
		if config.ClickHouseDatabase == "" {
			config.ClickHouseDatabase = "default"
		}

		config.ClickHouseUser = os.Getenv("CLICKHOUSE_USER")
		if config.ClickHouseUser == "" {
			config.ClickHouseUser = "default"
		}

		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		// Password is optional, can be empty

		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	}

	return config, nil
}

// IsAdmin reports whether the user is a configured operator
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
