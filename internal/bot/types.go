package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"consentbot/internal/confirm"
	"consentbot/internal/consent"
	"consentbot/internal/notify"
)

// Bot represents the Telegram bot wrapper
type Bot struct {
	api      *tgbotapi.BotAPI
	service  *consent.Service
	renderer *confirm.Renderer
	notifier notify.Notifier
	admins   map[int64]bool
	adminIDs []int64
	logger   *zap.Logger

	// Static documents offered to the user; their filenames are referenced in
	// the confirmation certificate
	policyPDF  string
	consentPDF string
}
