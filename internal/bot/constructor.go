package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"consentbot/internal/confirm"
	"consentbot/internal/consent"
	"consentbot/internal/notify"
)

// NewBot creates a new Telegram bot
func NewBot(token string, service *consent.Service, renderer *confirm.Renderer, adminIDs []int64, policyPDF, consentPDF string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	admins := make(map[int64]bool)
	for _, id := range adminIDs {
		admins[id] = true
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		api:        api,
		service:    service,
		renderer:   renderer,
		notifier:   notify.NewTelegramNotifier(api, logger),
		admins:     admins,
		adminIDs:   adminIDs,
		logger:     logger,
		policyPDF:  policyPDF,
		consentPDF: consentPDF,
	}, nil
}

// GetAPI returns the bot API for testing
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}
