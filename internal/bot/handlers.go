package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			msg := tgbotapi.NewMessage(message.Chat.ID, "Произошла ошибка при обработке запроса. Попробуйте ещё раз.")
			b.sendMessage(msg)
		}
	}()

	if !message.IsCommand() {
		return
	}

	ctx := context.Background()

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "report":
		b.handleReport(ctx, message)
	case "clear":
		b.handleClear(ctx, message)
	case "help":
		b.handleHelp(message)
	default:
		msg := tgbotapi.NewMessage(message.Chat.ID, "Неизвестная команда. Используйте /help.")
		b.sendMessage(msg)
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	ctx := context.Background()

	switch query.Data {
	case "policy_pdf":
		b.handlePolicyDocument(query)
	case "consent_pdf":
		b.handleConsentDocument(query)
	case "agree", "disagree":
		b.handleConsentChoice(ctx, query)
	default:
		b.answerCallback(query.ID, "")
	}
}

// sendMessage sends a message, tolerating a nil API for tests
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.api == nil {
		return
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err),
		)
	}
}

// sendDocument sends a document, tolerating a nil API for tests
func (b *Bot) sendDocument(doc tgbotapi.DocumentConfig) {
	if b.api == nil {
		return
	}
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("Failed to send document",
			zap.Int64("chat_id", doc.ChatID),
			zap.Error(err),
		)
	}
}

// answerCallback acknowledges a callback query to clear the loading state
func (b *Bot) answerCallback(callbackID, text string) {
	if b.api == nil {
		return
	}
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Warn("Failed to answer callback query", zap.Error(err))
	}
}
