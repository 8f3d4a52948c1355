package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"consentbot/internal/consent"
	"consentbot/internal/models"
	"consentbot/internal/storage"
)

// handlePolicyDocument sends the privacy policy PDF
func (b *Bot) handlePolicyDocument(query *tgbotapi.CallbackQuery) {
	doc := tgbotapi.NewDocument(query.Message.Chat.ID, tgbotapi.FilePath(b.policyPDF))
	doc.Caption = "Политика конфиденциальности (PDF)"
	b.sendDocument(doc)
	b.answerCallback(query.ID, "")
}

// handleConsentDocument sends the consent text PDF
func (b *Bot) handleConsentDocument(query *tgbotapi.CallbackQuery) {
	doc := tgbotapi.NewDocument(query.Message.Chat.ID, tgbotapi.FilePath(b.consentPDF))
	doc.Caption = "Текст согласия (PDF)"
	b.sendDocument(doc)
	b.answerCallback(query.ID, "")
}

// handleConsentChoice records an agree/disagree action, sends the confirmation
// certificate and notifies operators
func (b *Bot) handleConsentChoice(ctx context.Context, query *tgbotapi.CallbackQuery) {
	requested := models.StatusDeclined
	if query.Data == "agree" {
		requested = models.StatusAgreed
	}

	user := models.User{
		ID:        query.From.ID,
		Username:  query.From.UserName,
		FirstName: query.From.FirstName,
		LastName:  query.From.LastName,
	}
	chatID := query.Message.Chat.ID

	outcome, err := b.service.Submit(ctx, user, requested)
	if err != nil {
		// Storage failure: the event was not recorded, the user should retry
		if errors.Is(err, storage.ErrStorage) {
			b.logger.Error("Failed to record consent",
				zap.Int64("user_id", user.ID),
				zap.Error(err),
			)
		}
		b.sendMessage(tgbotapi.NewMessage(chatID,
			"⚠️ Не удалось зафиксировать ответ. Попробуйте ещё раз."))
		b.answerCallback(query.ID, "")
		return
	}

	if !outcome.Decision.Allowed {
		b.sendMessage(tgbotapi.NewMessage(chatID, rejectionText(outcome)))
		b.answerCallback(query.ID, "")
		return
	}

	event := outcome.Event

	// Ledger write is done; rendering and fan-out stay off the critical path
	pdfBytes, renderErr := b.renderer.Render(event, []string{b.policyPDF, b.consentPDF})
	if renderErr != nil {
		b.logger.Error("Failed to render confirmation",
			zap.Int64("user_id", user.ID),
			zap.Error(renderErr),
		)
		b.sendMessage(tgbotapi.NewMessage(chatID,
			"Ваш выбор зафиксирован, но документ-подтверждение сформировать не удалось."))
		go b.notifier.Broadcast(context.Background(), b.adminIDs,
			fmt.Sprintf("⚠️ Ошибка формирования подтверждения для %d: %v", user.ID, renderErr))
	} else {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  fmt.Sprintf("confirmation_%d.pdf", user.ID),
			Bytes: pdfBytes,
		})
		doc.Caption = "Подтверждение (PDF)"
		b.sendDocument(doc)
	}

	// Fire-and-forget operator broadcast; failures are logged by the notifier
	notification := fmt.Sprintf("📢 %s (%d) выбрал: %s", user.FirstName, user.ID, event.Status)
	go b.notifier.Broadcast(context.Background(), b.adminIDs, notification)

	b.answerCallback(query.ID, "Ответ зафиксирован ✅")
}

// rejectionText explains a rejected transition to the user
func rejectionText(outcome consent.Outcome) string {
	switch outcome.Decision.Reason {
	case consent.ReasonAlreadyAgreed:
		return "Вы уже дали согласие. Данное решение изменить нельзя."
	case consent.ReasonAlreadyDeclined:
		return "Ваш отказ уже зафиксирован."
	case consent.ReasonReconsiderDisabled:
		return "Ваш отказ уже зафиксирован. Изменение решения недоступно."
	}
	return "Ваш ответ уже зафиксирован."
}
