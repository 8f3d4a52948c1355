package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"consentbot/internal/models"
	"consentbot/internal/report"
)

// handleStart shows the documents and the consent choice keyboard
func (b *Bot) handleStart(message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID,
		"Здравствуйте! Ознакомьтесь с документами (PDF), затем выберите действие:")

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📄 Политика (PDF)", "policy_pdf"),
			tgbotapi.NewInlineKeyboardButtonData("📝 Согласие (PDF)", "consent_pdf"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Согласен", "agree"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Не согласен", "disagree"),
		),
	)
	msg.ReplyMarkup = keyboard
	b.sendMessage(msg)
}

// handleHelp shows the command summary
func (b *Bot) handleHelp(message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID,
		"Команды:\n/start\n/report [с] [по] (админ)\n/clear [user_id] (админ)")
	b.sendMessage(msg)
}

// parseReportRange parses optional "/report [from] [to]" arguments into a
// closed date interval. A single date selects everything from that day up to
// now; the second date extends the interval to the end of that day.
func parseReportRange(args string) (*models.DateRange, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > 2 {
		return nil, fmt.Errorf("expected at most two dates")
	}

	from, err := time.ParseInLocation("2006-01-02", fields[0], time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q", fields[0])
	}

	to := time.Now()
	if len(fields) == 2 {
		day, err := time.ParseInLocation("2006-01-02", fields[1], time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q", fields[1])
		}
		to = day.AddDate(0, 0, 1).Add(-time.Second)
	}

	return &models.DateRange{From: from, To: to}, nil
}

// handleReport exports the ledger as a spreadsheet, admin only
func (b *Bot) handleReport(ctx context.Context, message *tgbotapi.Message) {
	if !b.admins[message.From.ID] {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Команда только для админов.")
		b.sendMessage(msg)
		return
	}

	filter, err := parseReportRange(message.CommandArguments())
	if err != nil {
		msg := tgbotapi.NewMessage(message.Chat.ID,
			"Неверный формат. Используйте: /report [ГГГГ-ММ-ДД] [ГГГГ-ММ-ДД]")
		b.sendMessage(msg)
		return
	}

	events, err := b.service.Export(ctx, filter)
	if err != nil {
		b.logger.Error("Failed to export ledger",
			zap.Int64("admin_id", message.From.ID),
			zap.Error(err),
		)
		msg := tgbotapi.NewMessage(message.Chat.ID, "Не удалось сформировать отчёт. Попробуйте ещё раз.")
		b.sendMessage(msg)
		return
	}

	if len(events) == 0 {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Нет данных.")
		b.sendMessage(msg)
		return
	}

	workbook, err := report.Workbook(events)
	if err != nil {
		b.logger.Error("Failed to build report workbook", zap.Error(err))
		msg := tgbotapi.NewMessage(message.Chat.ID, "Не удалось сформировать отчёт. Попробуйте ещё раз.")
		b.sendMessage(msg)
		return
	}

	doc := tgbotapi.NewDocument(message.Chat.ID, tgbotapi.FileBytes{
		Name:  "consents.xlsx",
		Bytes: workbook,
	})
	doc.Caption = "Отчёт (Excel)"
	b.sendDocument(doc)
}

// handleClear empties the ledger, or removes one user's rows, admin only
func (b *Bot) handleClear(ctx context.Context, message *tgbotapi.Message) {
	if !b.admins[message.From.ID] {
		msg := tgbotapi.NewMessage(message.Chat.ID, "Команда только для админов.")
		b.sendMessage(msg)
		return
	}

	var userID *int64
	if args := strings.TrimSpace(message.CommandArguments()); args != "" {
		id, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			msg := tgbotapi.NewMessage(message.Chat.ID, "Неверный формат. Используйте: /clear [user_id]")
			b.sendMessage(msg)
			return
		}
		userID = &id
	}

	removed, err := b.service.Clear(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to clear ledger",
			zap.Int64("admin_id", message.From.ID),
			zap.Error(err),
		)
		msg := tgbotapi.NewMessage(message.Chat.ID, "Не удалось очистить отчёт. Попробуйте ещё раз.")
		b.sendMessage(msg)
		return
	}

	var text string
	if userID != nil {
		text = fmt.Sprintf("Удалены записи пользователя %d: %d", *userID, removed)
	} else {
		text = fmt.Sprintf("📑 Отчёт очищен ✅ (удалено строк: %d)", removed)
	}
	b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}
