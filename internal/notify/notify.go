// Package notify delivers event outcomes to operator recipients.
package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// DeliveryResult is the outcome of one delivery attempt
type DeliveryResult struct {
	Recipient int64
	Err       error
}

// Notifier broadcasts a message to a set of recipients. Each attempt is
// independent: a failure for one recipient never blocks delivery to others,
// and failures are logged rather than surfaced to the user path.
type Notifier interface {
	Broadcast(ctx context.Context, recipients []int64, message string) []DeliveryResult
}

// Sender is the subset of the bot API used for deliveries
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends operator notifications through the bot API
type TelegramNotifier struct {
	sender Sender
	logger *zap.Logger
}

// NewTelegramNotifier creates a notifier over the given bot API
func NewTelegramNotifier(sender Sender, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, logger: logger}
}

// Broadcast delivers the message to every recipient best-effort
func (n *TelegramNotifier) Broadcast(ctx context.Context, recipients []int64, message string) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(recipients))
	for _, recipient := range recipients {
		result := DeliveryResult{Recipient: recipient}
		if n.sender == nil {
			results = append(results, result)
			continue
		}
		_, err := n.sender.Send(tgbotapi.NewMessage(recipient, message))
		if err != nil {
			result.Err = err
			n.logger.Warn("Failed to notify operator",
				zap.Int64("recipient", recipient),
				zap.Error(err),
			)
		}
		results = append(results, result)
	}
	return results
}
