package notifier

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
)

// TelegramNotifier доставляет отчёты пользователю в личный чат с ботом.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

var _ domain.NotificationSink = (*TelegramNotifier)(nil)

// NewTelegram создаёт нотификатор поверх Bot API.
func NewTelegram(bot *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

// Send отправляет сообщение пользователю.
func (n *TelegramNotifier) Send(ctx context.Context, tgUserID int64, message string) error {
	msg := tgbotapi.NewMessage(tgUserID, message)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	start := time.Now()
	_, err := n.bot.Send(msg)
	metrics.ObserveNetworkRequest("telegram_bot", "notify", "user", start, err)
	if err != nil {
		return fmt.Errorf("отправка уведомления пользователю %d: %w", tgUserID, err)
	}
	return nil
}
