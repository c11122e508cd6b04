package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
)

// TelegramClient публикует посты в каналы через Bot API. PlatformID —
// юзернейм канала вида @channel; бот должен быть его администратором.
type TelegramClient struct {
	bot *tgbotapi.BotAPI
}

var _ domain.PlatformClient = (*TelegramClient)(nil)

// NewTelegram создаёт клиента Telegram.
func NewTelegram(bot *tgbotapi.BotAPI) *TelegramClient {
	return &TelegramClient{bot: bot}
}

func channelUsername(conn domain.PlatformConnection) (string, error) {
	name := strings.TrimSpace(conn.PlatformID)
	if name == "" {
		return "", fmt.Errorf("telegram: не задан канал")
	}
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return name, nil
}

// CheckAccess проверяет, что канал существует и доступен боту.
func (c *TelegramClient) CheckAccess(ctx context.Context, conn domain.PlatformConnection) error {
	name, err := channelUsername(conn)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = c.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: name},
	})
	metrics.ObserveNetworkRequest("telegram_bot", "get_chat", name, start, err)
	if err != nil {
		return &domain.APIError{Platform: domain.PlatformTelegram, StatusCode: 0, Response: err.Error()}
	}
	return nil
}

// Publish отправляет пост в канал и возвращает ссылку на него.
func (c *TelegramClient) Publish(ctx context.Context, conn domain.PlatformConnection, content domain.GeneratedContent) (string, error) {
	name, err := channelUsername(conn)
	if err != nil {
		return "", err
	}

	text := content.Text
	if content.Title != "" {
		text = "<b>" + content.Title + "</b>\n\n" + text
	}

	var lastMessageID int
	if len(content.ImageURLs) > 0 {
		photo := tgbotapi.NewPhotoToChannel(name, tgbotapi.FileURL(content.ImageURLs[0]))
		photo.Caption = truncateCaption(text)
		photo.ParseMode = tgbotapi.ModeHTML
		start := time.Now()
		sent, err := c.bot.Send(photo)
		metrics.ObserveNetworkRequest("telegram_bot", "send_photo", name, start, err)
		if err != nil {
			return "", &domain.APIError{Platform: domain.PlatformTelegram, StatusCode: 0, Response: err.Error()}
		}
		lastMessageID = sent.MessageID
	} else {
		msg := tgbotapi.NewMessageToChannel(name, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		sent, err := c.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", name, start, err)
		if err != nil {
			return "", &domain.APIError{Platform: domain.PlatformTelegram, StatusCode: 0, Response: err.Error()}
		}
		lastMessageID = sent.MessageID
	}

	return fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(name, "@"), lastMessageID), nil
}

// Лимит подписи к фото в Bot API — 1024 символа.
func truncateCaption(text string) string {
	const captionLimit = 1024
	runes := []rune(text)
	if len(runes) <= captionLimit {
		return text
	}
	return string(runes[:captionLimit-1]) + "…"
}
