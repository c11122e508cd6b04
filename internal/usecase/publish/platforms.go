package publish

import (
	"context"
	"fmt"
	"strings"

	"autopost-bot/internal/domain"
)

// base несёт общие для всех площадок куски: идентификацию и сам вызов
// публикации через сетевой клиент.
type base struct {
	platform domain.PlatformType
	client   domain.PlatformClient
}

func (b base) Platform() domain.PlatformType { return b.platform }

func (b base) Publish(ctx context.Context, conn domain.PlatformConnection, content domain.GeneratedContent) (string, error) {
	return b.client.Publish(ctx, conn, content)
}

// WebsitePublisher публикует статьи на сайт пользователя.
type WebsitePublisher struct{ base }

var _ Publisher = (*WebsitePublisher)(nil)

// NewWebsitePublisher создаёт публикатор сайта.
func NewWebsitePublisher(client domain.PlatformClient) *WebsitePublisher {
	return &WebsitePublisher{base{platform: domain.PlatformWebsite, client: client}}
}

func (p *WebsitePublisher) PreValidate(ctx context.Context, conn domain.PlatformConnection) error {
	if strings.TrimSpace(conn.Extra["base_url"]) == "" {
		return &domain.ValidationError{Platform: p.platform, Field: "base_url", Reason: "адрес сайта не задан"}
	}
	if conn.AccessToken == "" {
		return &domain.ValidationError{Platform: p.platform, Field: "access_token", Reason: "токен доступа не задан"}
	}
	return p.client.CheckAccess(ctx, conn)
}

func (p *WebsitePublisher) Validate(conn domain.PlatformConnection, settings domain.ContentSettings) error {
	return nil
}

// TelegramPublisher публикует посты в канал.
type TelegramPublisher struct{ base }

var _ Publisher = (*TelegramPublisher)(nil)

// NewTelegramPublisher создаёт публикатор Telegram.
func NewTelegramPublisher(client domain.PlatformClient) *TelegramPublisher {
	return &TelegramPublisher{base{platform: domain.PlatformTelegram, client: client}}
}

func (p *TelegramPublisher) PreValidate(ctx context.Context, conn domain.PlatformConnection) error {
	if strings.TrimSpace(conn.PlatformID) == "" {
		return &domain.ValidationError{Platform: p.platform, Field: "platform_id", Reason: "канал не задан"}
	}
	return p.client.CheckAccess(ctx, conn)
}

func (p *TelegramPublisher) Validate(conn domain.PlatformConnection, settings domain.ContentSettings) error {
	// Длинный текст не влезает в подпись к фото: лимит Bot API.
	if settings.ImageCount > 0 && settings.WordTier == domain.WordTierLong {
		return &domain.ValidationError{
			Platform: p.platform,
			Field:    "word_tier",
			Reason:   "длинный текст не помещается в подпись к фото, выберите короткий или средний",
		}
	}
	return nil
}

// PinterestPublisher создаёт пины на доске.
type PinterestPublisher struct{ base }

var _ Publisher = (*PinterestPublisher)(nil)

// NewPinterestPublisher создаёт публикатор Pinterest.
func NewPinterestPublisher(client domain.PlatformClient) *PinterestPublisher {
	return &PinterestPublisher{base{platform: domain.PlatformPinterest, client: client}}
}

func (p *PinterestPublisher) PreValidate(ctx context.Context, conn domain.PlatformConnection) error {
	if strings.TrimSpace(conn.PlatformID) == "" {
		return &domain.ValidationError{Platform: p.platform, Field: "platform_id", Reason: "доска не задана"}
	}
	return p.client.CheckAccess(ctx, conn)
}

func (p *PinterestPublisher) Validate(conn domain.PlatformConnection, settings domain.ContentSettings) error {
	// Пин без изображения не существует.
	if settings.ImageCount < 1 {
		return &domain.ValidationError{
			Platform: p.platform,
			Field:    "image_count",
			Reason:   "для пина требуется хотя бы одно изображение",
		}
	}
	return nil
}

// VKPublisher публикует посты на стену сообщества.
type VKPublisher struct{ base }

var _ Publisher = (*VKPublisher)(nil)

// NewVKPublisher создаёт публикатор VK.
func NewVKPublisher(client domain.PlatformClient) *VKPublisher {
	return &VKPublisher{base{platform: domain.PlatformVK, client: client}}
}

func (p *VKPublisher) PreValidate(ctx context.Context, conn domain.PlatformConnection) error {
	if err := validateGroupID(conn.PlatformID); err != nil {
		return &domain.ValidationError{Platform: p.platform, Field: "platform_id", Reason: err.Error()}
	}
	return p.client.CheckAccess(ctx, conn)
}

func (p *VKPublisher) Validate(conn domain.PlatformConnection, settings domain.ContentSettings) error {
	return nil
}

func validateGroupID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("сообщество не задано")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("идентификатор сообщества должен быть числовым")
		}
	}
	return nil
}
