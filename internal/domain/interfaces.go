package domain

import (
	"context"
	"time"
)

// ScheduleStore отдаёт расписания ядру. Единственное чтение ядра —
// ListEnabled; мутации расписаний живут в гейтвее.
type ScheduleStore interface {
	ListEnabled(ctx context.Context) ([]Schedule, error)
}

// ScheduleRepo управляет расписаниями пользователя (гейтвей).
type ScheduleRepo interface {
	ScheduleStore
	ListSchedulesByUser(ctx context.Context, userID int64) ([]Schedule, error)
	GetSchedule(ctx context.Context, id int64) (Schedule, error)
	CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
	SetScheduleEnabled(ctx context.Context, id int64, enabled bool) error
	UpdateScheduleSlots(ctx context.Context, id int64, days, times []string) error
}

// UserRepo управляет пользователями.
type UserRepo interface {
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetByTGID(ctx context.Context, tgUserID int64) (User, error)
	UpsertByTGID(ctx context.Context, tgUserID int64, locale string) (User, error)
}

// CategoryRepo управляет рубриками.
type CategoryRepo interface {
	GetCategoryByID(ctx context.Context, id int64) (Category, error)
	ListCategoriesByUser(ctx context.Context, userID int64) ([]Category, error)
}

// PlatformRepo отдаёт подключения к площадкам.
type PlatformRepo interface {
	GetConnection(ctx context.Context, userID int64, platform PlatformType, platformID string) (PlatformConnection, error)
}

// SettingsRepo отдаёт настройки контента рубрики.
type SettingsRepo interface {
	GetContentSettings(ctx context.Context, categoryID int64) (ContentSettings, error)
}

// TokenLedger — атомарные операции с балансом токенов. Привилегия
// god-аккаунтов обрабатывается уровнем выше, сам ledger про неё не знает.
type TokenLedger interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	// Charge списывает amount целиком либо не меняет баланс вовсе,
	// возвращая false при нехватке средств.
	Charge(ctx context.Context, userID int64, amount int64) (bool, error)
	// Refund безусловно возвращает amount на баланс.
	Refund(ctx context.Context, userID int64, amount int64) error
}

// ContentGenerator — внешний AI-бекенд генерации контента.
type ContentGenerator interface {
	Generate(ctx context.Context, category Category, platform PlatformType, settings ContentSettings) (GeneratedContent, error)
}

// PlatformClient выполняет сетевые вызовы конкретной площадки.
type PlatformClient interface {
	// CheckAccess — дешёвая проверка доступности подключения,
	// выполняется до списания токенов.
	CheckAccess(ctx context.Context, conn PlatformConnection) error
	Publish(ctx context.Context, conn PlatformConnection, content GeneratedContent) (postURL string, err error)
}

// NotificationSink доставляет сообщения пользователю. Ошибки доставки
// логируются и не влияют на уже принятые решения по балансу.
type NotificationSink interface {
	Send(ctx context.Context, tgUserID int64, message string) error
}

// PublicationLogStore — аудит завершённых попыток, только добавление.
type PublicationLogStore interface {
	Append(ctx context.Context, record PublicationRecord) error
	ListPublications(ctx context.Context, userID int64, limit int) ([]PublicationRecord, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
