package domain

import "time"

// PlatformType определяет целевую площадку публикации.
type PlatformType string

const (
	PlatformWebsite   PlatformType = "website"
	PlatformTelegram  PlatformType = "telegram"
	PlatformPinterest PlatformType = "pinterest"
	PlatformVK        PlatformType = "vk"
)

// KnownPlatforms перечисляет все поддерживаемые площадки.
var KnownPlatforms = []PlatformType{PlatformWebsite, PlatformTelegram, PlatformPinterest, PlatformVK}

// User описывает пользователя системы.
type User struct {
	ID           int64
	TGUserID     int64
	Locale       string
	Role         UserRole
	TokenBalance int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category описывает тематическую рубрику, для которой генерируется контент.
type Category struct {
	ID        int64
	UserID    int64
	Title     string
	Topic     string
	Language  string
	CreatedAt time.Time
}

// Schedule описывает пользовательское расписание автопубликаций.
// Ядро читает расписания только через ListEnabled; создание и
// редактирование выполняет гейтвей.
type Schedule struct {
	ID          int64
	CategoryID  int64
	Platform    PlatformType
	PlatformID  string
	UserID      int64
	Enabled     bool
	Days        []string
	Times       []string
	PostsPerDay int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlatformConnection хранит данные подключения к площадке.
type PlatformConnection struct {
	ID          int64
	UserID      int64
	Platform    PlatformType
	PlatformID  string
	AccessToken string
	Extra       map[string]string
	CreatedAt   time.Time
}

// WordTier задаёт размер генерируемого текста.
type WordTier string

const (
	WordTierShort  WordTier = "short"
	WordTierMedium WordTier = "medium"
	WordTierLong   WordTier = "long"
)

// ContentSettings описывает настройки стиля и формата контента.
type ContentSettings struct {
	WordTier   WordTier
	ImageCount int
	Style      string
}

// GeneratedContent — результат работы генератора.
type GeneratedContent struct {
	Title     string
	Text      string
	WordCount int
	ImageURLs []string
}

// PublicationStatus описывает итог попытки публикации.
type PublicationStatus string

const (
	PublicationStatusSuccess PublicationStatus = "success"
	PublicationStatusFailed  PublicationStatus = "failed"
)

// PublicationRecord — запись аудита одной завершённой попытки.
// Пишется ровно один раз и никогда не изменяется.
type PublicationRecord struct {
	ID           int64
	UserID       int64
	CategoryID   int64
	Platform     PlatformType
	PlatformID   string
	PostURL      string
	WordCount    int
	TokensSpent  int64
	Status       PublicationStatus
	ErrorMessage string
	CreatedAt    time.Time
}
