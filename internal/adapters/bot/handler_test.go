package bot

import (
	"strings"
	"testing"
	"time"

	"autopost-bot/internal/domain"
)

func TestFormatSchedule(t *testing.T) {
	line := FormatSchedule(domain.Schedule{
		ID:         3,
		CategoryID: 7,
		Platform:   domain.PlatformTelegram,
		PlatformID: "@garden",
		Enabled:    true,
		Days:       []string{"mon", "fri"},
		Times:      []string{"09:00"},
	})
	for _, want := range []string{"3.", "Telegram", "@garden", "вкл", "mon,fri", "09:00"} {
		if !strings.Contains(line, want) {
			t.Fatalf("в строке расписания нет %q: %s", want, line)
		}
	}
}

func TestFormatRecord(t *testing.T) {
	ok := FormatRecord(domain.PublicationRecord{
		Platform:    domain.PlatformVK,
		PostURL:     "https://vk.com/wall-1_2",
		TokensSpent: 50,
		Status:      domain.PublicationStatusSuccess,
		CreatedAt:   time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
	})
	if !strings.Contains(ok, "✅") || !strings.Contains(ok, "50 токенов") {
		t.Fatalf("неожиданная строка успешной публикации: %s", ok)
	}

	failed := FormatRecord(domain.PublicationRecord{
		Platform:     domain.PlatformWebsite,
		Status:       domain.PublicationStatusFailed,
		ErrorMessage: "недостаточно токенов",
	})
	if !strings.Contains(failed, "❌") || !strings.Contains(failed, "недостаточно токенов") {
		t.Fatalf("неожиданная строка неудачной публикации: %s", failed)
	}
}

func TestSplitMessageShort(t *testing.T) {
	parts := splitMessage("короткое сообщение")
	if len(parts) != 1 {
		t.Fatalf("короткий текст не должен разбиваться, получили %d частей", len(parts))
	}
}

func TestSplitMessageLong(t *testing.T) {
	line := strings.Repeat("а", 100) + "\n"
	text := strings.Repeat(line, 60)
	parts := splitMessage(text)
	if len(parts) < 2 {
		t.Fatalf("длинный текст должен разбиваться на несколько сообщений")
	}
	for _, p := range parts {
		if len([]rune(p)) > messageLimit {
			t.Fatalf("часть длиннее лимита: %d", len([]rune(p)))
		}
	}
}
