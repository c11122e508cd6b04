package generator

import (
	"context"
	"fmt"
	"strings"

	"autopost-bot/internal/domain"
)

// SimpleGenerator собирает материал из шаблона без обращения к AI.
// Используется в dev-окружении и тестах.
type SimpleGenerator struct{}

var _ domain.ContentGenerator = (*SimpleGenerator)(nil)

// NewSimple создаёт шаблонный генератор.
func NewSimple() *SimpleGenerator {
	return &SimpleGenerator{}
}

// Generate возвращает детерминированный текст по теме рубрики.
func (g *SimpleGenerator) Generate(ctx context.Context, category domain.Category, platform domain.PlatformType, settings domain.ContentSettings) (domain.GeneratedContent, error) {
	title := fmt.Sprintf("%s: заметка для %s", category.Title, platform)
	paragraph := fmt.Sprintf("Материал по теме «%s». ", category.Topic)
	repeats := wordTarget(settings.WordTier) / max(len(strings.Fields(paragraph)), 1)
	if repeats < 1 {
		repeats = 1
	}
	text := strings.TrimSpace(strings.Repeat(paragraph, repeats))
	return domain.GeneratedContent{
		Title:     title,
		Text:      text,
		WordCount: len(strings.Fields(text)),
	}, nil
}
