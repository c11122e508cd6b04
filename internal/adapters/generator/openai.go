package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/openai"
)

// OpenAIGenerator строит контент через Chat Completions и Images API.
type OpenAIGenerator struct {
	client     *openai.Client
	model      string
	imageModel string
	timeout    time.Duration
}

var _ domain.ContentGenerator = (*OpenAIGenerator)(nil)

// NewOpenAI создаёт генератор на базе OpenAI.
func NewOpenAI(client *openai.Client, model string, timeout time.Duration) *OpenAIGenerator {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OpenAIGenerator{client: client, model: model, imageModel: "dall-e-3", timeout: timeout}
}

type generatedArticle struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func wordTarget(tier domain.WordTier) int {
	switch tier {
	case domain.WordTierShort:
		return 200
	case domain.WordTierLong:
		return 1200
	default:
		return 500
	}
}

// Generate готовит текст и изображения для публикации.
func (g *OpenAIGenerator) Generate(ctx context.Context, category domain.Category, platform domain.PlatformType, settings domain.ContentSettings) (domain.GeneratedContent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	system := "Ты — редактор, который пишет готовые к публикации материалы. " +
		"Ответ верни строго в JSON с полями title и text."
	prompt := fmt.Sprintf(
		"Напиши материал для площадки %s на тему «%s» (рубрика «%s»). Объём около %d слов. Язык: %s.",
		platform, category.Topic, category.Title, wordTarget(settings.WordTier), languageOrDefault(category.Language),
	)
	if settings.Style != "" {
		prompt += " Стиль: " + settings.Style + "."
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: system},
			{Role: openai.RoleUser, Content: prompt},
		},
		Temperature:    0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	})
	if err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("генерация текста: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.GeneratedContent{}, fmt.Errorf("генерация текста: пустой ответ модели")
	}

	var article generatedArticle
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &article); err != nil {
		return domain.GeneratedContent{}, fmt.Errorf("генерация текста: разбор ответа: %w", err)
	}
	if strings.TrimSpace(article.Text) == "" {
		return domain.GeneratedContent{}, fmt.Errorf("генерация текста: модель вернула пустой материал")
	}

	content := domain.GeneratedContent{
		Title:     strings.TrimSpace(article.Title),
		Text:      strings.TrimSpace(article.Text),
		WordCount: len(strings.Fields(article.Text)),
	}

	for i := 0; i < settings.ImageCount; i++ {
		images, err := g.client.CreateImage(ctx, openai.ImageRequest{
			Model:  g.imageModel,
			Prompt: fmt.Sprintf("Иллюстрация к материалу «%s» на тему %s", content.Title, category.Topic),
			N:      1,
			Size:   "1024x1024",
		})
		if err != nil {
			return domain.GeneratedContent{}, fmt.Errorf("генерация изображения %d: %w", i+1, err)
		}
		for _, img := range images.Data {
			if img.URL != "" {
				content.ImageURLs = append(content.ImageURLs, img.URL)
			}
		}
	}

	return content, nil
}

func languageOrDefault(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return "русский"
	}
	return lang
}
