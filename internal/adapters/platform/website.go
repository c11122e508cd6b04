package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
)

// WebsiteClient публикует статьи в WordPress через REST API.
// Адрес сайта хранится в extra["base_url"] подключения.
type WebsiteClient struct {
	http *http.Client
}

var _ domain.PlatformClient = (*WebsiteClient)(nil)

// NewWebsite создаёт клиента сайта.
func NewWebsite(timeout time.Duration) *WebsiteClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebsiteClient{http: &http.Client{Timeout: timeout}}
}

func websiteBaseURL(conn domain.PlatformConnection) (string, error) {
	base := strings.TrimRight(conn.Extra["base_url"], "/")
	if base == "" {
		return "", fmt.Errorf("website: base_url не задан в подключении")
	}
	return base, nil
}

// CheckAccess проверяет, что токен действителен и API отвечает.
func (c *WebsiteClient) CheckAccess(ctx context.Context, conn domain.PlatformConnection) error {
	base, err := websiteBaseURL(conn)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/wp-json/wp/v2/users/me", nil)
	if err != nil {
		return fmt.Errorf("website: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("website", "check_access", conn.PlatformID, start, err)
	if err != nil {
		return fmt.Errorf("website: check access: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.APIError{Platform: domain.PlatformWebsite, StatusCode: resp.StatusCode, Response: strings.TrimSpace(string(body))}
	}
	return nil
}

type websitePostRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Status        string `json:"status"`
	FeaturedMedia string `json:"featured_media_url,omitempty"`
}

type websitePostResponse struct {
	Link string `json:"link"`
}

// Publish создаёт запись и возвращает её адрес.
func (c *WebsiteClient) Publish(ctx context.Context, conn domain.PlatformConnection, content domain.GeneratedContent) (string, error) {
	base, err := websiteBaseURL(conn)
	if err != nil {
		return "", err
	}
	payload := websitePostRequest{
		Title:   content.Title,
		Content: content.Text,
		Status:  "publish",
	}
	if len(content.ImageURLs) > 0 {
		payload.FeaturedMedia = content.ImageURLs[0]
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("website: marshal post: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/wp-json/wp/v2/posts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("website: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("website", "publish", conn.PlatformID, start, err)
	if err != nil {
		return "", fmt.Errorf("website: publish: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("website: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &domain.APIError{Platform: domain.PlatformWebsite, StatusCode: resp.StatusCode, Response: strings.TrimSpace(string(respBody))}
	}
	var created websitePostResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("website: decode response: %w", err)
	}
	if created.Link == "" {
		return "", fmt.Errorf("website: в ответе нет ссылки на запись")
	}
	return created.Link, nil
}
