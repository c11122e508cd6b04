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

const pinterestBaseURL = "https://api.pinterest.com/v5"

// PinterestClient создаёт пины через Pinterest API v5.
// PlatformID подключения — идентификатор доски.
type PinterestClient struct {
	http *http.Client
}

var _ domain.PlatformClient = (*PinterestClient)(nil)

// NewPinterest создаёт клиента Pinterest.
func NewPinterest(timeout time.Duration) *PinterestClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PinterestClient{http: &http.Client{Timeout: timeout}}
}

// CheckAccess проверяет доступность доски под текущим токеном.
func (c *PinterestClient) CheckAccess(ctx context.Context, conn domain.PlatformConnection) error {
	if strings.TrimSpace(conn.PlatformID) == "" {
		return fmt.Errorf("pinterest: не задана доска")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pinterestBaseURL+"/boards/"+conn.PlatformID, nil)
	if err != nil {
		return fmt.Errorf("pinterest: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("pinterest", "get_board", conn.PlatformID, start, err)
	if err != nil {
		return fmt.Errorf("pinterest: check access: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.APIError{Platform: domain.PlatformPinterest, StatusCode: resp.StatusCode, Response: strings.TrimSpace(string(body))}
	}
	return nil
}

type pinterestMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type pinterestPinRequest struct {
	BoardID     string               `json:"board_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	MediaSource pinterestMediaSource `json:"media_source"`
}

type pinterestPinResponse struct {
	ID string `json:"id"`
}

// Лимит описания пина — 800 символов.
const pinterestDescriptionLimit = 800

// Publish создаёт пин с первым изображением материала.
func (c *PinterestClient) Publish(ctx context.Context, conn domain.PlatformConnection, content domain.GeneratedContent) (string, error) {
	if len(content.ImageURLs) == 0 {
		return "", fmt.Errorf("pinterest: для пина требуется хотя бы одно изображение")
	}

	description := content.Text
	if runes := []rune(description); len(runes) > pinterestDescriptionLimit {
		description = string(runes[:pinterestDescriptionLimit-1]) + "…"
	}

	payload := pinterestPinRequest{
		BoardID:     conn.PlatformID,
		Title:       content.Title,
		Description: description,
		MediaSource: pinterestMediaSource{SourceType: "image_url", URL: content.ImageURLs[0]},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("pinterest: marshal pin: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pinterestBaseURL+"/pins", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("pinterest: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("pinterest", "create_pin", conn.PlatformID, start, err)
	if err != nil {
		return "", fmt.Errorf("pinterest: create pin: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("pinterest: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &domain.APIError{Platform: domain.PlatformPinterest, StatusCode: resp.StatusCode, Response: strings.TrimSpace(string(respBody))}
	}
	var pin pinterestPinResponse
	if err := json.Unmarshal(respBody, &pin); err != nil {
		return "", fmt.Errorf("pinterest: decode response: %w", err)
	}
	if pin.ID == "" {
		return "", fmt.Errorf("pinterest: в ответе нет идентификатора пина")
	}
	return "https://www.pinterest.com/pin/" + pin.ID + "/", nil
}
