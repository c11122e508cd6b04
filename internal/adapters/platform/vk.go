package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autopost-bot/internal/domain"
	"autopost-bot/internal/infra/metrics"
)

const vkBaseURL = "https://api.vk.com/method"

// VKClient публикует посты на стену сообщества через VK API.
// PlatformID подключения — числовой идентификатор группы без знака.
type VKClient struct {
	http       *http.Client
	apiVersion string
}

var _ domain.PlatformClient = (*VKClient)(nil)

// NewVK создаёт клиента VK.
func NewVK(apiVersion string, timeout time.Duration) *VKClient {
	if apiVersion == "" {
		apiVersion = "5.199"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VKClient{http: &http.Client{Timeout: timeout}, apiVersion: apiVersion}
}

type vkError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

type vkEnvelope struct {
	Error    *vkError        `json:"error"`
	Response json.RawMessage `json:"response"`
}

func (c *VKClient) call(ctx context.Context, method string, params url.Values, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vkBaseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("vk: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("vk", method, target, start, err)
	if err != nil {
		return fmt.Errorf("vk: %s: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("vk: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &domain.APIError{Platform: domain.PlatformVK, StatusCode: resp.StatusCode, Response: strings.TrimSpace(string(body))}
	}

	var envelope vkEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("vk: decode response: %w", err)
	}
	// VK отдаёт прикладные ошибки с HTTP 200.
	if envelope.Error != nil {
		return &domain.APIError{
			Platform:   domain.PlatformVK,
			StatusCode: resp.StatusCode,
			Response:   fmt.Sprintf("code %d: %s", envelope.Error.Code, envelope.Error.Message),
		}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Response, out); err != nil {
			return fmt.Errorf("vk: decode %s response: %w", method, err)
		}
	}
	return nil
}

func (c *VKClient) baseParams(conn domain.PlatformConnection) url.Values {
	params := url.Values{}
	params.Set("access_token", conn.AccessToken)
	params.Set("v", c.apiVersion)
	return params
}

// CheckAccess проверяет, что сообщество существует и токен действителен.
func (c *VKClient) CheckAccess(ctx context.Context, conn domain.PlatformConnection) error {
	if strings.TrimSpace(conn.PlatformID) == "" {
		return fmt.Errorf("vk: не задано сообщество")
	}
	params := c.baseParams(conn)
	params.Set("group_id", conn.PlatformID)
	return c.call(ctx, "groups.getById", params, conn.PlatformID, nil)
}

type vkWallPostResponse struct {
	PostID int64 `json:"post_id"`
}

// Publish размещает пост на стене сообщества.
func (c *VKClient) Publish(ctx context.Context, conn domain.PlatformConnection, content domain.GeneratedContent) (string, error) {
	if strings.TrimSpace(conn.PlatformID) == "" {
		return "", fmt.Errorf("vk: не задано сообщество")
	}

	message := content.Text
	if content.Title != "" {
		message = content.Title + "\n\n" + message
	}
	// Иллюстрации передаются ссылками в тексте: загрузка во вложения
	// требует отдельного upload-сервера и тут не используется.
	if len(content.ImageURLs) > 0 {
		message += "\n\n" + strings.Join(content.ImageURLs, "\n")
	}

	params := c.baseParams(conn)
	params.Set("owner_id", "-"+conn.PlatformID)
	params.Set("from_group", "1")
	params.Set("message", message)

	var posted vkWallPostResponse
	if err := c.call(ctx, "wall.post", params, conn.PlatformID, &posted); err != nil {
		return "", err
	}
	if posted.PostID == 0 {
		return "", fmt.Errorf("vk: в ответе нет идентификатора поста")
	}
	return fmt.Sprintf("https://vk.com/wall-%s_%d", conn.PlatformID, posted.PostID), nil
}
