package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yudistirasd/baileys-api/pkg/wa/types"
)

const defaultGatewayTimeout = 30 * time.Second

// ClientConfig configures a GatewayClient.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	SessionID string
	Timeout   time.Duration
}

// GatewayClient implements types.Client against an external protocol
// gateway over HTTP. Events flow the other way: the gateway posts them to
// this service's ingest endpoint, which dispatches into the embedded Feed.
type GatewayClient struct {
	*Feed

	baseURL   string
	apiKey    string
	sessionID string
	client    *http.Client
}

func NewGatewayClient(cfg ClientConfig) *GatewayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &GatewayClient{
		Feed:      NewFeed(),
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		sessionID: cfg.SessionID,
		client:    &http.Client{Timeout: timeout},
	}
}

// SessionID returns the session this client is bound to.
func (c *GatewayClient) SessionID() string {
	return c.sessionID
}

func (c *GatewayClient) SendMessage(ctx context.Context, jid string, content json.RawMessage) (*types.SendResponse, error) {
	payload := map[string]interface{}{
		"jid":     jid,
		"message": content,
	}

	var resp types.SendResponse
	if err := c.post(ctx, "/messages", payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &resp, nil
}

func (c *GatewayClient) ChatModify(ctx context.Context, jid string, mod types.ChatModification) error {
	payload := map[string]interface{}{
		"jid":    jid,
		"modify": mod,
	}

	if err := c.post(ctx, "/chat-modify", payload, nil); err != nil {
		return fmt.Errorf("failed to modify chat: %w", err)
	}
	return nil
}

func (c *GatewayClient) IsOnWhatsApp(ctx context.Context, jid string) (bool, error) {
	endpoint := c.endpoint("/exists") + "?jid=" + url.QueryEscape(jid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("account check failed with status %d", resp.StatusCode)
	}

	var result struct {
		Exists bool `json:"exists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Exists, nil
}

func (c *GatewayClient) DownloadMedia(ctx context.Context, msg *types.WebMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/media-download"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *GatewayClient) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/logout", struct{}{}, nil); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

func (c *GatewayClient) endpoint(suffix string) string {
	return fmt.Sprintf("%s/sessions/%s%s", c.baseURL, url.PathEscape(c.sessionID), suffix)
}

func (c *GatewayClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
}

func (c *GatewayClient) post(ctx context.Context, suffix string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(suffix), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
