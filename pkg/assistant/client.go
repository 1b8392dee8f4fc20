package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/roomops/pms-console/pkg/conversation"
	"github.com/roomops/pms-console/pkg/logger"
)

// Client talks to the assistant backend over HTTP. It implements
// conversation.Oracle; the backend's reasoning is entirely opaque here.
type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

// NewClient creates an assistant client.
func NewClient(cfg Config, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}
}

// Resolve sends one conversational turn and decodes the assistant's reply.
func (c *Client) Resolve(ctx context.Context, req conversation.OracleRequest) (*conversation.OracleResponse, error) {
	body, err := c.post(ctx, c.config.OracleURL, req)
	if err != nil {
		return nil, err
	}

	var resp conversation.OracleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error decoding assistant response: %w", err)
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	reqJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error serializing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}
	if tenantID := conversation.TenantIDFrom(ctx); tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}
	if userID := conversation.UserIDFrom(ctx); userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	c.logger.Debug("remote call finished", "url", url, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote endpoint returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
