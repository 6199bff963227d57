package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the MCP Bridge management API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			// Fail fast instead of hanging on an unresponsive bridge.
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) fetch(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			if v != "" {
				q.Set(k, v)
			}
		}
		if enc := q.Encode(); enc != "" {
			u += "?" + enc
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bridge error: status %d: %s", resp.StatusCode, string(body))
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("bridge returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

// Health reports whether the bridge answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.fetch(ctx, "/health", nil)
	return err
}

func (c *Client) ListServers(ctx context.Context) (json.RawMessage, error) {
	return c.fetch(ctx, "/servers", nil)
}

func (c *Client) GetServerStatus(ctx context.Context, id string) (json.RawMessage, error) {
	return c.fetch(ctx, "/servers/"+url.PathEscape(id)+"/status", nil)
}

func (c *Client) GetMetrics(ctx context.Context, serverID, timeRange string) (json.RawMessage, error) {
	return c.fetch(ctx, "/metrics", map[string]string{
		"serverId":  serverID,
		"timeRange": timeRange,
	})
}
