// Package n8n is a client for an n8n workflow-automation instance. The bot
// uses it for two things: delivering activity events to a webhook, and
// triggering or listing workflows through the REST API.
//
// A Client with an empty base URL is disabled: every call becomes a no-op
// or returns ErrDisabled, so callers need no nil checks when the
// integration is not configured.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDisabled is returned by API calls when no n8n URL is configured.
var ErrDisabled = errors.New("n8n: integration not configured")

// Client talks to an n8n instance.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New returns a Client. An empty baseURL yields a disabled client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether the integration is configured.
func (c *Client) Enabled() bool { return c.BaseURL != "" }

// TriggerWebhook POSTs payload to /webhook/{webhookID}.
func (c *Client) TriggerWebhook(ctx context.Context, webhookID string, payload any) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	return c.postJSON(ctx, "/webhook/"+webhookID, payload, nil)
}

// Workflow is one row from the workflow listing.
type Workflow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type workflowList struct {
	Data []Workflow `json:"data"`
}

// ListWorkflows returns all workflows known to the instance.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/workflows", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("n8n: workflows returned %d", resp.StatusCode)
	}
	var out workflowList
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ExecuteWorkflow runs workflow workflowID with the given input data.
func (c *Client) ExecuteWorkflow(ctx context.Context, workflowID string, data any) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	return c.postJSON(ctx, "/api/v1/workflows/"+workflowID+"/execute", data, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("n8n: %s returned %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("X-N8N-API-KEY", c.APIKey)
	}
}
