// Package homeassistant is a thin client for the Home Assistant REST API.
// It exposes the small surface the bot needs: entity states, service calls,
// and the convenience wrappers built on them (lights, scenes, climate).
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alkaitz/telepilot/internal/metrics"
)

// Client talks to a Home Assistant instance using a long-lived access token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New returns a Client for the instance at baseURL.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// State is one entity state row as returned by /api/states.
type State struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// FriendlyName returns the friendly_name attribute, falling back to the
// entity ID when unset.
func (s State) FriendlyName() string {
	if v, ok := s.Attributes["friendly_name"].(string); ok && v != "" {
		return v
	}
	return s.EntityID
}

// Ping checks connectivity and token validity against /api/.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/", nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("homeassistant: ping returned %d", resp.StatusCode)
	}
	return nil
}

// GetState fetches the current state of one entity.
func (c *Client) GetState(ctx context.Context, entityID string) (*State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/states/"+entityID, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("homeassistant: entity %s not found", entityID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("homeassistant: states returned %d", resp.StatusCode)
	}
	var s State
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStates fetches all entity states, optionally filtered to one domain
// prefix such as "light" or "sensor".
func (c *Client) ListStates(ctx context.Context, domain string) ([]State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/states", nil)
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
		return nil, fmt.Errorf("homeassistant: states returned %d", resp.StatusCode)
	}
	var all []State
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, err
	}
	if domain == "" {
		return all, nil
	}
	out := all[:0]
	for _, s := range all {
		if strings.HasPrefix(s.EntityID, domain+".") {
			out = append(out, s)
		}
	}
	return out, nil
}

// CallService invokes /api/services/{domain}/{service} with the given data.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	metrics.SmartHomeCommands.Inc()

	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/services/%s/%s", c.BaseURL, domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
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
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("homeassistant: %s/%s returned %d", domain, service, resp.StatusCode)
	}
	return nil
}

// TurnOn turns an entity on. The domain is derived from the entity ID.
func (c *Client) TurnOn(ctx context.Context, entityID string) error {
	return c.CallService(ctx, "homeassistant", "turn_on", map[string]any{"entity_id": entityID})
}

// TurnOff turns an entity off.
func (c *Client) TurnOff(ctx context.Context, entityID string) error {
	return c.CallService(ctx, "homeassistant", "turn_off", map[string]any{"entity_id": entityID})
}

// SetBrightness sets a light's brightness (0..255).
func (c *Client) SetBrightness(ctx context.Context, entityID string, brightness int) error {
	return c.CallService(ctx, "light", "turn_on", map[string]any{
		"entity_id":  entityID,
		"brightness": brightness,
	})
}

// ActivateScene turns on the given scene entity.
func (c *Client) ActivateScene(ctx context.Context, sceneID string) error {
	if !strings.Contains(sceneID, ".") {
		sceneID = "scene." + sceneID
	}
	return c.CallService(ctx, "scene", "turn_on", map[string]any{"entity_id": sceneID})
}

// SetTemperature sets a climate entity's target temperature in Celsius.
func (c *Client) SetTemperature(ctx context.Context, entityID string, celsius float64) error {
	return c.CallService(ctx, "climate", "set_temperature", map[string]any{
		"entity_id":   entityID,
		"temperature": celsius,
	})
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.Token)
}
