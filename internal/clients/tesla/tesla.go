// Package tesla is a client for the Tesla Owner API covering vehicle status
// and the remote commands the bot exposes (climate, charging, locks).
//
// The API rejects most commands while the car sleeps, so command helpers
// call Wake first and poll briefly for the vehicle to come online.
package tesla

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

// Client talks to the Tesla Owner API for a single vehicle.
type Client struct {
	BaseURL   string
	Token     string
	VehicleID string
	HTTP      *http.Client

	// wakePoll is the delay between online checks after a wake request.
	wakePoll time.Duration
}

// New returns a Client for the given vehicle. An empty baseURL targets the
// production Owner API.
func New(baseURL, token, vehicleID string) *Client {
	if baseURL == "" {
		baseURL = "https://owner-api.teslamotors.com"
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		VehicleID: vehicleID,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		wakePoll:  2 * time.Second,
	}
}

// VehicleData is the subset of vehicle_data the bot reports.
type VehicleData struct {
	DisplayName string `json:"display_name"`
	State       string `json:"state"`
	ChargeState struct {
		BatteryLevel  int     `json:"battery_level"`
		BatteryRange  float64 `json:"battery_range"`
		ChargingState string  `json:"charging_state"`
		ChargeLimit   int     `json:"charge_limit_soc"`
	} `json:"charge_state"`
	ClimateState struct {
		InsideTemp  float64 `json:"inside_temp"`
		OutsideTemp float64 `json:"outside_temp"`
		IsClimateOn bool    `json:"is_climate_on"`
	} `json:"climate_state"`
	VehicleState struct {
		Locked   bool   `json:"locked"`
		Odometer float64 `json:"odometer"`
	} `json:"vehicle_state"`
}

type dataEnvelope struct {
	Response json.RawMessage `json:"response"`
}

// Data fetches the current vehicle_data snapshot.
func (c *Client) Data(ctx context.Context) (*VehicleData, error) {
	metrics.TeslaCommands.Inc()

	raw, err := c.get(ctx, fmt.Sprintf("/api/1/vehicles/%s/vehicle_data", c.VehicleID))
	if err != nil {
		return nil, err
	}
	var v VehicleData
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("tesla: decode vehicle_data: %w", err)
	}
	return &v, nil
}

// Wake asks the vehicle to come online and polls until it reports "online"
// or ctx expires.
func (c *Client) Wake(ctx context.Context) error {
	metrics.TeslaCommands.Inc()

	for {
		raw, err := c.post(ctx, fmt.Sprintf("/api/1/vehicles/%s/wake_up", c.VehicleID), nil)
		if err != nil {
			return err
		}
		var v struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(raw, &v); err == nil && v.State == "online" {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("tesla: vehicle did not wake: %w", ctx.Err())
		case <-time.After(c.wakePoll):
		}
	}
}

// Command names accepted by Command. They map onto Owner API command paths.
const (
	CmdClimateOn   = "auto_conditioning_start"
	CmdClimateOff  = "auto_conditioning_stop"
	CmdChargeStart = "charge_start"
	CmdChargeStop  = "charge_stop"
	CmdLock        = "door_lock"
	CmdUnlock      = "door_unlock"
	CmdHonk        = "honk_horn"
	CmdFlash       = "flash_lights"
)

type commandResult struct {
	Result bool   `json:"result"`
	Reason string `json:"reason"`
}

// Command executes a named remote command with optional parameters.
// A response with result=false is an error carrying the API reason.
func (c *Client) Command(ctx context.Context, name string, params map[string]any) error {
	metrics.TeslaCommands.Inc()

	var body []byte
	if params != nil {
		var err error
		if body, err = json.Marshal(params); err != nil {
			return err
		}
	}
	raw, err := c.post(ctx, fmt.Sprintf("/api/1/vehicles/%s/command/%s", c.VehicleID, name), body)
	if err != nil {
		return err
	}
	var res commandResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("tesla: decode command result: %w", err)
	}
	if !res.Result {
		return fmt.Errorf("tesla: %s failed: %s", name, res.Reason)
	}
	return nil
}

// SetTemperature sets both driver and passenger target temperature and
// starts the HVAC.
func (c *Client) SetTemperature(ctx context.Context, celsius float64) error {
	err := c.Command(ctx, "set_temps", map[string]any{
		"driver_temp":    celsius,
		"passenger_temp": celsius,
	})
	if err != nil {
		return err
	}
	return c.Command(ctx, CmdClimateOn, nil)
}

// SetChargeLimit sets the charge limit percentage (50..100).
func (c *Client) SetChargeLimit(ctx context.Context, percent int) error {
	return c.Command(ctx, "set_charge_limit", map[string]any{"percent": percent})
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusRequestTimeout {
		return nil, fmt.Errorf("tesla: vehicle unavailable (asleep?)")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tesla: %s returned %d", path, resp.StatusCode)
	}
	var env dataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("tesla: decode envelope: %w", err)
	}
	return env.Response, nil
}
