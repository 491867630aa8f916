package tesla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "tok", "12345")
	c.wakePoll = time.Millisecond
	return c
}

func TestData_DecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/1/vehicles/12345/vehicle_data" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{
				"display_name": "Skynet",
				"state":        "online",
				"charge_state": map[string]any{
					"battery_level":  72,
					"battery_range":  212.4,
					"charging_state": "Charging",
				},
				"climate_state": map[string]any{"inside_temp": 19.5},
				"vehicle_state": map[string]any{"locked": true},
			},
		})
	})

	v, err := c.Data(context.Background())
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if v.DisplayName != "Skynet" || v.ChargeState.BatteryLevel != 72 || !v.VehicleState.Locked {
		t.Fatalf("unexpected data: %+v", v)
	}
}

func TestWake_PollsUntilOnline(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		state := "offline"
		if atomic.AddInt32(&calls, 1) >= 3 {
			state = "online"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]string{"state": state},
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Wake(ctx); err != nil {
		t.Fatalf("Wake: %v", err)
	}
	if atomic.LoadInt32(&calls) < 3 {
		t.Fatalf("expected at least 3 wake attempts, got %d", calls)
	}
}

func TestWake_ContextExpiry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]string{"state": "offline"},
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Wake(ctx); err == nil {
		t.Fatal("expected wake timeout error")
	}
}

func TestCommand_FailureCarriesReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"result": false, "reason": "cable connected"},
		})
	})

	err := c.Command(context.Background(), CmdUnlock, nil)
	if err == nil || !strings.Contains(err.Error(), "cable connected") {
		t.Fatalf("expected reason in error, got %v", err)
	}
}

func TestSetTemperature_SendsBothTempsThenClimateOn(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "set_temps") {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["driver_temp"] != 21.0 || body["passenger_temp"] != 21.0 {
				t.Errorf("unexpected temps: %+v", body)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"result": true},
		})
	})

	if err := c.SetTemperature(context.Background(), 21); err != nil {
		t.Fatalf("SetTemperature: %v", err)
	}
	if len(paths) != 2 || !strings.HasSuffix(paths[1], CmdClimateOn) {
		t.Fatalf("unexpected command sequence: %v", paths)
	}
}
