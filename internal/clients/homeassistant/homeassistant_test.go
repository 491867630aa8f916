package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "token-123")
}

func TestGetState_DecodesEntity(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states/light.kitchen" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-123" {
			t.Errorf("missing auth header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entity_id":  "light.kitchen",
			"state":      "on",
			"attributes": map[string]any{"friendly_name": "Kitchen Light"},
		})
	})

	s, err := c.GetState(context.Background(), "light.kitchen")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if s.State != "on" || s.FriendlyName() != "Kitchen Light" {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestGetState_NotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := c.GetState(context.Background(), "light.gone"); err == nil {
		t.Fatal("expected error for missing entity")
	}
}

func TestListStates_FiltersByDomain(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"entity_id": "light.kitchen", "state": "on"},
			{"entity_id": "sensor.temp", "state": "21.5"},
			{"entity_id": "light.bedroom", "state": "off"},
		})
	})

	got, err := c.ListStates(context.Background(), "light")
	if err != nil {
		t.Fatalf("ListStates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lights, got %+v", got)
	}
}

func TestCallService_PostsPayload(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	})

	err := c.SetTemperature(context.Background(), "climate.living_room", 21.5)
	if err != nil {
		t.Fatalf("SetTemperature: %v", err)
	}
	if gotPath != "/api/services/climate/set_temperature" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["temperature"] != 21.5 || gotBody["entity_id"] != "climate.living_room" {
		t.Fatalf("unexpected payload %+v", gotBody)
	}
}

func TestActivateScene_PrefixesDomain(t *testing.T) {
	var gotBody map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	})

	if err := c.ActivateScene(context.Background(), "movie_night"); err != nil {
		t.Fatalf("ActivateScene: %v", err)
	}
	if gotBody["entity_id"] != "scene.movie_night" {
		t.Fatalf("scene id not prefixed: %+v", gotBody)
	}
}

func TestCallService_ErrorStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if err := c.TurnOn(context.Background(), "light.kitchen"); err == nil {
		t.Fatal("expected error on 502")
	}
}
