package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/alkaitz/telepilot/internal/cache"
)

func newTestClient(t *testing.T, store cache.Store, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("demo-key", store)
	c.AlphaBaseURL = srv.URL
	c.GeckoBaseURL = srv.URL
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func alphaQuote(symbol, price string) map[string]any {
	return map[string]any{
		"Global Quote": map[string]string{
			"01. symbol":                symbol,
			"05. price":                 price,
			"06. volume":                "1200",
			"07. latest trading day":    "2025-01-02",
			"09. change":                "1.25",
			"10. change percent":        "0.85%",
		},
	}
}

func TestStock_ParsesGlobalQuote(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "GLOBAL_QUOTE" {
			t.Errorf("unexpected function %q", r.URL.Query().Get("function"))
		}
		if r.URL.Query().Get("apikey") != "demo-key" {
			t.Errorf("api key not forwarded")
		}
		_ = json.NewEncoder(w).Encode(alphaQuote("AAPL", "187.50"))
	})

	q, err := c.Stock(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if q.Symbol != "AAPL" || q.Price != 187.50 || q.Volume != 1200 {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestStock_ServesSecondCallFromCache(t *testing.T) {
	var calls int32
	store := cache.NewMemory(16)
	c := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(alphaQuote("AAPL", "187.50"))
	})

	ctx := context.Background()
	if _, err := c.Stock(ctx, "AAPL"); err != nil {
		t.Fatalf("first Stock: %v", err)
	}
	q, err := c.Stock(ctx, "AAPL")
	if err != nil {
		t.Fatalf("second Stock: %v", err)
	}
	if q.Price != 187.50 {
		t.Fatalf("unexpected cached quote: %+v", q)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected single upstream call, got %d", got)
	}
}

func TestStock_ThrottleNoteIsError(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"Note": "Thank you for using Alpha Vantage! Please slow down.",
		})
	})
	if _, err := c.Stock(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected throttle error")
	}
}

func TestCrypto_ParsesSimplePrice(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/simple/price" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]map[string]float64{
			"bitcoin": {
				"usd":            64000.5,
				"usd_24h_change": -2.1,
				"usd_market_cap": 1.2e12,
				"usd_24h_vol":    3.4e10,
			},
		})
	})

	q, err := c.Crypto(context.Background(), "Bitcoin")
	if err != nil {
		t.Fatalf("Crypto: %v", err)
	}
	if q.ID != "bitcoin" || q.PriceUSD != 64000.5 || q.Change24h != -2.1 {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestCrypto_UnknownCoin(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]map[string]float64{})
	})
	if _, err := c.Crypto(context.Background(), "dogelonmarsmoon"); err == nil {
		t.Fatal("expected unknown coin error")
	}
}

func TestOverview_FetchesBasket(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		_ = json.NewEncoder(w).Encode(map[string]map[string]float64{
			id: {"usd": 100},
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := c.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(got) != 3 || got[0].ID != "bitcoin" {
		t.Fatalf("unexpected overview: %+v", got)
	}
}
