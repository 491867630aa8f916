// Package market fetches stock quotes from Alpha Vantage and crypto prices
// from CoinGecko.
//
// Alpha Vantage's free tier allows 5 requests per minute, so outbound calls
// are paced with a token bucket. Responses are cached through the shared
// cache store for five minutes, which keeps repeated /stock queries from
// burning the quota.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alkaitz/telepilot/internal/cache"
	"github.com/alkaitz/telepilot/internal/metrics"
)

const quoteTTL = 5 * time.Minute

// Client fetches market data from Alpha Vantage and CoinGecko.
type Client struct {
	AlphaBaseURL string
	AlphaKey     string
	GeckoBaseURL string
	HTTP         *http.Client

	limiter *rate.Limiter
	store   cache.Store
}

// New returns a Client. store may be nil to disable caching.
func New(alphaKey string, store cache.Store) *Client {
	return &Client{
		AlphaBaseURL: "https://www.alphavantage.co",
		AlphaKey:     alphaKey,
		GeckoBaseURL: "https://api.coingecko.com",
		HTTP:         &http.Client{Timeout: 15 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(12*time.Second), 5),
		store:        store,
	}
}

// StockQuote is one Alpha Vantage GLOBAL_QUOTE row.
type StockQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent string  `json:"change_percent"`
	Volume        int64   `json:"volume"`
	TradingDay    string  `json:"trading_day"`
}

// Stock returns the latest quote for symbol, serving from cache when fresh.
func (c *Client) Stock(ctx context.Context, symbol string) (*StockQuote, error) {
	metrics.FinanceRequests.Inc()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	key := "stock:" + symbol
	if q, ok := c.cached(ctx, key); ok {
		var out StockQuote
		if json.Unmarshal(q, &out) == nil {
			return &out, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.AlphaBaseURL, url.QueryEscape(symbol), c.AlphaKey)
	raw, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	// Alpha Vantage wraps the quote in prefixed keys.
	var env struct {
		Quote map[string]string `json:"Global Quote"`
		Note  string            `json:"Note"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("market: decode quote: %w", err)
	}
	if env.Note != "" {
		return nil, fmt.Errorf("market: alpha vantage throttled")
	}
	if len(env.Quote) == 0 || env.Quote["01. symbol"] == "" {
		return nil, fmt.Errorf("market: no quote for %s", symbol)
	}

	q := &StockQuote{
		Symbol:        env.Quote["01. symbol"],
		Price:         parseFloat(env.Quote["05. price"]),
		Change:        parseFloat(env.Quote["09. change"]),
		ChangePercent: env.Quote["10. change percent"],
		Volume:        int64(parseFloat(env.Quote["06. volume"])),
		TradingDay:    env.Quote["07. latest trading day"],
	}
	c.remember(ctx, key, q)
	return q, nil
}

// CryptoQuote is one CoinGecko simple-price row.
type CryptoQuote struct {
	ID        string  `json:"id"`
	PriceUSD  float64 `json:"price_usd"`
	Change24h float64 `json:"change_24h"`
	MarketCap float64 `json:"market_cap"`
	Volume24h float64 `json:"volume_24h"`
}

// Crypto returns the current USD price for a CoinGecko coin ID such as
// "bitcoin" or "ethereum", serving from cache when fresh.
func (c *Client) Crypto(ctx context.Context, coinID string) (*CryptoQuote, error) {
	metrics.FinanceRequests.Inc()
	coinID = strings.ToLower(strings.TrimSpace(coinID))

	key := "crypto:" + coinID
	if q, ok := c.cached(ctx, key); ok {
		var out CryptoQuote
		if json.Unmarshal(q, &out) == nil {
			return &out, nil
		}
	}

	u := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd&include_market_cap=true&include_24hr_vol=true&include_24hr_change=true",
		c.GeckoBaseURL, url.QueryEscape(coinID))
	raw, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	var body map[string]map[string]float64
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("market: decode crypto price: %w", err)
	}
	row, ok := body[coinID]
	if !ok {
		return nil, fmt.Errorf("market: unknown coin %q", coinID)
	}

	q := &CryptoQuote{
		ID:        coinID,
		PriceUSD:  row["usd"],
		Change24h: row["usd_24h_change"],
		MarketCap: row["usd_market_cap"],
		Volume24h: row["usd_24h_vol"],
	}
	c.remember(ctx, key, q)
	return q, nil
}

// Overview returns quotes for a fixed basket of major coins, used by the
// /market command.
func (c *Client) Overview(ctx context.Context) ([]CryptoQuote, error) {
	ids := []string{"bitcoin", "ethereum", "solana"}
	out := make([]CryptoQuote, 0, len(ids))
	for _, id := range ids {
		q, err := c.Crypto(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market: upstream returned %d", resp.StatusCode)
	}
	return raw, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.store == nil {
		return nil, false
	}
	b, ok := c.store.Get(ctx, key)
	if ok {
		metrics.CacheHits.WithLabelValues("market").Inc()
	} else {
		metrics.CacheMisses.WithLabelValues("market").Inc()
	}
	return b, ok
}

func (c *Client) remember(ctx context.Context, key string, v any) {
	if c.store == nil {
		return
	}
	if b, err := json.Marshal(v); err == nil {
		c.store.Set(ctx, key, b, quoteTTL)
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
