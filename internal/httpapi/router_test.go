package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tele "gopkg.in/telebot.v4"

	"github.com/alkaitz/telepilot/internal/config"
)

// sinkRecorder captures updates handed off by the webhook route.
type sinkRecorder struct{ ch chan tele.Update }

func newSinkRecorder() *sinkRecorder {
	return &sinkRecorder{ch: make(chan tele.Update, 1)}
}

func (s *sinkRecorder) ProcessUpdate(u tele.Update) { s.ch <- u }

func (s *sinkRecorder) wait(t *testing.T) tele.Update {
	t.Helper()
	select {
	case u := <-s.ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered to sink")
		return tele.Update{}
	}
}

func newTestRouter(t *testing.T, cfg config.Config, sink UpdateSink) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, cfg, Deps{Sink: sink, Version: "test", StartedAt: time.Now()})
	return r
}

func TestRegisterRoutes_HealthMetricsFallbacks(t *testing.T) {
	cfg := config.Config{
		CORS: config.CORSConfig{AllowedOrigins: nil}, // AllowAllOrigins branch
		OTEL: config.OTELConfig{ServiceName: "test-svc"},
	}
	r := newTestRouter(t, cfg, newSinkRecorder())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health body = %s", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Fatalf("noroute body = %s", w.Body.String())
	}
}

func TestRegisterRoutes_CORSAllowlistEchoesOrigin(t *testing.T) {
	cfg := config.Config{
		CORS: config.CORSConfig{AllowedOrigins: []string{"https://ops.example.com"}},
		OTEL: config.OTELConfig{ServiceName: "test-svc"},
	}
	r := newTestRouter(t, cfg, newSinkRecorder())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Fatalf("allowlisted origin not echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "https://evil.example.com" {
		t.Fatal("unlisted origin must not be echoed")
	}
}

func TestWebhook_SecretGate(t *testing.T) {
	cfg := config.Config{
		Telegram: config.TelegramConfig{WebhookSecret: "hunter2"},
		OTEL:     config.OTELConfig{ServiceName: "test-svc"},
	}
	sink := newSinkRecorder()
	r := newTestRouter(t, cfg, sink)

	body := `{"update_id":7,"message":{"message_id":1,"text":"/start","chat":{"id":42,"type":"private"},"from":{"id":42}}}`

	// Missing secret token is rejected.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret = %d, want 401", w.Code)
	}

	// Correct secret is accepted and the update reaches the sink.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretTokenHeader, "hunter2")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid delivery = %d, want 200", w.Code)
	}
	if u := sink.wait(t); u.ID != 7 {
		t.Fatalf("sink got update %d, want 7", u.ID)
	}
}

func TestWebhook_MalformedBody(t *testing.T) {
	cfg := config.Config{OTEL: config.OTELConfig{ServiceName: "test-svc"}}
	r := newTestRouter(t, cfg, newSinkRecorder())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body = %d, want 400", w.Code)
	}
}

func TestRecovery_PanicTo500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("panic route = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("panic body = %s", w.Body.String())
	}
}
