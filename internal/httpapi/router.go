package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	tele "gopkg.in/telebot.v4"

	"github.com/alkaitz/telepilot/internal/config"
	"github.com/alkaitz/telepilot/internal/sysutil"
)

// secretTokenHeader is the header Telegram attaches to every webhook
// delivery, echoing the secret registered with setWebhook.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateSink receives decoded Telegram updates. The transport's Bot satisfies
// this; tests substitute a recorder.
type UpdateSink interface {
	ProcessUpdate(u tele.Update)
}

// Deps carries the injected collaborators of the operational surface.
type Deps struct {
	Sink      UpdateSink
	Version   string
	StartedAt time.Time
}

// RegisterRoutes attaches all middleware and endpoints to the given Gin
// engine: observability (tracing, metrics), CORS and security headers, the
// liveness endpoint, and the Telegram webhook intake.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Response compression
//  7. CORS and security headers
func RegisterRoutes(r *gin.Engine, cfg config.Config, d Deps) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(RequestID())

	// 3) Structured access logging
	r.Use(Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(Recovery())

	// 5) Global body size limit (1 MiB; Telegram updates are far smaller)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses; /metrics payloads in particular benefit
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(securityHeaders())

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"code": "method_not_allowed", "message": "method not allowed"})
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": d.Version,
			"uptime":  sysutil.FormatDuration(time.Since(d.StartedAt)),
		})
	})

	// Webhook intake (active only in webhook mode, but always mounted; in
	// long-poll mode nothing is registered with Telegram so nothing arrives)
	r.POST("/webhook", webhookHandler(cfg.Telegram.WebhookSecret, d.Sink))
}

// webhookHandler validates the shared secret, decodes the update, and hands
// it to the transport. The handler acknowledges immediately; Telegram redelivers
// on anything but a 2xx, so slow command handling must not hold the response.
func webhookHandler(secret string, sink UpdateSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" {
			got := c.GetHeader(secretTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				LoggerFrom(c).Warn().Msg("webhook delivery with bad secret token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code": "unauthorized", "message": "bad secret token",
				})
				return
			}
		}

		var u tele.Update
		if err := c.ShouldBindJSON(&u); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code": "bad_request", "message": "malformed update",
			})
			return
		}

		go sink.ProcessUpdate(u)
		c.Status(http.StatusOK)
	}
}

// securityHeaders applies a conservative header posture to every response.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap fail on body read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
