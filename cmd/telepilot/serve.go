package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/cache"
	"github.com/alkaitz/telepilot/internal/clients/homeassistant"
	"github.com/alkaitz/telepilot/internal/clients/market"
	"github.com/alkaitz/telepilot/internal/clients/n8n"
	"github.com/alkaitz/telepilot/internal/clients/news"
	"github.com/alkaitz/telepilot/internal/clients/openai"
	"github.com/alkaitz/telepilot/internal/clients/tesla"
	"github.com/alkaitz/telepilot/internal/config"
	"github.com/alkaitz/telepilot/internal/handlers"
	"github.com/alkaitz/telepilot/internal/httpapi"
	"github.com/alkaitz/telepilot/internal/observability"
	"github.com/alkaitz/telepilot/internal/pipeline"
	"github.com/alkaitz/telepilot/internal/repo"
	"github.com/alkaitz/telepilot/internal/sysutil"
	"github.com/alkaitz/telepilot/internal/telegram"
	"github.com/alkaitz/telepilot/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its operational HTTP surface",
		RunE: func(*cobra.Command, []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return fmt.Errorf("db tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var store cache.Store
	if cfg.Cache.Backend == "redis" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = rc.Close() }()
		store = rc
	} else {
		store = cache.NewMemory(cfg.Cache.Capacity)
	}

	deps := buildDeps(cfg, db, store)

	if cfg.OpenAccess() {
		log.Warn().Msg("ALLOWED_USER_IDS is empty; every identity is admitted")
	}

	router := bot.NewRouter()
	handlers.Register(router, deps)

	rec := telemetry.New(db, deps.N8N, log.Logger)
	gate := pipeline.NewGate(cfg.AllowedUserIDs)
	limiter := pipeline.NewLimiter(cfg.RateLimit, cfg.RateWindow)
	handler := bot.Chain(router.Serve,
		pipeline.Logging(),
		gate.Middleware(),
		limiter.Middleware(),
		pipeline.Telemetry(rec),
	)

	tgbot, err := telegram.New(cfg.Telegram, handler, log.Logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if err := tgbot.Announce(router.Commands(), handlers.Descriptions); err != nil {
		log.Warn().Err(err).Msg("announcing command menu failed")
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, cfg, httpapi.Deps{
		Sink:      tgbot,
		Version:   version,
		StartedAt: deps.StartedAt,
	})
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	errc := make(chan error, 2)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http surface listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		mode := "long-poll"
		if cfg.Telegram.WebhookURL != "" {
			mode = "webhook"
		}
		log.Info().Str("mode", mode).Msg("telegram transport starting")
		if err := tgbot.Start(cfg.Telegram); err != nil {
			errc <- fmt.Errorf("telegram transport: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err = <-errc:
		log.Error().Err(err).Msg("fatal component error")
	}

	tgbot.Stop()

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutCtx); serr != nil {
		log.Error().Err(serr).Msg("http shutdown")
	}
	if oerr := shutdownOTel(shutCtx); oerr != nil {
		log.Error().Err(oerr).Msg("otel shutdown")
	}
	return err
}

// buildDeps constructs the collaborator clients, leaving unconfigured ones
// nil so their handlers answer with a "not configured" message.
func buildDeps(cfg config.Config, db *gorm.DB, store cache.Store) *handlers.Deps {
	col := cfg.Collaborator
	d := &handlers.Deps{
		DB:        db,
		FeedURLs:  cfg.FeedURLs,
		GiphyKey:  col.GiphyAPIKey,
		StartedAt: time.Now(),
		Version:   version,
	}
	if id, ok := cfg.AdminID(); ok {
		d.AdminID = id
	}
	if col.OpenAIAPIKey != "" {
		d.AI = openai.New(col.OpenAIBaseURL, col.OpenAIAPIKey, "")
	}
	if col.HomeAssistantURL != "" {
		d.Home = homeassistant.New(col.HomeAssistantURL, col.HomeAssistantToken)
	}
	if col.TeslaAPIURL != "" && col.TeslaToken != "" {
		d.Car = tesla.New(col.TeslaAPIURL, col.TeslaToken, col.TeslaVehicleID)
	}
	if col.AlphaVantageKey != "" {
		d.Market = market.New(col.AlphaVantageKey, store)
	}
	if col.NewsAPIKey != "" {
		d.News = news.New(col.NewsAPIKey, store)
	}
	// The n8n client is its own disabled sentinel when no URL is set.
	d.N8N = n8n.New(col.N8NURL, col.N8NToken)
	return d
}
