package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal/analytics"
	"github.com/Lucasvitorkkx/UTM/internal/auth"
	"github.com/Lucasvitorkkx/UTM/internal/cache"
	"github.com/Lucasvitorkkx/UTM/internal/config"
	"github.com/Lucasvitorkkx/UTM/internal/db"
	"github.com/Lucasvitorkkx/UTM/internal/geo"
	"github.com/Lucasvitorkkx/UTM/internal/handler"
	"github.com/Lucasvitorkkx/UTM/internal/logger"
	"github.com/Lucasvitorkkx/UTM/internal/metrics"
	"github.com/Lucasvitorkkx/UTM/internal/redirect"
	"github.com/Lucasvitorkkx/UTM/internal/repo"
	"github.com/Lucasvitorkkx/UTM/internal/tracking"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse configuration from environment")
	}

	logFile, err := logger.Setup(logger.Options{Level: cfg.LogLevel, Debug: cfg.Debug, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("failed to set up logging")
	}
	defer logFile.Close()

	for _, warning := range cfg.Warnings() {
		log.Warn().Msg(warning)
	}

	log.Info().
		Interface("config", cfg).
		Msg("current configuration")

	ctx := context.Background()
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	log.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Msg("starting application")

	credentials, err := auth.NewCredentials(cfg.AdminCreds)
	if err != nil {
		return fmt.Errorf("failed to parse admin credentials: %w", err)
	}

	dbInstance, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbInstance.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var builderOpts []tracking.BuilderOption
	if cfg.GeoIPDBPath != "" {
		geoIP, err := geo.Open(cfg.GeoIPDBPath)
		if err != nil {
			return fmt.Errorf("failed to open geoip database: %w", err)
		}
		defer geoIP.Close()
		builderOpts = append(builderOpts, tracking.WithLocator(geoIP))
		log.Info().Str("path", cfg.GeoIPDBPath).Msg("geoip fallback enabled")
	}
	builder := tracking.NewBuilder(builderOpts...)

	linksRepo := repo.NewLinksRepo(dbInstance)
	clicksRepo := repo.NewClicksRepo(dbInstance)
	projectsRepo := repo.NewProjectsRepo(dbInstance)

	var tracker redirect.Tracker
	switch cfg.TrackingMode {
	case config.TrackingAsync:
		queue := tracking.NewQueue(clicksRepo, builder, m, tracking.QueueConfig{
			Size:          cfg.TrackingQueueSize,
			BatchSize:     cfg.TrackingBatchSize,
			FlushInterval: cfg.TrackingFlushInterval,
		})
		// Runs after the server has stopped accepting redirects.
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := queue.Close(drainCtx); err != nil {
				log.Error().Err(err).Msg("failed to drain tracking queue")
			}
		}()
		tracker = queue
	default:
		tracker = tracking.NewRecorder(clicksRepo, builder, m)
	}
	log.Info().Str("mode", string(cfg.TrackingMode)).Msg("click tracking configured")

	var finder redirect.LinkFinder = linksRepo
	if cfg.RedisAddr != "" {
		linkCache, err := cache.Connect(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("link cache unavailable, resolving from database")
		} else {
			defer linkCache.Close()
			finder = cache.NewFinder(linkCache, linksRepo, cfg.LinkCacheTTL)
			log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.LinkCacheTTL).Msg("link cache enabled")
		}
	}

	resolver := redirect.NewResolver(finder, tracker, m)
	aggregator := analytics.NewAggregator(repo.NewAnalyticsRepo(dbInstance))
	authenticator := auth.NewAuthenticator(credentials, cfg.JWTSecret, cfg.SessionTTL)

	e := echo.New()
	defer e.Close()

	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	handler.Routes{
		Auth:        handler.NewAuthHandler(authenticator),
		Links:       handler.NewLinkHandler(linksRepo, projectsRepo, cfg.BaseURL),
		Dashboard:   handler.NewDashboardHandler(aggregator, projectsRepo),
		Redirect:    handler.NewRedirectHandler(resolver, handler.SignalHeaders{Country: cfg.GeoCountryHeader, City: cfg.GeoCityHeader}),
		RequireAuth: auth.NewAuthMiddleware(authenticator),
	}.Register(e)

	log.Info().Str("address", cfg.Address()).Msg("server starting")

	// Run server and handle graceful shutdown
	return runServer(ctx, e, cfg.Address())
}

func runServer(ctx context.Context, e *echo.Echo, address string) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(address)
	}()

	// Wait for context cancellation (Ctrl+C or SIGTERM) or a failed start
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	log.Info().Msg("shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during graceful shutdown")
	}

	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped")
	return nil
}
