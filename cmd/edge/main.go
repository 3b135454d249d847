// Package main runs the edge service: the HTTP gateway between the mobile
// clients and the managed Supabase backend.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/astrovia/backend/internal/app"
	"github.com/astrovia/backend/internal/app/httpapi"
	"github.com/astrovia/backend/internal/app/storage/supabasestore"
	"github.com/astrovia/backend/internal/cache"
	"github.com/astrovia/backend/internal/config"
	"github.com/astrovia/backend/internal/metrics"
	"github.com/astrovia/backend/internal/middleware"
	"github.com/astrovia/backend/pkg/logger"
	"github.com/astrovia/backend/supabase/client"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	// .env is optional; real deployments inject environment directly.
	_ = godotenv.Load()

	log := logger.NewDefault("edge")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	supa, err := client.NewResilient(client.ResilientConfig{
		Config: client.Config{
			URL:        cfg.Supabase.URL,
			AnonKey:    cfg.Supabase.AnonKey,
			ServiceKey: cfg.Supabase.ServiceKey,
		},
		Retry:   client.DefaultRetryConfig(),
		Breaker: client.DefaultCircuitBreakerConfig(),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create supabase client")
	}

	store := supabasestore.New(supa)

	opts := app.Options{
		Metrics: metrics.New("edge"),
		Buckets: []string{
			cfg.Storage.UserAvatarsBucket,
			cfg.Storage.AdvisorAvatarsBucket,
		},
	}

	if cfg.Redis.Addr != "" {
		statusCache := cache.New(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := statusCache.Ping(pingCtx); err != nil {
			log.WithError(err).Warn("redis unreachable, running without cache")
		} else {
			opts.Cache = statusCache
			defer statusCache.Close()
		}
		cancel()
	}

	application, err := app.New(app.Stores{
		Profiles:      store,
		Consultations: store,
		Credits:       store,
		Push:          store,
		Support:       store,
		Files:         store,
		Identity:      store,
	}, opts, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}

	router := httpapi.NewHandler(application)
	router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)

	router.Use(middleware.MetricsMiddleware("edge", opts.Metrics))

	// Auth runs before logging and rate limiting so both see the caller id;
	// otherwise the limiter falls back to IP keying for everyone.
	auth := middleware.NewAuthMiddleware([]byte(cfg.Supabase.JWTSecret), log.Named("auth"), []string{"/health", "/metrics"})
	router.Use(auth.Handler)
	router.Use(middleware.LoggingMiddleware(log.Named("http")))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Named("ratelimit"))
		limiter.StartCleanup(time.Minute)
		router.Use(limiter.Handler)
	}

	// CORS wraps everything so preflights are answered before auth runs.
	cors := middleware.NewCORSMiddleware([]string{"*"})
	handler := cors.Handler(router)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("edge service listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}

	log.Info("edge service stopped")
}
