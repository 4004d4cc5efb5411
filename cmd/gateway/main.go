package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vodgate/internal/core/services"
	httphandlers "vodgate/internal/handlers/http"
	"vodgate/internal/infrastructure/identity"
	"vodgate/internal/infrastructure/middleware"
	"vodgate/internal/infrastructure/monitoring"
	repositories "vodgate/internal/infrastructure/repositories"
	"vodgate/pkg/config"
	"vodgate/pkg/logger"
	"vodgate/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var configPaths = []string{
	"configs/config.yaml",
	"./configs/config.yaml",
	"/etc/vodgate/config.yaml",
	"config.yaml",
}

func resolveConfigPath() string {
	if p := os.Getenv("VODGATE_CONFIG"); p != "" {
		return p
	}
	for _, p := range configPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return configPaths[0]
}

func main() {
	// Signing material is validated here; there is no default to fall
	// back to.
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "vodgate: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()
	ctxLogger := logger.NewContextLogger(zapLogger)

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "vodgate",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	collector := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)

	repoFactory, err := repositories.NewRepositoryFactory(cfg, collector, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	contentRepo := repoFactory.CreateContentRepository()
	userRepo := repoFactory.CreateUserRepository()

	if cfg.Store.SeedFile != "" {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := repoFactory.Seed(seedCtx, cfg.Store.SeedFile)
		cancel()
		if err != nil {
			log.Fatalw("failed to load seed file", "path", cfg.Store.SeedFile, "error", err)
		}
	}

	verifierCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	verifier, err := identity.NewVerifier(verifierCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatalw("failed to create identity verifier", "mode", cfg.Identity.Mode, "error", err)
	}

	signer, err := services.NewCDNSigner(services.CDNSignerConfig{
		KeyName:         cfg.CDN.KeyName,
		SecretKey:       cfg.CDN.SecretKey,
		CookieName:      cfg.CDN.CookieName,
		CookieDomain:    cfg.CDN.CookieDomain,
		Secure:          cfg.CDN.Secure,
		BaseURL:         cfg.CDN.BaseURL,
		MaxUnboundedTTL: cfg.CDN.MaxUnboundedTTL,
	}, log)
	if err != nil {
		log.Fatalw("invalid CDN signing configuration", "error", err)
	}

	authorizationService := services.NewAuthorizationService(
		contentRepo,
		userRepo,
		verifier,
		signer,
		collector,
		log,
		services.WithLookupTimeout(cfg.Server.LookupTimeout),
	)

	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddStoreCheck("store", repoFactory, 30*time.Second, 2*time.Second)
	healthChecker.AddCheck("store_breaker", func(ctx context.Context) (bool, error) {
		if state := repoFactory.BreakerState(); state == "open" {
			return false, fmt.Errorf("store circuit breaker is %s", state)
		}
		return true, nil
	}, 30*time.Second, time.Second)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestIDMiddleware(ctxLogger),
		middleware.TracingMiddleware(),
		middleware.NewHTTPRateLimitMiddleware(cfg),
		middleware.ErrorHandlerMiddleware(log),
	)

	httphandlers.NewPlaybackHandler(authorizationService).SetupRoutes(router)
	httphandlers.NewHealthHandler(healthChecker).SetupRoutes(router)

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	bgCtx, stopChecks := context.WithCancel(context.Background())
	defer stopChecks()
	go healthChecker.StartBackgroundChecks(bgCtx)

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting vodgate",
			"address", cfg.Server.Address,
			"store", repoFactory.Driver(),
			"identity", cfg.Identity.Mode,
			"key_name", cfg.CDN.KeyName,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down vodgate...")
	stopChecks()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("vodgate stopped")
}
