package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"docvault/internal/apiclient"
	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/docstore"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logging"
	"docvault/internal/otel"
	"docvault/internal/web"
)

func main() {
	cfg := config.Load()
	logger := logging.FromEnv().With(zap.String("service", "docvault-web"))
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "docvault-web", logger)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storeMetrics, err := docstore.NewMetrics(reg)
	if err != nil {
		logger.Fatal("failed to register store metrics", zap.Error(err))
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	client := apiclient.New(cfg.Web.APIBaseURL, cfg.Web.HTTPTimeout)
	store := docstore.New(client,
		docstore.WithLogger(logger.Named("docstore")),
		docstore.WithMetrics(storeMetrics),
	)
	verifier := auth.FixedCredentials{
		Username: cfg.Auth.Username,
		Password: cfg.Auth.Password,
		Email:    cfg.Auth.Email,
	}

	srv, err := web.New(store, verifier, cfg.Auth, web.WithLogger(logger.Named("web")))
	if err != nil {
		logger.Fatal("failed to build views", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             web.MaxUploadBytes,
		DisableStartupMessage: true,
	})
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())

	// registered before the UI so the auth gate does not redirect scrapes
	app.Get(middleware.MetricsPath, middleware.MetricsHandler(reg))
	app.Get("/healthz", handlers.LivenessProbe())
	srv.Register(app)

	go func() {
		<-ctx.Done()
		logger.Info("shutting_down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := ":" + cfg.Web.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("api_base_url", cfg.Web.APIBaseURL))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
