package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blobapi/docs"
	"blobapi/internal/config"
	handlers "blobapi/internal/http/handler"
	"blobapi/internal/http/middleware"
	"blobapi/internal/logger"
	"blobapi/internal/otel"
	"blobapi/internal/service"
	"blobapi/internal/storage"
)

// bodyLimit caps request bodies buffered by fiber for uploads.
const bodyLimit = 256 * 1024 * 1024

// @title Blob API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present),
	// optionally layered over a YAML file.
	cfg := config.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			slog.Error("failed to load config file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg = fileCfg
	}

	log := logger.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", logger.Context("main"), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Error("failed to initialize tracing", logger.Context("main"), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize the object store client selected by STORAGE_BACKEND
	backend, err := storage.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize object storage", logger.Context("main"), slog.String("error", err.Error()))
		os.Exit(1)
	}
	instrumented, err := storage.NewInstrumented(backend, reg)
	if err != nil {
		log.Error("failed to register storage metrics", logger.Context("main"), slog.String("error", err.Error()))
		os.Exit(1)
	}

	uploadDefaults := storage.UploadDefaults(cfg.Upload)
	objSvc := service.NewObjectService(instrumented, log, service.WithUploadDefaults(uploadDefaults))

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    bodyLimit,
		// Keys, headers and params are retained by the storage backends and metrics.
		Immutable:    true,
		JSONEncoder:  jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:  jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Error("failed to register http metrics", logger.Context("main"), slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(time.UTC))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, objSvc, uploadDefaults)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", logger.Context("main"), slog.String("error", err.Error()))
		}
	}()

	log.Info("starting server",
		logger.Context("main"),
		slog.String("addr", ":"+cfg.Port),
		slog.String("backend", cfg.StorageBackend),
		slog.String("bucket", backend.Bucket()),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("failed to start server", logger.Context("main"), slog.String("error", err.Error()))
		os.Exit(1)
	}
}
