package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ake144/e-tutor/internal/config"
	"github.com/ake144/e-tutor/internal/database"
	"github.com/ake144/e-tutor/internal/events"
	"github.com/ake144/e-tutor/internal/logging"
	"github.com/ake144/e-tutor/internal/routes"
	"github.com/ake144/e-tutor/internal/services"
	"github.com/ake144/e-tutor/internal/telemetry"
	roomws "github.com/ake144/e-tutor/internal/websocket"
	"github.com/ake144/e-tutor/pkg/utils"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logging.Setup(cfg.ServiceName, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		fatal("failed to init tracing", err)
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		fatal("DB_URL is required", errors.New("missing DB_URL"))
	}
	pool, err := database.Connect(ctx, cfg.DBUrl)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer pool.Close()

	// 3. Collaborators
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NatsURL != "" {
		natsPublisher, err := events.NewNatsPublisher(cfg.NatsURL)
		if err != nil {
			slog.Warn("NATS unavailable, booking events disabled", "error", err)
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
			slog.Info("connected to NATS")
		}
	}

	var storage services.StorageService
	if cfg.S3.Enabled() {
		s3Storage, err := services.NewS3StorageService(ctx, cfg.S3)
		if err != nil {
			fatal("failed to init S3 storage", err)
		}
		storage = s3Storage
	}

	blacklist := utils.NewTokenBlacklist()
	defer blacklist.Stop()

	hub := roomws.NewHub()
	go hub.Run(ctx)

	// 4. Setup Fiber
	app := fiber.New()

	app.Use(otelfiber.Middleware())
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AppURL,
		AllowCredentials: true,
	}))
	app.Use(telemetry.PrometheusMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": cfg.ServiceName,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.RegisterRoutes(app, cfg, routes.Dependencies{
		DB:        pool,
		Publisher: publisher,
		Blacklist: blacklist,
		Storage:   storage,
		Hub:       hub,
	})

	// 5. Start Server
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		slog.Error("fiber shutdown failed", "error", err)
	}

	tracingCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(tracingCtx); err != nil {
		slog.Error("tracer shutdown failed", "error", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
