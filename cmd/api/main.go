package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/pawcircle/nearby/internal/adapters/http"
	natsadapter "github.com/pawcircle/nearby/internal/adapters/nats"
	"github.com/pawcircle/nearby/internal/adapters/postgres"
	temporaladapter "github.com/pawcircle/nearby/internal/adapters/temporal"
	"github.com/pawcircle/nearby/internal/adapters/valkey"
	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/ports"
	"github.com/pawcircle/nearby/internal/core/usecases"
	"github.com/pawcircle/nearby/internal/pkg/config"
	"github.com/pawcircle/nearby/internal/pkg/logging"
	"github.com/pawcircle/nearby/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("pawcircle-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	deps := &http.Dependencies{
		DB:   db,
		Auth: http.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
	}
	if deps.Auth == nil {
		slog.Warn("auth.jwt_secret is empty, admin endpoints are disabled")
	}

	// Optional backends degrade the service instead of stopping it.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, "pawcircle:"); err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	var publisher ports.EventPublisher = noopPublisher{}
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, assignment events are not published", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for the WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Drain()
		deps.NATS = nc
	}

	var scheduler ports.ReassignmentScheduler
	if tc, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace); err != nil {
		slog.Warn("temporal unavailable, community changes will not trigger reassignment", "error", err)
	} else {
		defer tc.Close()
		scheduler = temporaladapter.NewScheduler(tc, cfg.Temporal.TaskQueue)
	}

	communityRepo := postgres.NewCommunityRepo(db)
	orderRepo := postgres.NewOrderRepo(db)
	userRepo := postgres.NewUserRepo(db)

	matcher := matching.New(cfg.Matching.EarthRadiusKm)
	deps.Matcher = matcher
	deps.Communities = usecases.NewCommunityService(communityRepo, cache, scheduler, matcher)
	deps.Assignments = usecases.NewAssignmentService(communityRepo, orderRepo, userRepo, publisher, matcher)
	deps.Nearby = usecases.NewNearbyService(communityRepo, orderRepo, userRepo, cache, matcher, usecases.NearbyOptions{
		DefaultRadiusKm: cfg.Matching.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Matching.MaxRadiusKm,
		CacheTTL:        cfg.Matching.CacheTTL,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "PawCircle Nearby",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.pawcircle.app",
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, http.DefaultRouterOptions)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// noopPublisher drops events when NATS is down; subscribers recover
// through the next reassignment run.
type noopPublisher struct{}

func (noopPublisher) PublishCommunityAssigned(ctx context.Context, event *domain.AssignmentEvent) error {
	return nil
}
