// Command assigner keeps the community of orders and users in sync with
// their location by consuming orders.created.<id> and users.located.<id>.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/pawcircle/nearby/internal/adapters/nats"
	"github.com/pawcircle/nearby/internal/adapters/postgres"
	"github.com/pawcircle/nearby/internal/core/domain"
	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/usecases"
	"github.com/pawcircle/nearby/internal/pkg/config"
	"github.com/pawcircle/nearby/internal/pkg/logging"
	"github.com/pawcircle/nearby/internal/pkg/metrics"
	"github.com/pawcircle/nearby/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("pawcircle-assigner")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer subscriber.Close()

	communities := postgres.NewCommunityRepo(db)
	svc := usecases.NewAssignmentService(
		communities,
		postgres.NewOrderRepo(db),
		postgres.NewUserRepo(db),
		publisher,
		matching.New(cfg.Matching.EarthRadiusKm),
	)

	if err := subscriber.SubscribeOrderCreated(ctx, handle("order", svc.AssignOrder)); err != nil {
		log.Fatalf("subscribe orders: %v", err)
	}
	if err := subscriber.SubscribeUserLocated(ctx, handle("user", svc.AssignUser)); err != nil {
		log.Fatalf("subscribe users: %v", err)
	}

	// metrics and liveness for the orchestrator
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.Handler())
	app.Get("/v1/health", func(c *fiber.Ctx) error {
		if err := publisher.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener stopped", "error", err)
		}
	}()

	slog.Info("assigner started", "nats", cfg.NATS.URL)
	<-ctx.Done()

	slog.Info("shutdown signal received")
	_ = app.ShutdownWithTimeout(5 * time.Second)
}

// handle adapts an assignment call to a message handler. Messages about
// subjects that no longer exist, or whose stored coordinates are corrupt,
// are acknowledged; everything else is redelivered.
func handle(kind string, assign func(context.Context, int64) (domain.AssignmentOutcome, error)) func(context.Context, int64) error {
	return func(ctx context.Context, id int64) error {
		outcome, err := assign(ctx, id)
		switch {
		case err == nil:
			slog.DebugContext(ctx, "assignment handled", "kind", kind, "id", id, "outcome", outcome)
			return nil
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidCoordinate):
			slog.WarnContext(ctx, "assignment dropped", "kind", kind, "id", id, "error", err)
			return nil
		default:
			return err
		}
	}
}
