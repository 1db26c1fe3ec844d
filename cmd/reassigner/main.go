// Command reassigner runs the Temporal worker that recomputes the community
// of every open order. "reassigner trigger [reason]" starts one run and exits.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.temporal.io/sdk/worker"

	natsadapter "github.com/pawcircle/nearby/internal/adapters/nats"
	"github.com/pawcircle/nearby/internal/adapters/postgres"
	temporaladapter "github.com/pawcircle/nearby/internal/adapters/temporal"
	"github.com/pawcircle/nearby/internal/core/matching"
	"github.com/pawcircle/nearby/internal/core/usecases"
	"github.com/pawcircle/nearby/internal/pkg/config"
	"github.com/pawcircle/nearby/internal/pkg/logging"
	"github.com/pawcircle/nearby/internal/workflows"
)

func main() {
	cfg, err := config.Load("pawcircle-reassigner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	c, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if len(os.Args) > 1 && os.Args[1] == "trigger" {
		reason := "manual"
		if len(os.Args) > 2 {
			reason = strings.Join(os.Args[2:], " ")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := temporaladapter.NewScheduler(c, cfg.Temporal.TaskQueue).ScheduleReassignment(ctx, reason); err != nil {
			log.Fatalf("trigger: %v", err)
		}
		return
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer publisher.Close()

	orders := postgres.NewOrderRepo(db)
	assignments := usecases.NewAssignmentService(
		postgres.NewCommunityRepo(db),
		orders,
		postgres.NewUserRepo(db),
		publisher,
		matching.New(cfg.Matching.EarthRadiusKm),
	)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ReassignmentWorkflow)
	w.RegisterActivity(&workflows.ReassignmentActivities{
		Orders:      orders,
		Assignments: assignments,
	})

	slog.Info("reassigner worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
