package temporaladapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/pawcircle/nearby/internal/workflows"
)

// Scheduler implements ports.ReassignmentScheduler by starting a
// ReassignmentWorkflow on Temporal.
type Scheduler struct {
	client    client.Client
	taskQueue string
	batchSize int
}

// NewScheduler creates a Scheduler submitting to taskQueue.
func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue, batchSize: workflows.DefaultBatchSize}
}

// Dial connects to the Temporal frontend.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial: %w", err)
	}
	return c, nil
}

// ScheduleReassignment starts a new reassignment run and returns once
// Temporal has accepted it.
func (s *Scheduler) ScheduleReassignment(ctx context.Context, reason string) error {
	opts := client.StartWorkflowOptions{
		ID:        "community-reassignment-" + uuid.NewString(),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, workflows.ReassignmentWorkflow, workflows.ReassignmentInput{
		Reason:    reason,
		BatchSize: s.batchSize,
	})
	if err != nil {
		return fmt.Errorf("start reassignment workflow: %w", err)
	}
	slog.InfoContext(ctx, "reassignment scheduled", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "reason", reason)
	return nil
}
