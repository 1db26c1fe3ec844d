package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/pawcircle/nearby/internal/core/usecases"
)

const DefaultBatchSize = 100

// ReassignmentInput is the input for the reassignment workflow.
type ReassignmentInput struct {
	Reason    string
	BatchSize int
}

// ReassignmentResult totals the per-batch assignment outcomes.
type ReassignmentResult struct {
	usecases.AssignmentSummary
	Orders  int `json:"orders"`
	Batches int `json:"batches"`
}

// ReassignmentWorkflow re-evaluates the community of every open order after
// community geometry or activity changes. Orders are processed in batches so
// a failing batch is retried on its own.
func ReassignmentWorkflow(ctx workflow.Context, input ReassignmentInput) (ReassignmentResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting reassignment workflow", "reason", input.Reason)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var result ReassignmentResult
	var ids []int64
	if err := workflow.ExecuteActivity(ctx, "ListOpenOrderIDs").Get(ctx, &ids); err != nil {
		return result, err
	}
	result.Orders = len(ids)

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))

		var sum usecases.AssignmentSummary
		if err := workflow.ExecuteActivity(ctx, "AssignOrders", ids[start:end]).Get(ctx, &sum); err != nil {
			logger.Error("batch failed", "from", start, "to", end, "error", err)
			return result, err
		}
		result.Add(sum)
		result.Batches++
	}

	logger.Info("Reassignment finished",
		"orders", result.Orders,
		"assigned", result.Assigned,
		"unchanged", result.Unchanged,
		"skipped", result.Skipped,
	)
	return result, nil
}
