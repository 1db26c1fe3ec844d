package workflows

import (
	"context"
	"fmt"

	"github.com/pawcircle/nearby/internal/core/ports"
	"github.com/pawcircle/nearby/internal/core/usecases"
)

// ReassignmentActivities holds the activity implementations for the
// reassignment workflow.
type ReassignmentActivities struct {
	Orders      ports.OrderRepository
	Assignments *usecases.AssignmentService
}

// ListOpenOrderIDs returns the ids of all open orders.
func (a *ReassignmentActivities) ListOpenOrderIDs(ctx context.Context) ([]int64, error) {
	ids, err := a.Orders.ListOpenIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	return ids, nil
}

// AssignOrders reassigns one batch of orders.
func (a *ReassignmentActivities) AssignOrders(ctx context.Context, ids []int64) (usecases.AssignmentSummary, error) {
	return a.Assignments.AssignOrders(ctx, ids)
}
