package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/pawcircle/nearby/internal/core/usecases"
	"github.com/pawcircle/nearby/internal/workflows"
)

type ReassignmentSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env  *testsuite.TestWorkflowEnvironment
	acts *workflows.ReassignmentActivities
}

func (s *ReassignmentSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.acts = &workflows.ReassignmentActivities{}
	s.env.RegisterActivity(s.acts)
}

func (s *ReassignmentSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func (s *ReassignmentSuite) TestBatchesAndSums() {
	s.env.OnActivity(s.acts.ListOpenOrderIDs, mock.Anything).Return(ids(250), nil)

	var batchSizes []int
	s.env.OnActivity(s.acts.AssignOrders, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, batch []int64) (usecases.AssignmentSummary, error) {
			batchSizes = append(batchSizes, len(batch))
			return usecases.AssignmentSummary{Assigned: len(batch) - 1, Skipped: 1}, nil
		},
	).Times(3)

	s.env.ExecuteWorkflow(workflows.ReassignmentWorkflow, workflows.ReassignmentInput{Reason: "community 3 created"})

	require.True(s.T(), s.env.IsWorkflowCompleted())
	require.NoError(s.T(), s.env.GetWorkflowError())

	var res workflows.ReassignmentResult
	require.NoError(s.T(), s.env.GetWorkflowResult(&res))
	assert.Equal(s.T(), []int{100, 100, 50}, batchSizes)
	assert.Equal(s.T(), 250, res.Orders)
	assert.Equal(s.T(), 3, res.Batches)
	assert.Equal(s.T(), 247, res.Assigned)
	assert.Equal(s.T(), 3, res.Skipped)
}

func (s *ReassignmentSuite) TestNoOpenOrders() {
	s.env.OnActivity(s.acts.ListOpenOrderIDs, mock.Anything).Return([]int64{}, nil)

	s.env.ExecuteWorkflow(workflows.ReassignmentWorkflow, workflows.ReassignmentInput{BatchSize: 10})

	require.NoError(s.T(), s.env.GetWorkflowError())
	var res workflows.ReassignmentResult
	require.NoError(s.T(), s.env.GetWorkflowResult(&res))
	assert.Equal(s.T(), workflows.ReassignmentResult{}, res)
}

func (s *ReassignmentSuite) TestBatchFailureFailsWorkflow() {
	s.env.OnActivity(s.acts.ListOpenOrderIDs, mock.Anything).Return(ids(5), nil)
	s.env.OnActivity(s.acts.AssignOrders, mock.Anything, mock.Anything).
		Return(usecases.AssignmentSummary{}, errors.New("database unavailable"))

	s.env.ExecuteWorkflow(workflows.ReassignmentWorkflow, workflows.ReassignmentInput{BatchSize: 2})

	require.True(s.T(), s.env.IsWorkflowCompleted())
	assert.Error(s.T(), s.env.GetWorkflowError())
}

func TestReassignmentSuite(t *testing.T) {
	suite.Run(t, new(ReassignmentSuite))
}
