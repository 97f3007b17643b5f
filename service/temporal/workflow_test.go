package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/cypherpunk-labs/handlepay/service/events"
	"github.com/cypherpunk-labs/handlepay/service/ledger"
)

func recordInput() RecordPaymentInput {
	return RecordPaymentInput{
		Item: AppendHistoryInput{Item: ledger.Item{
			ID:                   "entry-1",
			Recipient:            "@alice",
			Amount:               "1.50",
			Flow:                 "linked",
			TransactionSignature: "sig-abc",
		}},
		Event: &PublishPaymentEventInput{Event: &events.PaymentEvent{
			Signature: "sig-abc",
			Recipient: "@alice",
			Flow:      "linked",
			Amount:    1_500_000,
		}},
	}
}

func TestRecordPaymentWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	a := NewActivities(nil, nil, nil, nil)
	env.RegisterActivity(a.AppendHistory)
	env.RegisterActivity(a.PublishPaymentEvent)

	env.OnActivity("AppendHistory", mock.Anything, mock.Anything).
		Return(&AppendHistoryResult{HistoryID: "entry-1"}, nil)
	env.OnActivity("PublishPaymentEvent", mock.Anything, mock.Anything).
		Return(nil)

	env.ExecuteWorkflow(RecordPaymentWorkflow, recordInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result RecordPaymentResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "entry-1", result.HistoryID)
	assert.True(t, result.Published)
	assert.Nil(t, result.PublishError)
}

func TestRecordPaymentWorkflow_PublishFailureIsNotFatal(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	a := NewActivities(nil, nil, nil, nil)
	env.RegisterActivity(a.AppendHistory)
	env.RegisterActivity(a.PublishPaymentEvent)

	env.OnActivity("AppendHistory", mock.Anything, mock.Anything).
		Return(&AppendHistoryResult{HistoryID: "entry-1"}, nil)
	env.OnActivity("PublishPaymentEvent", mock.Anything, mock.Anything).
		Return(errors.New("nats unavailable"))

	env.ExecuteWorkflow(RecordPaymentWorkflow, recordInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result RecordPaymentResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "entry-1", result.HistoryID)
	assert.False(t, result.Published)
	require.NotNil(t, result.PublishError)
	assert.Contains(t, *result.PublishError, "nats unavailable")
}

func TestRecordPaymentWorkflow_AppendFailureIsFatal(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	a := NewActivities(nil, nil, nil, nil)
	env.RegisterActivity(a.AppendHistory)
	env.RegisterActivity(a.PublishPaymentEvent)

	env.OnActivity("AppendHistory", mock.Anything, mock.Anything).
		Return(nil, errors.New("store unavailable"))

	env.ExecuteWorkflow(RecordPaymentWorkflow, recordInput())

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "PublishPaymentEvent", mock.Anything, mock.Anything)
}

func TestRecordPaymentWorkflow_NoEvent(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	a := NewActivities(nil, nil, nil, nil)
	env.RegisterActivity(a.AppendHistory)
	env.RegisterActivity(a.PublishPaymentEvent)

	env.OnActivity("AppendHistory", mock.Anything, mock.Anything).
		Return(&AppendHistoryResult{HistoryID: "entry-1"}, nil)

	input := recordInput()
	input.Event = nil
	env.ExecuteWorkflow(RecordPaymentWorkflow, input)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "PublishPaymentEvent", mock.Anything, mock.Anything)
}
