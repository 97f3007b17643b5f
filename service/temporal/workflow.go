package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RecordPaymentInput contains everything needed to record one completed
// send: the history entry and, optionally, the event to publish.
type RecordPaymentInput struct {
	Item  AppendHistoryInput        `json:"item"`
	Event *PublishPaymentEventInput `json:"event,omitempty"`
}

// RecordPaymentResult reports what was recorded.
type RecordPaymentResult struct {
	HistoryID    string  `json:"history_id"`
	Published    bool    `json:"published"`
	PublishError *string `json:"publish_error,omitempty"`
}

// RecordPaymentWorkflow records a completed send durably. The history
// write is the record of truth and fails the workflow if it cannot
// complete; the event publish is best effort and its failure only shows
// up in the result. The workflow never touches the chain: recording must
// not resubmit anything.
func RecordPaymentWorkflow(ctx workflow.Context, input RecordPaymentInput) (*RecordPaymentResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("RecordPaymentWorkflow started",
		"signature", input.Item.Item.TransactionSignature,
		"flow", input.Item.Item.Flow,
	)

	result := &RecordPaymentResult{}

	appendOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	}

	var appendResult *AppendHistoryResult
	err := workflow.ExecuteActivity(
		workflow.WithActivityOptions(ctx, appendOptions),
		"AppendHistory", input.Item,
	).Get(ctx, &appendResult)
	if err != nil {
		logger.Error("history append failed", "error", err)
		return nil, fmt.Errorf("history append failed: %w", err)
	}
	result.HistoryID = appendResult.HistoryID

	if input.Event == nil {
		return result, nil
	}

	publishOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}

	err = workflow.ExecuteActivity(
		workflow.WithActivityOptions(ctx, publishOptions),
		"PublishPaymentEvent", *input.Event,
	).Get(ctx, nil)
	if err != nil {
		// The event stream is downstream convenience; exhausting its
		// retries must not fail an already-written record.
		logger.Warn("event publish failed", "error", err)
		errMsg := err.Error()
		result.PublishError = &errMsg
		return result, nil
	}

	result.Published = true
	return result, nil
}
