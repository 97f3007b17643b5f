package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/cypherpunk-labs/handlepay/service/events"
	"github.com/cypherpunk-labs/handlepay/service/ledger"
)

// Client starts payment-recording workflows on a Temporal cluster. It
// satisfies the send orchestrator's Recorder interface.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient connects to Temporal.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// RecordPayment starts a RecordPaymentWorkflow and returns once Temporal
// has accepted it; the workflow completes on its own. The workflow ID is
// derived from the transaction signature, so recording the same send
// twice starts one workflow.
func (c *Client) RecordPayment(ctx context.Context, item ledger.Item, event *events.PaymentEvent) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	input := RecordPaymentInput{
		Item: AppendHistoryInput{Item: item},
	}
	if event != nil {
		input.Event = &PublishPaymentEventInput{Event: event}
	}

	options := client.StartWorkflowOptions{
		ID:        workflowID(item.TransactionSignature),
		TaskQueue: c.taskQueue,
	}

	run, err := c.client.ExecuteWorkflow(ctx, options, RecordPaymentWorkflow, input)
	if err != nil {
		return fmt.Errorf("failed to start recording workflow: %w", err)
	}

	c.logger.Debug("recording workflow started",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
		"signature", item.TransactionSignature,
	)
	return nil
}

// SDKClient returns the underlying Temporal SDK client for direct
// workflow operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

func workflowID(signature string) string {
	return "record-payment-" + signature
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
