package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/quill-api/quill/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects the queue client and inspector to the same Redis.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	return &JobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// StatsCommand prints the default queue counters as JSON.
func (c *JobsCLI) StatsCommand(out io.Writer) int {
	stats, err := jobs.InspectQueue(c.inspector)
	if err != nil {
		_, _ = fmt.Fprintf(out, "jobs stats: %v\n", err)
		return 1
	}
	if err := json.NewEncoder(out).Encode(stats); err != nil {
		return 1
	}
	return 0
}

// SendTestCommand enqueues a welcome email to verify mail delivery end to end.
func (c *JobsCLI) SendTestCommand(ctx context.Context, to string, out io.Writer) int {
	if c == nil || c.client == nil {
		_, _ = fmt.Fprintln(out, errors.New("jobs send-test: client not configured"))
		return 1
	}
	info, err := c.client.EnqueueSendEmail(ctx, jobs.WelcomeEmail(to, "tester"))
	if err != nil {
		_, _ = fmt.Fprintf(out, "jobs send-test: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "enqueued %s as %s\n", info.Type, info.ID)
	return 0
}
