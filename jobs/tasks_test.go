package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/quill-api/quill/internal/jobs"
	"github.com/quill-api/quill/internal/platform/mail"
)

type captureSender struct {
	sent []mail.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg mail.Message) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func TestWelcomeEmailTaskDelivers(t *testing.T) {
	task, err := NewSendEmailTask(WelcomeEmail("alice@example.com", "alice"))
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSendEmail, task.Type())

	sender := &captureSender{}
	job := NewSendEmailJob(sender, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "Hi alice")
}

func TestSendEmailTaskRequiresRecipient(t *testing.T) {
	_, err := NewSendEmailTask(SendEmailPayload{Subject: "x"})
	assert.Error(t, err)
}

func TestSendEmailJobSkipsBadPayload(t *testing.T) {
	job := NewSendEmailJob(&captureSender{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendEmailJobPropagatesSenderError(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	task, err := NewSendEmailTask(WelcomeEmail("bob@example.com", "bob"))
	require.NoError(t, err)
	err = NewSendEmailJob(sender, nil, nil).Handle(context.Background(), task)
	assert.EqualError(t, err, "smtp down")
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		code      int
		pending   int
	}{
		{name: "no inspector", inspector: nil, code: http.StatusServiceUnavailable},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, code: http.StatusOK, pending: 3},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial")}, code: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.code, rec.Code)
			if tc.code != http.StatusOK {
				return
			}
			var stats QueueStats
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
			assert.Equal(t, QueueDefault, stats.Queue)
			assert.Equal(t, tc.pending, stats.Pending)
		})
	}
}

func TestNewWorkerNeedsHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
}
