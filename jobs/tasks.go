package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quill-api/quill/internal/jobs"
	"github.com/quill-api/quill/internal/platform/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("jobs: email recipient required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// WelcomeEmail renders the message sent after registration.
func WelcomeEmail(email, username string) SendEmailPayload {
	return SendEmailPayload{
		To:      email,
		Subject: "Welcome to Quill",
		Body:    fmt.Sprintf("Hi %s,\n\nYour Quill account is ready. Sign in with your username to start writing.\n", username),
	}
}

// MailSender delivers a rendered message.
type MailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// SendEmailJob processes TaskTypeSendEmail tasks.
type SendEmailJob struct {
	Sender  MailSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSendEmailJob wires dependencies for the email handler.
func NewSendEmailJob(sender MailSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *SendEmailJob {
	return &SendEmailJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle decodes the payload and hands it to the sender. Undecodable payloads
// are dropped without retry.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sender == nil {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.Metrics.Skip(TaskTypeSendEmail, "payload")
		return fmt.Errorf("send email: decode payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskTypeSendEmail)
	defer func() {
		err = tracker.End(err)
	}()

	err = j.Sender.Send(ctx, mail.Message{To: payload.To, Subject: payload.Subject, Body: payload.Body})
	if err != nil {
		j.logger().Warn("send email failed", slog.String("subject", payload.Subject), slog.Any("error", err))
		return err
	}
	j.logger().Info("email sent", slog.String("subject", payload.Subject))
	return nil
}

func (j *SendEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
