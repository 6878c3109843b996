// Package jobs defines the background task types and the Asynq worker glue.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeAttendanceReminder nudges form teachers whose registers are
	// still empty.
	TaskTypeAttendanceReminder = "attendance:reminder"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SMTPSender delivers queued mail over plain SMTP. Local development
// points it at Mailpit, production at a relay.
type SMTPSender struct {
	Addr   string
	From   string
	Logger *slog.Logger
}

// HandleSendEmail processes TaskTypeSendEmail tasks.
func (s *SMTPSender) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode mail payload: %w: %w", err, asynq.SkipRetry)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.From, payload.To, payload.Subject, payload.Body)
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{payload.To}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", payload.To, err)
	}
	if s.Logger != nil {
		s.Logger.Info("mail sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	}
	return nil
}

// NewAttendanceReminderTask constructs the daily reminder task.
func NewAttendanceReminderTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAttendanceReminder, nil)
}
