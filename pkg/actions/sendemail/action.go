// Package sendemail implements the send_email action.
package sendemail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/template"
)

// Sender delivers a rendered email. Production deployments plug in a real
// provider; the default logs the message.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// Message is the rendered email handed to the Sender.
type Message struct {
	To      string
	Subject string
	Body    string
}

// LogSender writes the message to the log instead of delivering it.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, message Message) error {
	slog.Default().InfoContext(ctx, "Email sent",
		"to", message.To, "subject", message.Subject)

	return nil
}

// Action sends one email per execution step.
type Action struct {
	config models.EmailConfig
	raw    map[string]any
	sender Sender
}

// NewAction decodes the config and binds the sender.
func NewAction(config map[string]any, sender Sender) (*Action, error) {
	var emailConfig models.EmailConfig

	err := models.DecodeConfig(config, &emailConfig)
	if err != nil {
		return nil, err
	}

	if sender == nil {
		sender = LogSender{}
	}

	return &Action{config: emailConfig, raw: config, sender: sender}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "send_email_action")

	rendered, err := template.RenderConfig(a.raw, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render email config: %w", err)
	}

	var emailConfig models.EmailConfig

	err = models.DecodeConfig(rendered, &emailConfig)
	if err != nil {
		return nil, err
	}

	message := Message{
		To:      emailConfig.To,
		Subject: emailConfig.Subject,
		Body:    emailConfig.Body,
	}

	err = a.sender.Send(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send email to %s: %w", message.To, err)
	}

	logger.InfoContext(ctx, "Email dispatched",
		"execution_id", executionCtx.ExecutionID, "to", message.To)

	return map[string]any{
		"emailSent": true,
		"emailTo":   message.To,
	}, nil
}
