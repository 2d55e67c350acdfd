// Package sendnotification implements the send_notification action.
package sendnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/template"
)

// Notifier pushes an in-app or channel notification to a recipient.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Notification is the rendered payload handed to the Notifier.
type Notification struct {
	Recipient string
	Title     string
	Message   string
	Channel   string
}

// LogNotifier writes the notification to the log instead of delivering it.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, notification Notification) error {
	slog.Default().InfoContext(ctx, "Notification sent",
		"recipient", notification.Recipient, "title", notification.Title,
		"channel", notification.Channel)

	return nil
}

// Action delivers one notification per execution step.
type Action struct {
	raw      map[string]any
	notifier Notifier
}

func NewAction(config map[string]any, notifier Notifier) (*Action, error) {
	var notificationConfig models.NotificationConfig

	err := models.DecodeConfig(config, &notificationConfig)
	if err != nil {
		return nil, err
	}

	if notifier == nil {
		notifier = LogNotifier{}
	}

	return &Action{raw: config, notifier: notifier}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "send_notification_action")

	rendered, err := template.RenderConfig(a.raw, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render notification config: %w", err)
	}

	var notificationConfig models.NotificationConfig

	err = models.DecodeConfig(rendered, &notificationConfig)
	if err != nil {
		return nil, err
	}

	notification := Notification{
		Recipient: notificationConfig.Recipient,
		Title:     notificationConfig.Title,
		Message:   notificationConfig.Message,
		Channel:   notificationConfig.Channel,
	}

	err = a.notifier.Notify(ctx, notification)
	if err != nil {
		return nil, fmt.Errorf("failed to notify %s: %w", notification.Recipient, err)
	}

	logger.InfoContext(ctx, "Notification dispatched",
		"execution_id", executionCtx.ExecutionID, "recipient", notification.Recipient)

	return map[string]any{
		"notificationSent": true,
		"recipient":        notification.Recipient,
	}, nil
}
