package sendnotification

import (
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/protocol"
)

// Factory builds send_notification actions bound to one Notifier.
type Factory struct {
	notifier Notifier
}

func NewFactory(notifier Notifier) *Factory {
	return &Factory{notifier: notifier}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.notifier)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionSendNotification
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"recipient", "message"},
		"properties": map[string]any{
			"recipient":  map[string]any{"type": "string", "minLength": 1},
			"title":      map[string]any{"type": "string"},
			"message":    map[string]any{"type": "string", "minLength": 1},
			"channel":    map[string]any{"type": "string"},
			"isParallel": map[string]any{"type": "boolean"},
		},
	}
}
