package sendemail

import (
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/protocol"
)

// Factory builds send_email actions bound to one Sender.
type Factory struct {
	sender Sender
}

func NewFactory(sender Sender) *Factory {
	return &Factory{sender: sender}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.sender)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionSendEmail
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"to", "subject"},
		"properties": map[string]any{
			"to":         map[string]any{"type": "string", "minLength": 1},
			"subject":    map[string]any{"type": "string", "minLength": 1},
			"body":       map[string]any{"type": "string"},
			"template":   map[string]any{"type": "string"},
			"isParallel": map[string]any{"type": "boolean"},
		},
	}
}
