package webhook

import (
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/protocol"
	"github.com/vetsuite/vetflow/pkg/queue"
)

// Factory builds webhook actions bound to the delivery queue.
type Factory struct {
	queue queue.Queue
}

func NewFactory(q queue.Queue) *Factory {
	return &Factory{queue: q}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.queue)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionWebhook
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"url"},
		"properties": map[string]any{
			"url":        map[string]any{"type": "string", "minLength": 1},
			"event":      map[string]any{"type": "string"},
			"secret":     map[string]any{"type": "string"},
			"data":       map[string]any{"type": "object"},
			"isParallel": map[string]any{"type": "boolean"},
		},
	}
}
