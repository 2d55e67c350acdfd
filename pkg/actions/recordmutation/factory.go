package recordmutation

import (
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/protocol"
)

// CreateFactory builds create_record actions.
type CreateFactory struct {
	store RecordStore
}

func NewCreateFactory(store RecordStore) *CreateFactory {
	return &CreateFactory{store: store}
}

func (f *CreateFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.store, true)
}

func (f *CreateFactory) ID() models.ActionType {
	return models.ActionCreateRecord
}

func (f *CreateFactory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"resource", "fields"},
		"properties": map[string]any{
			"resource":   map[string]any{"type": "string", "minLength": 1},
			"fields":     map[string]any{"type": "object"},
			"isParallel": map[string]any{"type": "boolean"},
		},
	}
}

// UpdateFactory builds update_record actions.
type UpdateFactory struct {
	store RecordStore
}

func NewUpdateFactory(store RecordStore) *UpdateFactory {
	return &UpdateFactory{store: store}
}

func (f *UpdateFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.store, false)
}

func (f *UpdateFactory) ID() models.ActionType {
	return models.ActionUpdateRecord
}

func (f *UpdateFactory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"resource", "recordId", "fields"},
		"properties": map[string]any{
			"resource":   map[string]any{"type": "string", "minLength": 1},
			"recordId":   map[string]any{"type": "string", "minLength": 1},
			"fields":     map[string]any{"type": "object"},
			"isParallel": map[string]any{"type": "boolean"},
		},
	}
}
