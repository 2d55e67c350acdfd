// Package registry maps action types to their factories and validates
// action configs against each factory's JSON schema.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/protocol"
)

// Registry holds the action factories known to this process.
type Registry struct {
	logger    *slog.Logger
	factories map[models.ActionType]protocol.ActionFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[models.ActionType]protocol.ActionFactory),
	}
}

// RegisterAction adds a factory, replacing any previous factory for the
// same action type.
func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.factories[factory.ID()] = factory
}

// IsRegistered reports whether an action type has a factory.
func (r *Registry) IsRegistered(actionType models.ActionType) bool {
	_, ok := r.factories[actionType]

	return ok
}

// AvailableActions returns the registered action types, sorted.
func (r *Registry) AvailableActions() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.factories))
	for actionType := range r.factories {
		types = append(types, actionType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// ValidateConfig checks a raw config map against the action type's schema.
func (r *Registry) ValidateConfig(actionType models.ActionType, config map[string]any) error {
	factory, ok := r.factories[actionType]
	if !ok {
		return fmt.Errorf("action type '%s' not registered", actionType)
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for '%s': %w", actionType, err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid config for '%s': %s", actionType, strings.Join(descriptions, "; "))
	}

	return nil
}

// CreateAction validates the config and instantiates a handler for the
// action type.
func (r *Registry) CreateAction(actionType models.ActionType, config map[string]any) (protocol.Action, error) {
	factory, ok := r.factories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	err := r.ValidateConfig(actionType, config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config)
}
