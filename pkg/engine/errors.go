package engine

import "errors"

var (
	// ErrTemplateInactive rejects starting an execution from a deactivated
	// template.
	ErrTemplateInactive = errors.New("workflow template is not active")
	// ErrNoActions rejects starting an execution with an empty action list.
	ErrNoActions = errors.New("workflow has no actions")
)

func IsTemplateInactive(err error) bool { return errors.Is(err, ErrTemplateInactive) }
func IsNoActions(err error) bool        { return errors.Is(err, ErrNoActions) }
