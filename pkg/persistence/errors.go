package persistence

import "errors"

// Standard persistence error types that all implementations return.
var (
	// ErrTemplateNotFound indicates no template exists for the identifier.
	ErrTemplateNotFound = errors.New("workflow template not found")

	// ErrExecutionNotFound indicates no execution exists for the identifier.
	ErrExecutionNotFound = errors.New("workflow execution not found")

	// ErrStepNotFound indicates no execution step exists for the identifier.
	ErrStepNotFound = errors.New("execution step not found")

	// ErrWebhookNotFound indicates no webhook subscription exists for the identifier.
	ErrWebhookNotFound = errors.New("webhook subscription not found")

	// ErrExecutionStatusConflict indicates a conditional status update found
	// the execution in a different state than expected. Callers treat this
	// as "someone else got there first".
	ErrExecutionStatusConflict = errors.New("execution status conflict")
)

// IsTemplateNotFound checks if an error indicates a missing template.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsWebhookNotFound checks if an error indicates a missing webhook subscription.
func IsWebhookNotFound(err error) bool {
	return errors.Is(err, ErrWebhookNotFound)
}

// IsExecutionStatusConflict checks if an error indicates a lost optimistic-concurrency race.
func IsExecutionStatusConflict(err error) bool {
	return errors.Is(err, ErrExecutionStatusConflict)
}
