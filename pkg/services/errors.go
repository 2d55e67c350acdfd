// Package services contains the application services the API and worker
// binaries share: template management, execution management, and webhook
// subscription management.
package services

import "errors"

// ErrValidation marks input errors callers should surface as 422s. The
// wrapped message carries the specific violations.
var ErrValidation = errors.New("validation failed")

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
