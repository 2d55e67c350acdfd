package models

import "time"

// WebhookSubscription registers an external endpoint for domain event
// delivery. Deliveries are signed with the subscription's secret.
type WebhookSubscription struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"   validate:"required"`
	URL       string    `json:"url"    validate:"required,url"`
	Secret    string    `json:"secret"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether the subscription wants the named event. An empty
// event list subscribes to everything.
func (w *WebhookSubscription) Matches(eventName string) bool {
	if !w.IsActive {
		return false
	}

	if len(w.Events) == 0 {
		return true
	}

	for _, name := range w.Events {
		if name == eventName {
			return true
		}
	}

	return false
}
