package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
)

// WebhookRepository stores webhook subscriptions as JSON documents under
// <root>/webhooks.
type WebhookRepository struct {
	root string
	mu   *sync.RWMutex
}

func (r *WebhookRepository) dir() string {
	return filepath.Join(r.root, "webhooks")
}

func (r *WebhookRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *WebhookRepository) Save(_ context.Context, subscription *models.WebhookSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(r.path(subscription.ID), subscription)
}

func (r *WebhookRepository) GetByID(_ context.Context, id string) (*models.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subscription models.WebhookSubscription

	found, err := readJSON(r.path(id), &subscription)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrWebhookNotFound
	}

	return &subscription, nil
}

func (r *WebhookRepository) List(_ context.Context) ([]*models.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked()
}

func (r *WebhookRepository) listLocked() ([]*models.WebhookSubscription, error) {
	paths, err := listJSONFiles(r.dir())
	if err != nil {
		return nil, err
	}

	subscriptions := make([]*models.WebhookSubscription, 0, len(paths))

	for _, path := range paths {
		var subscription models.WebhookSubscription

		found, err := readJSON(path, &subscription)
		if err != nil {
			return nil, err
		}

		if found {
			subscriptions = append(subscriptions, &subscription)
		}
	}

	sort.SliceStable(subscriptions, func(i, j int) bool {
		return subscriptions[i].CreatedAt.Before(subscriptions[j].CreatedAt)
	})

	return subscriptions, nil
}

func (r *WebhookRepository) ListActive(_ context.Context) ([]*models.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscriptions, err := r.listLocked()
	if err != nil {
		return nil, err
	}

	active := make([]*models.WebhookSubscription, 0, len(subscriptions))

	for _, subscription := range subscriptions {
		if subscription.IsActive {
			active = append(active, subscription)
		}
	}

	return active, nil
}

func (r *WebhookRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if os.IsNotExist(err) {
		return persistence.ErrWebhookNotFound
	}

	return err
}
