package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
)

// WebhookService manages webhook subscriptions.
type WebhookService struct {
	repo   persistence.WebhookRepository
	logger *slog.Logger
}

func NewWebhookService(repo persistence.WebhookRepository, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		repo:   repo,
		logger: logger.With("module", "webhook_service"),
	}
}

func (s *WebhookService) Create(ctx context.Context, subscription *models.WebhookSubscription) (*models.WebhookSubscription, error) {
	if subscription.ID == "" {
		subscription.ID = uuid.New().String()
	}

	if subscription.Secret == "" {
		secret, err := generateSecret()
		if err != nil {
			return nil, err
		}

		subscription.Secret = secret
	}

	now := time.Now().UTC()
	subscription.CreatedAt = now
	subscription.UpdatedAt = now

	err := s.validate(subscription)
	if err != nil {
		return nil, err
	}

	err = s.repo.Save(ctx, subscription)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Webhook subscription created",
		"webhook_id", subscription.ID, "url", subscription.URL)

	return subscription, nil
}

func (s *WebhookService) Update(ctx context.Context, subscription *models.WebhookSubscription) (*models.WebhookSubscription, error) {
	existing, err := s.repo.GetByID(ctx, subscription.ID)
	if err != nil {
		return nil, err
	}

	subscription.CreatedAt = existing.CreatedAt
	subscription.UpdatedAt = time.Now().UTC()

	if subscription.Secret == "" {
		subscription.Secret = existing.Secret
	}

	err = s.validate(subscription)
	if err != nil {
		return nil, err
	}

	err = s.repo.Save(ctx, subscription)
	if err != nil {
		return nil, err
	}

	return subscription, nil
}

func (s *WebhookService) Get(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *WebhookService) List(ctx context.Context) ([]*models.WebhookSubscription, error) {
	return s.repo.List(ctx)
}

func (s *WebhookService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *WebhookService) validate(subscription *models.WebhookSubscription) error {
	if subscription.Name == "" {
		return fmt.Errorf("%w: webhook name is required", ErrValidation)
	}

	parsed, err := url.Parse(subscription.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: webhook url %q is not a valid absolute URL", ErrValidation, subscription.URL)
	}

	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)

	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("failed to generate webhook secret: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
