package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vetsuite/vetflow/pkg/breaker"
	"github.com/vetsuite/vetflow/pkg/queue"
)

const (
	deliveryTimeout      = 10 * time.Second
	signatureHeader      = "X-Webhook-Signature"
	eventHeader          = "X-Webhook-Event"
	maxResponseBodyDrain = 4 * 1024
)

// Deliverer posts signed event payloads to subscriber endpoints. Each
// endpoint gets its own circuit breaker so one dead receiver cannot burn
// delivery attempts for the rest.
type Deliverer struct {
	client   *http.Client
	breakers *breaker.Registry
	logger   *slog.Logger
}

func NewDeliverer(logger *slog.Logger) *Deliverer {
	return &Deliverer{
		client:   &http.Client{Timeout: deliveryTimeout},
		breakers: breaker.NewRegistry(breaker.DefaultConfig(), logger),
		logger:   logger.With("module", "webhook_deliverer"),
	}
}

// BreakerStats exposes per-endpoint breaker state for the admin surface.
func (d *Deliverer) BreakerStats() []breaker.Stats {
	return d.breakers.Stats()
}

// Handler returns the webhooks-queue job handler. A returned error hands the
// job back to the queue's retry policy.
func (d *Deliverer) Handler() queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		url, _ := job.Payload["url"].(string)
		if url == "" {
			return fmt.Errorf("webhook job %s has no url", job.ID)
		}

		secret, _ := job.Payload["secret"].(string)
		event, _ := job.Payload["event"].(string)
		data, _ := job.Payload["data"].(map[string]any)
		webhookID, _ := job.Payload["webhook_id"].(string)

		body, err := json.Marshal(map[string]any{
			"event":     event,
			"data":      data,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"webhookId": webhookID,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal webhook body: %w", err)
		}

		cb := d.breakers.Get(url)

		err = cb.Execute(ctx, func(ctx context.Context) error {
			return d.post(ctx, url, event, secret, body)
		})
		if err != nil {
			d.logger.WarnContext(ctx, "Webhook delivery failed",
				"url", url, "event", event, "attempt", job.Attempts, "error", err)

			return err
		}

		d.logger.InfoContext(ctx, "Webhook delivered", "url", url, "event", event)

		return nil
	}
}

func (d *Deliverer) post(ctx context.Context, url, event, secret string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventHeader, event)
	req.Header.Set(signatureHeader, Sign(body, secret))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.CopyN(io.Discard, resp.Body, maxResponseBodyDrain)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// Sign returns the hex HMAC-SHA256 of the body under the subscription
// secret. Receivers recompute it to authenticate deliveries.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}
