package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetsuite/vetflow/pkg/queue"
)

func deliveryJob(url string) *queue.Job {
	return &queue.Job{
		ID:          "job-1",
		Queue:       queue.QueueWebhooks,
		Type:        queue.JobTypeDeliverWebhook,
		Attempts:    1,
		MaxAttempts: 5,
		Payload: map[string]any{
			"url":        url,
			"secret":     "test-secret",
			"event":      "patient.created",
			"data":       map[string]any{"patientId": "p-1"},
			"webhook_id": "wh-1",
		},
	}
}

func TestDelivererSignsAndPosts(t *testing.T) {
	var (
		gotBody      []byte
		gotSignature string
		gotEvent     string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotEvent = r.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	deliverer := NewDeliverer(slog.New(slog.DiscardHandler))
	handler := deliverer.Handler()

	require.NoError(t, handler(context.Background(), deliveryJob(server.URL)))

	assert.Equal(t, "patient.created", gotEvent)
	assert.Equal(t, Sign(gotBody, "test-secret"), gotSignature,
		"signature must verify against the body as sent")

	var body map[string]any

	require.NoError(t, json.Unmarshal(gotBody, &body))
	assert.Equal(t, "patient.created", body["event"])
	assert.Equal(t, "wh-1", body["webhookId"])
	assert.NotEmpty(t, body["timestamp"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "p-1", data["patientId"])
}

func TestDelivererNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	deliverer := NewDeliverer(slog.New(slog.DiscardHandler))
	handler := deliverer.Handler()

	err := handler(context.Background(), deliveryJob(server.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDelivererBreakerOpensPerEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	deliverer := NewDeliverer(slog.New(slog.DiscardHandler))
	handler := deliverer.Handler()
	ctx := context.Background()

	// Default breaker config trips after 5 consecutive failures.
	for i := 0; i < 5; i++ {
		require.Error(t, handler(ctx, deliveryJob(server.URL)))
	}

	stats := deliverer.BreakerStats()
	require.Len(t, stats, 1)
	assert.Equal(t, "OPEN", string(stats[0].State))

	err := handler(ctx, deliveryJob(server.URL))
	require.Error(t, err, "open breaker rejects without calling the endpoint")
}

func TestDelivererMissingURL(t *testing.T) {
	deliverer := NewDeliverer(slog.New(slog.DiscardHandler))
	handler := deliverer.Handler()

	err := handler(context.Background(), &queue.Job{ID: "job-2", Payload: map[string]any{}})
	require.Error(t, err)
}

func TestSignIsDeterministic(t *testing.T) {
	body := []byte(`{"event":"invoice.paid"}`)

	assert.Equal(t, Sign(body, "secret"), Sign(body, "secret"))
	assert.NotEqual(t, Sign(body, "secret"), Sign(body, "other"))
	assert.Len(t, Sign(body, "secret"), 64, "hex-encoded SHA-256 HMAC")
}
