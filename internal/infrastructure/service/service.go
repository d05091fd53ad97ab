// Package service contains infrastructure adapters for the domain ports:
// identifier generation and out-of-band notification delivery.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edu-hub/course-platform-core/pkg/circuitbreaker"
	"github.com/edu-hub/course-platform-core/pkg/logger"
	"github.com/edu-hub/course-platform-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ID GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// UUIDGenerator implements shared.IDGenerator using random UUIDs.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a new random UUID string.
func (g *UUIDGenerator) NewID() string {
	return uuid.New().String()
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK NOTIFIER
// Delivers notifications by POSTing to an external webhook. The actual
// channel (email, push, chat bot) lives behind that endpoint. Calls go
// through a retrier and a circuit breaker; when the breaker is open the
// notification is dropped with a warning.
// ══════════════════════════════════════════════════════════════════════════════

// WebhookNotifier implements shared.NotificationSender over HTTP.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
	retrier  *retry.Retrier
	breaker  *circuitbreaker.CircuitBreaker
	log      *logger.Logger
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(endpoint string, log *logger.Logger) *WebhookNotifier {
	componentLog := log.With(logger.Component("webhook_notifier"))

	breaker := circuitbreaker.NotificationBreaker(func(name string, from, to circuitbreaker.State) {
		componentLog.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})

	return &WebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		retrier:  retry.NotificationRetrier(),
		breaker:  breaker,
		log:      componentLog,
	}
}

// notificationPayload is the webhook request body.
type notificationPayload struct {
	RecipientID string `json:"recipient_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// Send delivers a notification to the webhook.
func (n *WebhookNotifier) Send(ctx context.Context, recipientID, subject, body string) error {
	data, err := json.Marshal(notificationPayload{
		RecipientID: recipientID,
		Subject:     subject,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	return n.breaker.Execute(ctx, func(ctx context.Context) error {
		return n.retrier.Do(ctx, func(ctx context.Context) error {
			return n.post(ctx, data)
		})
	})
}

// post performs a single webhook delivery attempt.
func (n *WebhookNotifier) post(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(data))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("deliver notification: %w", err))
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return retry.Permanent(fmt.Errorf("webhook rejected notification: status %d", resp.StatusCode))
	default:
		return retry.Retryable(fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// LogNotifier implements shared.NotificationSender by logging only.
// Used in development and tests when no webhook is configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{
		log: log.With(logger.Component("log_notifier")),
	}
}

// Send logs the notification instead of delivering it.
func (n *LogNotifier) Send(_ context.Context, recipientID, subject, _ string) error {
	n.log.Info("notification",
		logger.String("recipient_id", recipientID),
		logger.String("subject", subject),
	)
	return nil
}
