package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	errs "subscraper/pkg/errors"
	"subscraper/pkg/logger"
	"subscraper/pkg/retry"
)

// Notifier posts run summaries to a Discord webhook. A Notifier with
// no webhook URL is valid and does nothing.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     logger.Logger
}

func NewNotifier(webhookURL string, log logger.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     log,
	}
}

// Notify sends a message. Delivery is best effort; failures are
// logged, never fatal to the run.
func (n *Notifier) Notify(ctx context.Context, message string) {
	if n.webhookURL == "" {
		return
	}

	err := retry.Do(func() error {
		return n.post(ctx, message)
	}, &retry.Config{
		MaxAttempts: 3,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      n.logger,
	})
	if err != nil {
		n.logger.WarnWithFields("Webhook notification failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (n *Notifier) post(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, "webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errs.New(errs.ErrorTypeRateLimit, "webhook rate limited")
	}
	if resp.StatusCode >= 400 {
		return errs.New(errs.ErrorTypeServerError, fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}
	return nil
}
