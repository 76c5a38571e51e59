package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// WebhookNotifier POSTs trade alerts as structured JSON to a generic HTTP
// endpoint, so downstream consumers get fields, not prose.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
// url: The HTTP endpoint to POST alerts to.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// webhookPayload is the wire shape of one alert.
type webhookPayload struct {
	Event    string  `json:"event"`
	Severity string  `json:"severity"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	PnL      float64 `json:"pnl"`
	PnLPct   float64 `json:"pnl_pct"`
	Reason   string  `json:"reason"`
	TS       string  `json:"ts"`
}

func (w *WebhookNotifier) Send(ctx context.Context, alert TradeAlert) error {
	body, err := json.Marshal(webhookPayload{
		Event:    string(alert.Event),
		Severity: string(alert.Severity),
		Symbol:   alert.Symbol,
		Side:     alert.Side,
		Price:    alert.Price,
		Quantity: alert.Quantity,
		PnL:      alert.PnL,
		PnLPct:   alert.PnLPct,
		Reason:   alert.Reason,
		TS:       time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[webhook] sent %s alert for %s to %s", alert.Event, alert.Symbol, w.url)
	return nil
}
