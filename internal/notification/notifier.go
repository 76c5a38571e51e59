// Package notification delivers trade lifecycle alerts (position opened,
// closed, liquidated) to external channels: Telegram, generic webhooks, or
// the process log.
package notification

import (
	"context"
	"fmt"
	"log"
)

// Severity grades how urgently an alert should be surfaced.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Event classifies the lifecycle moment an alert reports.
type Event string

const (
	EventOpened     Event = "opened"
	EventClosed     Event = "closed"
	EventLiquidated Event = "liquidated"
)

// TradeAlert is a typed trade lifecycle notification. Backends format it for
// their channel; nothing upstream builds display strings.
type TradeAlert struct {
	Event    Event
	Severity Severity
	Symbol   string
	Side     string // "long" or "short"
	Price    float64
	Quantity float64
	PnL      float64 // realized pnl; zero for opens
	PnLPct   float64 // pnl as % of margin
	Reason   string  // entry keys or exit reason
}

// Headline is the one-line summary every backend leads with.
func (a TradeAlert) Headline() string {
	return fmt.Sprintf("%s %s %s @ %.4f", a.Event, a.Side, a.Symbol, a.Price)
}

// Detail is the supporting line: size on opens, outcome on closes.
func (a TradeAlert) Detail() string {
	if a.Event == EventOpened {
		return fmt.Sprintf("qty %.6f: %s", a.Quantity, a.Reason)
	}
	return fmt.Sprintf("pnl %.2f (%.1f%%): %s", a.PnL, a.PnLPct, a.Reason)
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert TradeAlert) error
}

// LogNotifier writes alerts to the process log (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert TradeAlert) error {
	log.Printf("[notify] [%s] %s, %s", alert.Severity, alert.Headline(), alert.Detail())
	return nil
}
