package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Alert formatting
// ────────────────────────────────────────────────────────────

func TestTradeAlert_HeadlineAndDetail(t *testing.T) {
	open := TradeAlert{
		Event: EventOpened, Severity: SeverityInfo,
		Symbol: "BTCUSDT", Side: "long",
		Price: 50000, Quantity: 0.1,
		Reason: "EMA bullish cross, RSI oversold",
	}
	if got := open.Headline(); got != "opened long BTCUSDT @ 50000.0000" {
		t.Errorf("headline: %q", got)
	}
	if got := open.Detail(); got != "qty 0.100000: EMA bullish cross, RSI oversold" {
		t.Errorf("detail: %q", got)
	}

	closed := TradeAlert{
		Event: EventClosed, Severity: SeverityWarning,
		Symbol: "BTCUSDT", Side: "short",
		Price: 49000, Quantity: 0.1,
		PnL: -120.5, PnLPct: -12.05,
		Reason: "stop loss hit",
	}
	if got := closed.Detail(); got != "pnl -120.50 (-12.1%): stop loss hit" {
		t.Errorf("detail: %q", got)
	}
}

func TestTelegramText_EventEmoji(t *testing.T) {
	cases := []struct {
		alert TradeAlert
		emoji string
	}{
		{TradeAlert{Event: EventOpened, Symbol: "BTCUSDT", Side: "long", Price: 100}, "📈"},
		{TradeAlert{Event: EventClosed, Symbol: "BTCUSDT", Side: "long", Price: 110, PnL: 50}, "✅"},
		{TradeAlert{Event: EventClosed, Symbol: "BTCUSDT", Side: "long", Price: 95, PnL: -25}, "📉"},
		{TradeAlert{Event: EventLiquidated, Symbol: "BTCUSDT", Side: "long", Price: 80, PnL: -900}, "🚨"},
	}
	for _, c := range cases {
		text := telegramText(c.alert)
		if !strings.HasPrefix(text, c.emoji) {
			t.Errorf("%s alert text %q does not start with %s", c.alert.Event, text, c.emoji)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := escapeMarkdown("pnl -120.50 (stop)")
	want := `pnl \-120\.50 \(stop\)`
	if got != want {
		t.Errorf("escape: got %q, want %q", got, want)
	}
}

// ────────────────────────────────────────────────────────────
// Webhook delivery
// ────────────────────────────────────────────────────────────

func TestWebhookNotifier_PostsStructuredPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), TradeAlert{
		Event: EventLiquidated, Severity: SeverityCritical,
		Symbol: "ETHUSDT", Side: "short",
		Price: 3000, Quantity: 2,
		PnL: -950, PnLPct: -95,
		Reason: "margin exhausted",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Event != "liquidated" || got.Severity != "CRITICAL" {
		t.Errorf("event/severity: %s/%s", got.Event, got.Severity)
	}
	if got.Symbol != "ETHUSDT" || got.Side != "short" || got.PnL != -950 {
		t.Errorf("payload: %+v", got)
	}
	if got.TS == "" {
		t.Error("payload has no timestamp")
	}
}

func TestWebhookNotifier_ErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), TradeAlert{Event: EventOpened, Symbol: "BTCUSDT"})
	if err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestLogNotifier_NeverFails(t *testing.T) {
	n := NewLogNotifier()
	err := n.Send(context.Background(), TradeAlert{
		Event: EventClosed, Severity: SeverityInfo,
		Symbol: "BTCUSDT", Side: "long", Price: 105, PnL: 25, PnLPct: 2.5,
		Reason: "take profit hit",
	})
	if err != nil {
		t.Fatalf("log notifier: %v", err)
	}
}
