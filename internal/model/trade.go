package model

import "time"

// TradeKind classifies audit records in the trade journal.
type TradeKind string

const (
	TradeOpen   TradeKind = "open"
	TradeClose  TradeKind = "close"
	TradeAdjust TradeKind = "adjust" // trailing-stop move
)

// Trade is an immutable audit record appended whenever a position opens,
// closes, or has its stop adjusted meaningfully. It carries the indicator
// snapshot that justified the decision so "why did the bot trade" can be
// answered after the fact.
type Trade struct {
	ID         int64            `json:"id"`
	AccountID  int64            `json:"account_id"`
	PositionID int64            `json:"position_id"`
	Kind       TradeKind        `json:"kind"`
	Side       Side             `json:"side"`
	Price      float64          `json:"price"`
	Quantity   float64          `json:"quantity"`
	PnL        float64          `json:"pnl"`
	Reason     string           `json:"reason"`
	Snapshot   DecisionSnapshot `json:"snapshot"`
	CreatedAt  time.Time        `json:"created_at"`
}

// DecisionSnapshot captures the exact indicator and signal values that were
// used for a decision. An explicit type rather than an open-ended map so the
// audit trail has a stable schema. Indicator fields are pointers: an
// indicator still in warm-up is omitted from the persisted JSON, since NaN
// has no JSON encoding and a close must commit even on a short series.
type DecisionSnapshot struct {
	Price      float64  `json:"price"`
	RSI        *float64 `json:"rsi,omitempty"`
	MACDLine   *float64 `json:"macd_line,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
	MACDHist   *float64 `json:"macd_hist,omitempty"`
	EMA50      *float64 `json:"ema50,omitempty"`
	EMA200     *float64 `json:"ema200,omitempty"`
	ATR        *float64 `json:"atr,omitempty"`
	Bias       string   `json:"bias"`
	Confidence int      `json:"confidence"`
	Bullish    int      `json:"bullish_count"`
	Bearish    int      `json:"bearish_count"`
	Voters     int      `json:"total_count"`
}

// LogEntry is one line of the append-only decision log. Every skipped entry
// and every executed transition produces one, with the causal reason.
type LogEntry struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Level     string    `json:"level"` // info, warn, error
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
