package model

import "time"

// Side of a leveraged position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// PositionStatus is the lifecycle state of a position.
// Open positions transition exactly once to closed or liquidated;
// terminal states are never mutated again.
type PositionStatus string

const (
	StatusOpen       PositionStatus = "open"
	StatusClosed     PositionStatus = "closed"
	StatusLiquidated PositionStatus = "liquidated"
)

// Position represents one simulated leveraged position.
// While open, only StopLoss may change (trailing). All exit fields are set
// exactly once when the position closes.
type Position struct {
	ID          int64          `json:"id"`
	AccountID   int64          `json:"account_id"`
	Symbol      string         `json:"symbol"`
	Side        Side           `json:"side"`
	EntryPrice  float64        `json:"entry_price"`
	Quantity    float64        `json:"quantity"`
	Leverage    float64        `json:"leverage"`
	MarginUsed  float64        `json:"margin_used"`
	StopLoss    float64        `json:"stop_loss"`
	TakeProfit  float64        `json:"take_profit"`
	Status      PositionStatus `json:"status"`
	EntryReason string         `json:"entry_reason"`
	ExitPrice   float64        `json:"exit_price,omitempty"`
	ExitReason  string         `json:"exit_reason,omitempty"`
	PnL         float64        `json:"pnl,omitempty"`
	PnLPct      float64        `json:"pnl_pct,omitempty"`
	OpenedAt    time.Time      `json:"opened_at"`
	ClosedAt    time.Time      `json:"closed_at,omitempty"`
}

// UnrealizedPnL computes profit/loss at the given price.
// Long: (price - entry) * qty. Short: (entry - price) * qty.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Side == SideShort {
		return (p.EntryPrice - price) * p.Quantity
	}
	return (price - p.EntryPrice) * p.Quantity
}

// UnrealizedPnLPct computes profit/loss as a percentage of margin used.
func (p *Position) UnrealizedPnLPct(price float64) float64 {
	if p.MarginUsed == 0 {
		return 0
	}
	return p.UnrealizedPnL(price) / p.MarginUsed * 100
}
