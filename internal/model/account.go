package model

import "time"

// Account holds the persistent per-account bot configuration and the
// running simulated balance. One account trades one symbol on one interval
// with at most one open position at a time.
type Account struct {
	ID              int64     `json:"id"`
	Symbol          string    `json:"symbol"`   // e.g. "BTCUSDT"
	Interval        string    `json:"interval"` // e.g. "15m"
	Leverage        float64   `json:"leverage"`
	PositionSizePct float64   `json:"position_size_pct"` // % of balance committed as margin
	StopLossPct     float64   `json:"stop_loss_pct"`     // % move against entry (before leverage)
	TakeProfitPct   float64   `json:"take_profit_pct"`
	RuleSet         string    `json:"rule_set"` // named strategy rule-set, e.g. "v1"
	IsActive        bool      `json:"is_active"`
	CurrentBalance  float64   `json:"current_balance"`
	InitialBalance  float64   `json:"initial_balance"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ConfigPatch carries a partial account-config update. Nil fields are left
// unchanged. Validation ranges are enforced by Validate before persisting.
type ConfigPatch struct {
	Leverage        *float64 `json:"leverage,omitempty"`
	PositionSizePct *float64 `json:"position_size_pct,omitempty"`
	StopLossPct     *float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct   *float64 `json:"take_profit_pct,omitempty"`
	Interval        *string  `json:"interval,omitempty"`
	RuleSet         *string  `json:"rule_set,omitempty"`
}

// validIntervals are the kline intervals the market data provider accepts.
var validIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "12h": true, "1d": true,
}

// Validate checks every set field against its allowed range.
// Returns a human-readable reason on the first violation.
func (p *ConfigPatch) Validate() (bool, string) {
	if p.Leverage != nil && (*p.Leverage < 1 || *p.Leverage > 125) {
		return false, "leverage must be between 1 and 125"
	}
	if p.PositionSizePct != nil && (*p.PositionSizePct < 1 || *p.PositionSizePct > 100) {
		return false, "position size must be between 1% and 100%"
	}
	if p.StopLossPct != nil && (*p.StopLossPct < 0.5 || *p.StopLossPct > 100) {
		return false, "stop loss must be between 0.5% and 100%"
	}
	if p.TakeProfitPct != nil && (*p.TakeProfitPct < 0.5 || *p.TakeProfitPct > 100) {
		return false, "take profit must be between 0.5% and 100%"
	}
	if p.Interval != nil && !validIntervals[*p.Interval] {
		return false, "unsupported interval: " + *p.Interval
	}
	return true, ""
}

// Apply copies the set fields of the patch onto the account.
func (p *ConfigPatch) Apply(a *Account) {
	if p.Leverage != nil {
		a.Leverage = *p.Leverage
	}
	if p.PositionSizePct != nil {
		a.PositionSizePct = *p.PositionSizePct
	}
	if p.StopLossPct != nil {
		a.StopLossPct = *p.StopLossPct
	}
	if p.TakeProfitPct != nil {
		a.TakeProfitPct = *p.TakeProfitPct
	}
	if p.Interval != nil {
		a.Interval = *p.Interval
	}
	if p.RuleSet != nil {
		a.RuleSet = *p.RuleSet
	}
}
