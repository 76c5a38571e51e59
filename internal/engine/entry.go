package engine

import (
	"fmt"
	"strings"

	"papertraderv1/internal/indicator"
	"papertraderv1/internal/model"
	"papertraderv1/internal/risk"
	"papertraderv1/internal/signal"
	"papertraderv1/internal/strategy"
)

// minMarginNotional is the smallest margin worth simulating.
const minMarginNotional = 10.0

// tryEnter evaluates a fresh entry for an account with no open position.
// Every skip is logged with its causal reason; only a fully validated entry
// mutates state.
func (e *Engine) tryEnter(tx model.Tx, acct *model.Account, price float64,
	series model.Series, set *indicator.Set, analysis *signal.Analysis, rs signal.RuleSet) error {

	d := strategy.EvaluateEntry(series, set, analysis, rs)
	if !d.Allowed {
		return e.skipEntry(tx, acct, fmt.Sprintf("no entry: %s", strings.Join(d.Blockers, "; ")))
	}

	margin := acct.CurrentBalance * acct.PositionSizePct / 100
	if margin <= minMarginNotional {
		return e.skipEntry(tx, acct,
			fmt.Sprintf("no entry: margin %.2f below minimum notional %.0f", margin, minMarginNotional))
	}
	if acct.CurrentBalance <= margin {
		return e.skipEntry(tx, acct,
			fmt.Sprintf("no entry: balance %.2f cannot cover margin %.2f", acct.CurrentBalance, margin))
	}

	quantity := margin * acct.Leverage / price

	// Configured percentages are margin-relative; divide by leverage to get
	// the price distance that produces that margin move.
	stopDist := acct.StopLossPct / 100 / acct.Leverage
	targetDist := acct.TakeProfitPct / 100 / acct.Leverage
	var stop, target float64
	if d.Side == model.SideLong {
		stop = price * (1 - stopDist)
		target = price * (1 + targetDist)
	} else {
		stop = price * (1 + stopDist)
		target = price * (1 - targetDist)
	}

	check := risk.Validate(d.Side, price, stop, target, rs.MinRiskReward)
	if !check.Valid {
		return e.skipEntry(tx, acct,
			fmt.Sprintf("no entry: risk-reward rejected (%s, ratio %.2f < %.2f)",
				check.Reason, check.Ratio, rs.MinRiskReward))
	}

	reason := fmt.Sprintf("%s entry: %d/%d keys (%s), confidence %d%%",
		d.Side, d.Keys, rs.RequiredKeys, strings.Join(d.Reasons, ", "), analysis.Confidence)

	pos := &model.Position{
		AccountID:   acct.ID,
		Symbol:      acct.Symbol,
		Side:        d.Side,
		EntryPrice:  price,
		Quantity:    quantity,
		Leverage:    acct.Leverage,
		MarginUsed:  margin,
		StopLoss:    stop,
		TakeProfit:  target,
		Status:      model.StatusOpen,
		EntryReason: reason,
		OpenedAt:    e.now(),
	}

	acct.CurrentBalance -= margin
	acct.UpdatedAt = e.now()

	if err := tx.InsertPosition(pos); err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	if err := tx.UpdateAccount(acct); err != nil {
		return fmt.Errorf("debit margin: %w", err)
	}
	if err := tx.AppendTrade(&model.Trade{
		AccountID:  acct.ID,
		PositionID: pos.ID,
		Kind:       model.TradeOpen,
		Side:       d.Side,
		Price:      price,
		Quantity:   quantity,
		Reason:     reason,
		Snapshot:   snapshot(price, set, analysis),
		CreatedAt:  e.now(),
	}); err != nil {
		return err
	}
	if err := tx.AppendLog(acct.ID, "info",
		fmt.Sprintf("opened %s %s qty=%.6f entry=%.4f stop=%.4f target=%.4f margin=%.2f rr=%.2f",
			d.Side, acct.Symbol, quantity, price, stop, target, margin, check.Ratio)); err != nil {
		return err
	}
	e.notifyOpen(acct, pos)
	return nil
}

// skipEntry records a normal no-trade outcome. Not an error: the tick
// completes, the reason is the audit trail.
func (e *Engine) skipEntry(tx model.Tx, acct *model.Account, msg string) error {
	if e.metrics != nil {
		e.metrics.EntriesBlocked.Inc()
	}
	return tx.AppendLog(acct.ID, "info", msg)
}
