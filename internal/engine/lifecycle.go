package engine

import (
	"fmt"
	"math"
	"time"

	"papertraderv1/internal/indicator"
	"papertraderv1/internal/model"
	"papertraderv1/internal/signal"
)

// adjustPersistPct: stop moves smaller than this fraction of the old stop
// update the position row but do not add an audit trade.
const adjustPersistPct = 0.001

// exit reasons recorded on the position and the close trade.
const (
	reasonLiquidation = "liquidated at -90% margin"
	reasonStopLoss    = "stop loss hit"
	reasonTakeProfit  = "take profit hit"
	reasonSmartRSI    = "smart exit: RSI extreme against position"
	reasonSmartMACD   = "smart exit: MACD momentum against position"
	reasonReversal    = "signal bias reversed against position"
)

// managePosition runs the fixed-priority transition ladder for one open
// position. Exactly one transition fires per tick; trailing-stop updates do
// not close the position but still end the ladder for this tick.
func (e *Engine) managePosition(tx model.Tx, acct *model.Account, pos *model.Position,
	price float64, set *indicator.Set, analysis *signal.Analysis, rs signal.RuleSet) error {

	pnl := pos.UnrealizedPnL(price)
	pnlPct := pos.UnrealizedPnLPct(price)
	last := len(set.RSI14) - 1

	// 1. Liquidation: the margin is gone, realize exactly -margin.
	if pnlPct <= rs.LiquidationPct {
		return e.closePosition(tx, acct, pos, price, -pos.MarginUsed, model.StatusLiquidated,
			reasonLiquidation, set, analysis, false)
	}

	// 2. Stop loss.
	if stopHit(pos, price) {
		return e.closePosition(tx, acct, pos, price, pnl, model.StatusClosed,
			reasonStopLoss, set, analysis, true)
	}

	// 3. Take profit.
	if targetHit(pos, price) {
		return e.closePosition(tx, acct, pos, price, pnl, model.StatusClosed,
			reasonTakeProfit, set, analysis, true)
	}

	// 4. Trailing stop. Never moves against the position. An unchanged stop
	// is not a transition, so the ladder continues below.
	if pnlPct >= rs.TrailStartPct {
		atr := set.ATR14[last]
		if newStop, moved := trailStop(pos, price, atr, pnlPct, rs); moved {
			return e.adjustStop(tx, acct, pos, price, newStop, set, analysis)
		}
	}

	// 5. Smart early exit: protect a large open profit.
	if pnlPct >= rs.SmartExitPnLPct {
		rsi := set.RSI14[last]
		if !math.IsNaN(rsi) {
			if (pos.Side == model.SideLong && rsi > rs.GuardrailRSIHigh) ||
				(pos.Side == model.SideShort && rsi < rs.GuardrailRSILow) {
				return e.closePosition(tx, acct, pos, price, pnl, model.StatusClosed,
					reasonSmartRSI, set, analysis, true)
			}
		}
		if pnlPct >= rs.MomentumExitPnLPct {
			hist := set.MACD.Histogram[last]
			if (pos.Side == model.SideLong && hist < 0) ||
				(pos.Side == model.SideShort && hist > 0) {
				return e.closePosition(tx, acct, pos, price, pnl, model.StatusClosed,
					reasonSmartMACD, set, analysis, true)
			}
		}
	}

	// 6. Signal-reversal exit.
	if (pos.Side == model.SideLong && analysis.Bias == signal.BiasBearish) ||
		(pos.Side == model.SideShort && analysis.Bias == signal.BiasBullish) {
		return e.closePosition(tx, acct, pos, price, pnl, model.StatusClosed,
			reasonReversal, set, analysis, true)
	}

	return nil
}

// stopHit reports whether price crossed the stop in the adverse direction.
func stopHit(pos *model.Position, price float64) bool {
	if pos.StopLoss == 0 {
		return false
	}
	if pos.Side == model.SideLong {
		return price <= pos.StopLoss
	}
	return price >= pos.StopLoss
}

// targetHit reports whether price crossed the target in the favorable direction.
func targetHit(pos *model.Position, price float64) bool {
	if pos.TakeProfit == 0 {
		return false
	}
	if pos.Side == model.SideLong {
		return price >= pos.TakeProfit
	}
	return price <= pos.TakeProfit
}

// trailStop computes the tightest permissible stop for an in-profit position.
// At TrailStartPct the stop moves to break-even; every TrailStepPct of profit
// beyond that arms the ATR trail at price -/+ ATRTrailMult*ATR. The result
// only ever tightens: max of the candidates for long, min for short.
func trailStop(pos *model.Position, price, atr, pnlPct float64, rs signal.RuleSet) (float64, bool) {
	breakEven := pos.EntryPrice
	atrArmed := !math.IsNaN(atr) && atr > 0 && pnlPct >= rs.TrailStartPct+rs.TrailStepPct

	newStop := pos.StopLoss
	if pos.Side == model.SideLong {
		newStop = math.Max(newStop, breakEven)
		if atrArmed {
			newStop = math.Max(newStop, price-rs.ATRTrailMult*atr)
		}
		if newStop <= pos.StopLoss {
			return pos.StopLoss, false
		}
	} else {
		if pos.StopLoss == 0 {
			newStop = breakEven
		} else {
			newStop = math.Min(newStop, breakEven)
		}
		if atrArmed {
			newStop = math.Min(newStop, price+rs.ATRTrailMult*atr)
		}
		if pos.StopLoss != 0 && newStop >= pos.StopLoss {
			return pos.StopLoss, false
		}
	}
	return newStop, true
}

// adjustStop persists a trailing-stop move. Small moves update the row only;
// moves past adjustPersistPct of the old stop also append an audit trade.
func (e *Engine) adjustStop(tx model.Tx, acct *model.Account, pos *model.Position,
	price, newStop float64, set *indicator.Set, analysis *signal.Analysis) error {

	oldStop := pos.StopLoss
	pos.StopLoss = newStop
	if err := tx.UpdatePosition(pos); err != nil {
		return fmt.Errorf("update trailing stop: %w", err)
	}

	msg := fmt.Sprintf("trailing stop moved %.4f -> %.4f (price %.4f)", oldStop, newStop, price)
	if err := tx.AppendLog(acct.ID, "info", msg); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.StopAdjustments.Inc()
	}
	if oldStop > 0 && math.Abs(newStop-oldStop)/oldStop < adjustPersistPct {
		return nil
	}
	return tx.AppendTrade(&model.Trade{
		AccountID:  acct.ID,
		PositionID: pos.ID,
		Kind:       model.TradeAdjust,
		Side:       pos.Side,
		Price:      price,
		Quantity:   pos.Quantity,
		Reason:     msg,
		Snapshot:   snapshot(price, set, analysis),
		CreatedAt:  e.now(),
	})
}

// closePosition realizes pnl, credits the balance, and writes the position,
// account, trade, and log rows in one transaction. Liquidation returns no
// margin (creditMargin=false); every other exit returns margin+pnl.
func (e *Engine) closePosition(tx model.Tx, acct *model.Account, pos *model.Position,
	price, pnl float64, status model.PositionStatus, reason string,
	set *indicator.Set, analysis *signal.Analysis, creditMargin bool) error {

	pos.Status = status
	pos.ExitPrice = price
	pos.ExitReason = reason
	pos.PnL = pnl
	if pos.MarginUsed > 0 {
		pos.PnLPct = pnl / pos.MarginUsed * 100
	}
	pos.ClosedAt = e.now()

	if creditMargin {
		acct.CurrentBalance += pos.MarginUsed + pnl
	}
	acct.UpdatedAt = e.now()

	if err := tx.UpdatePosition(pos); err != nil {
		return fmt.Errorf("close position %d: %w", pos.ID, err)
	}
	if err := tx.UpdateAccount(acct); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if err := tx.AppendTrade(&model.Trade{
		AccountID:  acct.ID,
		PositionID: pos.ID,
		Kind:       model.TradeClose,
		Side:       pos.Side,
		Price:      price,
		Quantity:   pos.Quantity,
		PnL:        pnl,
		Reason:     reason,
		Snapshot:   snapshot(price, set, analysis),
		CreatedAt:  e.now(),
	}); err != nil {
		return err
	}

	msg := fmt.Sprintf("%s %s closed at %.4f pnl=%.2f (%.1f%%): %s",
		pos.Side, pos.Symbol, price, pnl, pos.PnLPct, reason)
	if err := tx.AppendLog(acct.ID, "info", msg); err != nil {
		return err
	}
	e.notifyClose(acct, pos, reason)
	return nil
}

// snapshot captures the indicator state that justified a decision.
func snapshot(price float64, set *indicator.Set, analysis *signal.Analysis) model.DecisionSnapshot {
	last := len(set.RSI14) - 1
	if last < 0 {
		return model.DecisionSnapshot{Price: price}
	}
	return model.DecisionSnapshot{
		Price:      price,
		RSI:        fval(set.RSI14[last]),
		MACDLine:   fval(set.MACD.Line[last]),
		MACDSignal: fval(set.MACD.Signal[last]),
		MACDHist:   fval(set.MACD.Histogram[last]),
		EMA50:      fval(set.EMA50[last]),
		EMA200:     fval(set.EMA200[last]),
		ATR:        fval(set.ATR14[last]),
		Bias:       string(analysis.Bias),
		Confidence: analysis.Confidence,
		Bullish:    analysis.BullishCount,
		Bearish:    analysis.BearishCount,
		Voters:     analysis.TotalCount,
	}
}

// fval boxes an indicator value, dropping the NaN warm-up sentinel so the
// snapshot always survives JSON encoding.
func fval(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// now is indirect so tests can pin time.
func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now().UTC()
}
