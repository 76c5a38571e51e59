// Package engine runs the per-account trading tick: fetch candles, compute
// indicators and signals, walk the lifecycle ladder for open positions, and
// evaluate a fresh entry when flat. A tick is stateless; everything it needs
// is read at the start and every mutation commits in one transaction, so a
// failed tick leaves the account exactly as it was.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"papertraderv1/internal/indicator"
	"papertraderv1/internal/metrics"
	"papertraderv1/internal/model"
	"papertraderv1/internal/notification"
	"papertraderv1/internal/signal"
	"papertraderv1/internal/strategy"
)

// ErrTickInProgress is returned when another tick holds the account lock.
var ErrTickInProgress = errors.New("tick already in progress for account")

// ErrInactive is returned for a scheduled tick against a deactivated account.
var ErrInactive = errors.New("account is inactive")

// Config tunes the engine's fetch and locking behavior.
type Config struct {
	CandleLimit  int           // candles fetched per tick; EMA200 needs at least 201
	FetchTimeout time.Duration // per market-data call
	LockTTL      time.Duration // per-account tick lock lifetime
}

// DefaultConfig covers the standard 200-period warm-up with headroom.
func DefaultConfig() Config {
	return Config{
		CandleLimit:  500,
		FetchTimeout: 10 * time.Second,
		LockTTL:      30 * time.Second,
	}
}

// Engine orchestrates ticks over the collaborator ports.
type Engine struct {
	market   model.MarketData
	store    model.Store
	locker   model.Locker
	notifier notification.Notifier
	metrics  *metrics.Metrics
	cfg      Config

	clock func() time.Time // nil means time.Now
}

// New wires an engine. notifier and m may be nil.
func New(market model.MarketData, store model.Store, locker model.Locker,
	notifier notification.Notifier, m *metrics.Metrics, cfg Config) *Engine {
	if cfg.CandleLimit <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		market:   market,
		store:    store,
		locker:   locker,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
	}
}

// TickResult is the per-tick snapshot handed to broadcast consumers.
type TickResult struct {
	AccountID int64            `json:"account_id"`
	Symbol    string           `json:"symbol"`
	Price     float64          `json:"price"`
	Balance   float64          `json:"balance"`
	Analysis  *signal.Analysis `json:"analysis"`
	Context   strategy.Context `json:"context"`
	Open      []model.Position `json:"open_positions"`
	At        time.Time        `json:"at"`
}

// Tick runs one full cycle for the account. force runs the tick even when
// the account is deactivated (the manual "run" action). The per-account lock
// serializes concurrent ticks; a held lock aborts with ErrTickInProgress
// before anything is read.
func (e *Engine) Tick(ctx context.Context, accountID int64, force bool) (*TickResult, error) {
	release, ok, err := e.locker.Acquire(ctx, accountID, e.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire tick lock: %w", err)
	}
	if !ok {
		if e.metrics != nil {
			e.metrics.TicksSkipped.Inc()
		}
		return nil, ErrTickInProgress
	}
	defer release()

	start := e.now()
	res, err := e.tickLocked(ctx, accountID, force)
	if e.metrics != nil {
		e.metrics.TicksTotal.Inc()
		e.metrics.TickDur.Observe(time.Since(start).Seconds())
		if err != nil && !errors.Is(err, ErrInactive) {
			e.metrics.TickErrors.Inc()
		}
	}
	return res, err
}

func (e *Engine) tickLocked(ctx context.Context, accountID int64, force bool) (*TickResult, error) {
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", accountID, err)
	}
	if !acct.IsActive && !force {
		return nil, ErrInactive
	}

	rs, err := signal.Lookup(acct.RuleSet)
	if err != nil {
		log.Printf("[engine] account %d: %v, falling back to %q", accountID, err, signal.V1.Name)
		rs = signal.V1
	}

	series, price, err := e.fetch(ctx, acct)
	if err != nil {
		// Abort before any mutation: upstream failures are retryable.
		return nil, err
	}

	set := indicator.Compute(series)
	analysis := signal.Evaluate(set, series.Closes(), rs)

	open, err := e.store.OpenPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load open positions: %w", err)
	}

	txStart := e.now()
	err = e.store.WithTx(ctx, func(tx model.Tx) error {
		for i := range open {
			if err := e.managePosition(tx, acct, &open[i], price, set, analysis, rs); err != nil {
				return err
			}
		}
		// Entry only when the tick began flat: a close this tick never
		// flips straight into a new position on the same candle.
		if len(open) == 0 {
			return e.tryEnter(tx, acct, price, series, set, analysis, rs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tick transaction: %w", err)
	}
	if e.metrics != nil {
		e.metrics.SQLiteCommitDur.Observe(time.Since(txStart).Seconds())
		e.metrics.AccountBalance.WithLabelValues(fmt.Sprint(accountID)).Set(acct.CurrentBalance)
	}

	stillOpen, err := e.store.OpenPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("reload open positions: %w", err)
	}
	if e.metrics != nil {
		e.metrics.OpenPositions.WithLabelValues(fmt.Sprint(accountID)).Set(float64(len(stillOpen)))
	}

	return &TickResult{
		AccountID: accountID,
		Symbol:    acct.Symbol,
		Price:     price,
		Balance:   acct.CurrentBalance,
		Analysis:  analysis,
		Context:   strategy.BuildContext(series, set, rs),
		Open:      stillOpen,
		At:        e.now(),
	}, nil
}

// fetch pulls candles and the latest price with bounded timeouts.
func (e *Engine) fetch(ctx context.Context, acct *model.Account) (model.Series, float64, error) {
	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	start := e.now()
	series, err := e.market.FetchCandles(fctx, acct.Symbol, acct.Interval, e.cfg.CandleLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch candles %s/%s: %w", acct.Symbol, acct.Interval, err)
	}
	if len(series) == 0 {
		return nil, 0, fmt.Errorf("fetch candles %s/%s: empty series", acct.Symbol, acct.Interval)
	}
	price, err := e.market.FetchPrice(fctx, acct.Symbol)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch price %s: %w", acct.Symbol, err)
	}
	if e.metrics != nil {
		e.metrics.FetchDur.Observe(time.Since(start).Seconds())
	}
	return series, price, nil
}

// Reset force-closes every open position at the current market price,
// restores the initial balance, and deactivates the account. Runs under the
// same per-account lock as a tick.
func (e *Engine) Reset(ctx context.Context, accountID int64) error {
	release, ok, err := e.locker.Acquire(ctx, accountID, e.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire tick lock: %w", err)
	}
	if !ok {
		return ErrTickInProgress
	}
	defer release()

	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account %d: %w", accountID, err)
	}
	open, err := e.store.OpenPositions(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}

	var price float64
	if len(open) > 0 {
		fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
		price, err = e.market.FetchPrice(fctx, acct.Symbol)
		cancel()
		if err != nil {
			return fmt.Errorf("fetch price for reset: %w", err)
		}
	}

	return e.store.WithTx(ctx, func(tx model.Tx) error {
		for i := range open {
			pos := &open[i]
			pnl := pos.UnrealizedPnL(price)
			pos.Status = model.StatusClosed
			pos.ExitPrice = price
			pos.ExitReason = "account reset"
			pos.PnL = pnl
			if pos.MarginUsed > 0 {
				pos.PnLPct = pnl / pos.MarginUsed * 100
			}
			pos.ClosedAt = e.now()
			if err := tx.UpdatePosition(pos); err != nil {
				return fmt.Errorf("close position %d: %w", pos.ID, err)
			}
			if err := tx.AppendTrade(&model.Trade{
				AccountID:  accountID,
				PositionID: pos.ID,
				Kind:       model.TradeClose,
				Side:       pos.Side,
				Price:      price,
				Quantity:   pos.Quantity,
				PnL:        pnl,
				Reason:     "account reset",
				CreatedAt:  e.now(),
			}); err != nil {
				return err
			}
		}
		acct.CurrentBalance = acct.InitialBalance
		acct.IsActive = false
		acct.UpdatedAt = e.now()
		if err := tx.UpdateAccount(acct); err != nil {
			return fmt.Errorf("reset account: %w", err)
		}
		return tx.AppendLog(accountID, "warn",
			fmt.Sprintf("account reset: %d position(s) force-closed, balance restored to %.2f",
				len(open), acct.InitialBalance))
	})
}

// notifyOpen reports a new position to metrics and the alert channel.
func (e *Engine) notifyOpen(acct *model.Account, pos *model.Position) {
	if e.metrics != nil {
		e.metrics.PositionsOpened.Inc()
	}
	log.Printf("[engine] account %d opened %s %s qty=%.6f @ %.4f",
		acct.ID, pos.Side, pos.Symbol, pos.Quantity, pos.EntryPrice)
	if e.notifier == nil {
		return
	}
	e.sendAlert(notification.TradeAlert{
		Event:    notification.EventOpened,
		Severity: notification.SeverityInfo,
		Symbol:   pos.Symbol,
		Side:     string(pos.Side),
		Price:    pos.EntryPrice,
		Quantity: pos.Quantity,
		Reason:   pos.EntryReason,
	})
}

// notifyClose reports a closed or liquidated position.
func (e *Engine) notifyClose(acct *model.Account, pos *model.Position, reason string) {
	if e.metrics != nil {
		if pos.Status == model.StatusLiquidated {
			e.metrics.PositionsLiquidated.Inc()
		}
		e.metrics.PositionsClosed.WithLabelValues(reason).Inc()
	}
	log.Printf("[engine] account %d %s %s %s pnl=%.2f: %s",
		acct.ID, pos.Status, pos.Side, pos.Symbol, pos.PnL, reason)
	if e.notifier == nil {
		return
	}
	event := notification.EventClosed
	severity := notification.SeverityInfo
	if pos.Status == model.StatusLiquidated {
		event = notification.EventLiquidated
		severity = notification.SeverityCritical
	} else if pos.PnL < 0 {
		severity = notification.SeverityWarning
	}
	e.sendAlert(notification.TradeAlert{
		Event:    event,
		Severity: severity,
		Symbol:   pos.Symbol,
		Side:     string(pos.Side),
		Price:    pos.ExitPrice,
		Quantity: pos.Quantity,
		PnL:      pos.PnL,
		PnLPct:   pos.PnLPct,
		Reason:   reason,
	})
}

// sendAlert delivers off the tick path; a slow channel never blocks a tick.
func (e *Engine) sendAlert(alert notification.TradeAlert) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.notifier.Send(ctx, alert); err != nil {
			log.Printf("[engine] notify: %v", err)
		}
	}()
}
