package model

import (
	"context"
	"time"
)

// ── Collaborator Port Interfaces ──
// These interfaces decouple the engine from concrete collaborators
// (Binance market data, SQLite persistence, Redis locking). Each
// implementation satisfies one or more of these interfaces.

// MarketData supplies candles and the current price for a symbol.
// Implementations must respect ctx deadlines; the engine never tolerates
// an unbounded fetch.
type MarketData interface {
	// FetchCandles returns up to limit most-recent candles, oldest first.
	// Fewer candles than requested is not an error; indicators degrade
	// to their warm-up sentinel instead.
	FetchCandles(ctx context.Context, symbol, interval string, limit int) (Series, error)

	// FetchPrice returns the latest traded price for the symbol.
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// Store is the persistence collaborator. All engine reads and writes for a
// single tick happen through one Tx so a failed tick leaves no partial state.
type Store interface {
	// GetAccount reads one account by ID.
	GetAccount(ctx context.Context, id int64) (*Account, error)

	// ListActiveAccounts returns accounts with is_active = true.
	ListActiveAccounts(ctx context.Context) ([]Account, error)

	// UpdateAccount persists account mutations (flags, balance, config).
	UpdateAccount(ctx context.Context, a *Account) error

	// WithTx runs fn inside a single transaction. fn receives a Tx whose
	// mutations commit atomically; any error rolls everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// OpenPositions returns positions with status = open for the account.
	OpenPositions(ctx context.Context, accountID int64) ([]Position, error)

	// RecentTrades returns the last limit trades for the account, newest first.
	RecentTrades(ctx context.Context, accountID int64, limit int) ([]Trade, error)

	// RecentLogs returns the last limit decision-log lines, newest first.
	RecentLogs(ctx context.Context, accountID int64, limit int) ([]LogEntry, error)
}

// Tx is the transactional surface the lifecycle manager mutates through.
type Tx interface {
	// UpdateAccount persists account mutations inside the transaction.
	UpdateAccount(a *Account) error

	// InsertPosition inserts a new open position and sets its ID.
	InsertPosition(p *Position) error

	// UpdatePosition persists position mutations by ID.
	UpdatePosition(p *Position) error

	// AppendTrade appends an immutable audit record.
	AppendTrade(t *Trade) error

	// AppendLog appends one decision-log line.
	AppendLog(accountID int64, level, message string) error
}

// Locker serializes ticks per account. Two concurrent ticks against the
// same account must never both proceed; the read-decide-write cycle is not
// safe under interleaving.
type Locker interface {
	// Acquire takes the per-account tick lock, returning a release func.
	// ok is false when another tick currently holds the lock.
	Acquire(ctx context.Context, accountID int64, ttl time.Duration) (release func(), ok bool, err error)
}
