// Package sqlite persists accounts, positions, trades, and the decision log.
// The engine mutates exclusively through WithTx so every tick commits
// all-or-nothing.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"papertraderv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/papertrader.db"
}

// Store is the SQLite-backed persistence collaborator.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and initializes the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer: the engine serializes per-account anyway and SQLite
	// dislikes concurrent write transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol            TEXT    NOT NULL,
			interval          TEXT    NOT NULL,
			leverage          REAL    NOT NULL,
			position_size_pct REAL    NOT NULL,
			stop_loss_pct     REAL    NOT NULL,
			take_profit_pct   REAL    NOT NULL,
			rule_set          TEXT    NOT NULL DEFAULT 'v1',
			is_active         INTEGER NOT NULL DEFAULT 0,
			current_balance   REAL    NOT NULL,
			initial_balance   REAL    NOT NULL,
			updated_at        INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS positions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id   INTEGER NOT NULL,
			symbol       TEXT    NOT NULL,
			side         TEXT    NOT NULL,
			entry_price  REAL    NOT NULL,
			quantity     REAL    NOT NULL,
			leverage     REAL    NOT NULL,
			margin_used  REAL    NOT NULL,
			stop_loss    REAL    NOT NULL DEFAULT 0,
			take_profit  REAL    NOT NULL DEFAULT 0,
			status       TEXT    NOT NULL DEFAULT 'open',
			entry_reason TEXT    NOT NULL DEFAULT '',
			exit_price   REAL    NOT NULL DEFAULT 0,
			exit_reason  TEXT    NOT NULL DEFAULT '',
			pnl          REAL    NOT NULL DEFAULT 0,
			pnl_pct      REAL    NOT NULL DEFAULT 0,
			opened_at    INTEGER NOT NULL,
			closed_at    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_positions_open
			ON positions (account_id, status);

		CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id  INTEGER NOT NULL,
			position_id INTEGER NOT NULL,
			kind        TEXT    NOT NULL,
			side        TEXT    NOT NULL,
			price       REAL    NOT NULL,
			quantity    REAL    NOT NULL,
			pnl         REAL    NOT NULL DEFAULT 0,
			reason      TEXT    NOT NULL DEFAULT '',
			snapshot    TEXT    NOT NULL DEFAULT '{}',
			created_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trades_account
			ON trades (account_id, created_at);

		CREATE TABLE IF NOT EXISTS logs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL,
			level      TEXT    NOT NULL,
			message    TEXT    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
		CREATE INDEX IF NOT EXISTS idx_logs_account
			ON logs (account_id, created_at);
	`)
	return err
}

// SeedAccount inserts an account if it does not exist yet and returns its ID.
// Used at first boot so a fresh database starts with a tradable account.
func (s *Store) SeedAccount(ctx context.Context, a *model.Account) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE symbol = ? AND interval = ? LIMIT 1`,
		a.Symbol, a.Interval).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("sqlite seed lookup: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (symbol, interval, leverage, position_size_pct,
			stop_loss_pct, take_profit_pct, rule_set, is_active,
			current_balance, initial_balance, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Symbol, a.Interval, a.Leverage, a.PositionSizePct,
		a.StopLossPct, a.TakeProfitPct, a.RuleSet, boolInt(a.IsActive),
		a.CurrentBalance, a.InitialBalance, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite seed insert: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	log.Printf("[sqlite] seeded account %d %s/%s balance=%.2f", id, a.Symbol, a.Interval, a.InitialBalance)
	return id, nil
}

// GetAccount reads one account by ID.
func (s *Store) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, interval, leverage, position_size_pct, stop_loss_pct,
		       take_profit_pct, rule_set, is_active, current_balance,
		       initial_balance, updated_at
		FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// ListActiveAccounts returns accounts with is_active = true.
func (s *Store) ListActiveAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, interval, leverage, position_size_pct, stop_loss_pct,
		       take_profit_pct, rule_set, is_active, current_balance,
		       initial_balance, updated_at
		FROM accounts WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateAccount persists account mutations outside a tick transaction.
func (s *Store) UpdateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.db.ExecContext(ctx, updateAccountSQL, accountArgs(a)...)
	if err != nil {
		return fmt.Errorf("sqlite update account %d: %w", a.ID, err)
	}
	return nil
}

// WithTx runs fn inside a single transaction; any error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(tx model.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	if err := fn(&tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			log.Printf("[sqlite] rollback: %v", rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

// OpenPositions returns positions with status = open for the account.
func (s *Store) OpenPositions(ctx context.Context, accountID int64) ([]model.Position, error) {
	rows, err := s.db.QueryContext(ctx, selectPositionSQL+`
		WHERE account_id = ? AND status = 'open' ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("sqlite open positions: %w", err)
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// RecentTrades returns the last limit trades for the account, newest first.
func (s *Store) RecentTrades(ctx context.Context, accountID int64, limit int) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, position_id, kind, side, price, quantity, pnl,
		       reason, snapshot, created_at
		FROM trades WHERE account_id = ? ORDER BY id DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite recent trades: %w", err)
	}
	defer rows.Close()

	var out []model.Trade
	for rows.Next() {
		var t model.Trade
		var snap string
		var created int64
		if err := rows.Scan(&t.ID, &t.AccountID, &t.PositionID, &t.Kind, &t.Side,
			&t.Price, &t.Quantity, &t.PnL, &t.Reason, &snap, &created); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		if err := json.Unmarshal([]byte(snap), &t.Snapshot); err != nil {
			return nil, fmt.Errorf("sqlite trade %d snapshot: %w", t.ID, err)
		}
		t.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentLogs returns the last limit decision-log lines, newest first.
func (s *Store) RecentLogs(ctx context.Context, accountID int64, limit int) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, level, message, created_at
		FROM logs WHERE account_id = ? ORDER BY id DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite recent logs: %w", err)
	}
	defer rows.Close()

	var out []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Level, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("sqlite scan log: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ── Transactional surface ──

type tx struct {
	tx *sql.Tx
}

func (t *tx) UpdateAccount(a *model.Account) error {
	_, err := t.tx.Exec(updateAccountSQL, accountArgs(a)...)
	if err != nil {
		return fmt.Errorf("sqlite tx update account %d: %w", a.ID, err)
	}
	return nil
}

func (t *tx) InsertPosition(p *model.Position) error {
	res, err := t.tx.Exec(`
		INSERT INTO positions (account_id, symbol, side, entry_price, quantity,
			leverage, margin_used, stop_loss, take_profit, status, entry_reason,
			exit_price, exit_reason, pnl, pnl_pct, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.AccountID, p.Symbol, p.Side, p.EntryPrice, p.Quantity,
		p.Leverage, p.MarginUsed, p.StopLoss, p.TakeProfit, p.Status, p.EntryReason,
		p.ExitPrice, p.ExitReason, p.PnL, p.PnLPct, p.OpenedAt.Unix(), closedUnix(p))
	if err != nil {
		return fmt.Errorf("sqlite insert position: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (t *tx) UpdatePosition(p *model.Position) error {
	_, err := t.tx.Exec(`
		UPDATE positions SET stop_loss = ?, take_profit = ?, status = ?,
			exit_price = ?, exit_reason = ?, pnl = ?, pnl_pct = ?, closed_at = ?
		WHERE id = ?`,
		p.StopLoss, p.TakeProfit, p.Status,
		p.ExitPrice, p.ExitReason, p.PnL, p.PnLPct, closedUnix(p), p.ID)
	if err != nil {
		return fmt.Errorf("sqlite update position %d: %w", p.ID, err)
	}
	return nil
}

func (t *tx) AppendTrade(tr *model.Trade) error {
	snap, err := json.Marshal(tr.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal trade snapshot: %w", err)
	}
	res, err := t.tx.Exec(`
		INSERT INTO trades (account_id, position_id, kind, side, price, quantity,
			pnl, reason, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.AccountID, tr.PositionID, tr.Kind, tr.Side, tr.Price, tr.Quantity,
		tr.PnL, tr.Reason, string(snap), tr.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite append trade: %w", err)
	}
	tr.ID, err = res.LastInsertId()
	return err
}

func (t *tx) AppendLog(accountID int64, level, message string) error {
	_, err := t.tx.Exec(`
		INSERT INTO logs (account_id, level, message, created_at)
		VALUES (?, ?, ?, ?)`,
		accountID, level, message, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite append log: %w", err)
	}
	return nil
}

// ── Row mapping ──

const updateAccountSQL = `
	UPDATE accounts SET symbol = ?, interval = ?, leverage = ?,
		position_size_pct = ?, stop_loss_pct = ?, take_profit_pct = ?,
		rule_set = ?, is_active = ?, current_balance = ?, updated_at = ?
	WHERE id = ?`

func accountArgs(a *model.Account) []any {
	return []any{
		a.Symbol, a.Interval, a.Leverage,
		a.PositionSizePct, a.StopLossPct, a.TakeProfitPct,
		a.RuleSet, boolInt(a.IsActive), a.CurrentBalance, time.Now().Unix(),
		a.ID,
	}
}

const selectPositionSQL = `
	SELECT id, account_id, symbol, side, entry_price, quantity, leverage,
	       margin_used, stop_loss, take_profit, status, entry_reason,
	       exit_price, exit_reason, pnl, pnl_pct, opened_at, closed_at
	FROM positions`

type scannable interface {
	Scan(dest ...any) error
}

func scanAccount(row scannable) (*model.Account, error) {
	var a model.Account
	var active int
	var updated int64
	err := row.Scan(&a.ID, &a.Symbol, &a.Interval, &a.Leverage, &a.PositionSizePct,
		&a.StopLossPct, &a.TakeProfitPct, &a.RuleSet, &active,
		&a.CurrentBalance, &a.InitialBalance, &updated)
	if err != nil {
		return nil, fmt.Errorf("sqlite scan account: %w", err)
	}
	a.IsActive = active != 0
	a.UpdatedAt = time.Unix(updated, 0).UTC()
	return &a, nil
}

func scanPosition(row scannable) (*model.Position, error) {
	var p model.Position
	var opened, closed int64
	err := row.Scan(&p.ID, &p.AccountID, &p.Symbol, &p.Side, &p.EntryPrice,
		&p.Quantity, &p.Leverage, &p.MarginUsed, &p.StopLoss, &p.TakeProfit,
		&p.Status, &p.EntryReason, &p.ExitPrice, &p.ExitReason, &p.PnL, &p.PnLPct,
		&opened, &closed)
	if err != nil {
		return nil, fmt.Errorf("sqlite scan position: %w", err)
	}
	p.OpenedAt = time.Unix(opened, 0).UTC()
	if closed > 0 {
		p.ClosedAt = time.Unix(closed, 0).UTC()
	}
	return &p, nil
}

func closedUnix(p *model.Position) int64 {
	if p.ClosedAt.IsZero() {
		return 0
	}
	return p.ClosedAt.Unix()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
