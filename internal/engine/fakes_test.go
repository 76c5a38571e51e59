package engine

import (
	"context"
	"fmt"
	"time"

	"papertraderv1/internal/model"
	"papertraderv1/internal/notification"
)

// ── In-memory collaborator fakes ──

type fakeMarket struct {
	series model.Series
	price  float64
	err    error
}

func (f *fakeMarket) FetchCandles(ctx context.Context, symbol, interval string, limit int) (model.Series, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func (f *fakeMarket) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.price, nil
}

// fakeStore keeps everything in memory and applies Tx mutations immediately.
// Good enough for engine tests: the engine never relies on rollback here.
type fakeStore struct {
	account   model.Account
	positions []model.Position
	trades    []model.Trade
	logs      []model.LogEntry
	nextPosID int64
	txErr     error
}

func newFakeStore(acct model.Account) *fakeStore {
	return &fakeStore{account: acct, nextPosID: 1}
}

func (s *fakeStore) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if id != s.account.ID {
		return nil, fmt.Errorf("account %d not found", id)
	}
	a := s.account
	return &a, nil
}

func (s *fakeStore) ListActiveAccounts(ctx context.Context) ([]model.Account, error) {
	if s.account.IsActive {
		return []model.Account{s.account}, nil
	}
	return nil, nil
}

func (s *fakeStore) UpdateAccount(ctx context.Context, a *model.Account) error {
	s.account = *a
	return nil
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx model.Tx) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	return fn(&fakeTx{s: s})
}

func (s *fakeStore) OpenPositions(ctx context.Context, accountID int64) ([]model.Position, error) {
	var out []model.Position
	for _, p := range s.positions {
		if p.AccountID == accountID && p.Status == model.StatusOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) RecentTrades(ctx context.Context, accountID int64, limit int) ([]model.Trade, error) {
	return s.trades, nil
}

func (s *fakeStore) RecentLogs(ctx context.Context, accountID int64, limit int) ([]model.LogEntry, error) {
	return s.logs, nil
}

type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) UpdateAccount(a *model.Account) error {
	t.s.account = *a
	return nil
}

func (t *fakeTx) InsertPosition(p *model.Position) error {
	p.ID = t.s.nextPosID
	t.s.nextPosID++
	t.s.positions = append(t.s.positions, *p)
	return nil
}

func (t *fakeTx) UpdatePosition(p *model.Position) error {
	for i := range t.s.positions {
		if t.s.positions[i].ID == p.ID {
			t.s.positions[i] = *p
			return nil
		}
	}
	return fmt.Errorf("position %d not found", p.ID)
}

func (t *fakeTx) AppendTrade(tr *model.Trade) error {
	tr.ID = int64(len(t.s.trades) + 1)
	t.s.trades = append(t.s.trades, *tr)
	return nil
}

func (t *fakeTx) AppendLog(accountID int64, level, message string) error {
	t.s.logs = append(t.s.logs, model.LogEntry{
		ID: int64(len(t.s.logs) + 1), AccountID: accountID, Level: level, Message: message,
	})
	return nil
}

// fakeNotifier captures alerts on a buffered channel; delivery happens on a
// goroutine, so tests receive with a timeout.
type fakeNotifier struct {
	alerts chan notification.TradeAlert
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{alerts: make(chan notification.TradeAlert, 4)}
}

func (f *fakeNotifier) Send(ctx context.Context, alert notification.TradeAlert) error {
	f.alerts <- alert
	return nil
}

// fakeLocker grants the lock unless held is set.
type fakeLocker struct {
	held     bool
	acquired int
}

func (l *fakeLocker) Acquire(ctx context.Context, accountID int64, ttl time.Duration) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.acquired++
	return func() {}, true, nil
}
