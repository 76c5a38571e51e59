package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"papertraderv1/internal/engine"
	"papertraderv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Fakes
// ────────────────────────────────────────────────────────────

type stubStore struct {
	account model.Account
	trades  []model.Trade
	logs    []model.LogEntry
}

func (s *stubStore) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if id != s.account.ID {
		return nil, fmt.Errorf("account %d not found", id)
	}
	a := s.account
	return &a, nil
}

func (s *stubStore) ListActiveAccounts(ctx context.Context) ([]model.Account, error) {
	return []model.Account{s.account}, nil
}

func (s *stubStore) UpdateAccount(ctx context.Context, a *model.Account) error {
	s.account = *a
	return nil
}

func (s *stubStore) WithTx(ctx context.Context, fn func(tx model.Tx) error) error {
	return fmt.Errorf("not supported in stub")
}

func (s *stubStore) OpenPositions(ctx context.Context, accountID int64) ([]model.Position, error) {
	return nil, nil
}

func (s *stubStore) RecentTrades(ctx context.Context, accountID int64, limit int) ([]model.Trade, error) {
	return s.trades, nil
}

func (s *stubStore) RecentLogs(ctx context.Context, accountID int64, limit int) ([]model.LogEntry, error) {
	return s.logs, nil
}

type stubRunner struct {
	ticked bool
	reset  bool
}

func (r *stubRunner) Tick(ctx context.Context, accountID int64, force bool) (*engine.TickResult, error) {
	r.ticked = true
	return &engine.TickResult{AccountID: accountID, Price: 100}, nil
}

func (r *stubRunner) Reset(ctx context.Context, accountID int64) error {
	r.reset = true
	return nil
}

func testServer(t *testing.T, totpSecret string) (*httptest.Server, *stubStore, *stubRunner) {
	t.Helper()
	store := &stubStore{account: model.Account{
		ID: 1, Symbol: "BTCUSDT", Interval: "1h", Leverage: 5,
		PositionSizePct: 10, StopLossPct: 5, TakeProfitPct: 10,
		RuleSet: "v1", IsActive: true,
		CurrentBalance: 10000, InitialBalance: 10000,
	}}
	runner := &stubRunner{}
	srv := NewServer(NewHub(), store, runner, nil, totpSecret)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, store, runner
}

// ────────────────────────────────────────────────────────────
// REST
// ────────────────────────────────────────────────────────────

func TestStatusEndpoint(t *testing.T) {
	ts, _, _ := testServer(t, "")

	resp, err := http.Get(ts.URL + "/api/v1/status?account=1")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code: %d", resp.StatusCode)
	}

	var body struct {
		Account model.Account `json:"account"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Account.Symbol != "BTCUSDT" {
		t.Errorf("account: %+v", body.Account)
	}
}

func TestToggleFlipsActive(t *testing.T) {
	ts, store, _ := testServer(t, "")

	resp, err := http.Post(ts.URL+"/api/v1/toggle?account=1", "application/json", nil)
	if err != nil {
		t.Fatalf("post toggle: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code: %d", resp.StatusCode)
	}
	if store.account.IsActive {
		t.Error("toggle should have deactivated the account")
	}
}

func TestMutatingRequiresTOTP(t *testing.T) {
	// Real base32 secret; the request sends no code, so it must be rejected.
	ts, _, runner := testServer(t, "JBSWY3DPEHPK3PXP")

	resp, err := http.Post(ts.URL+"/api/v1/run?account=1", "application/json", nil)
	if err != nil {
		t.Fatalf("post run: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status code: got %d, want 401", resp.StatusCode)
	}
	if runner.ticked {
		t.Error("tick must not run without a valid TOTP code")
	}
}

func TestMutatingRejectsGET(t *testing.T) {
	ts, _, _ := testServer(t, "")

	resp, err := http.Get(ts.URL + "/api/v1/reset?account=1")
	if err != nil {
		t.Fatalf("get reset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status code: got %d, want 405", resp.StatusCode)
	}
}

func TestRunForcesTick(t *testing.T) {
	ts, _, runner := testServer(t, "")

	resp, err := http.Post(ts.URL+"/api/v1/run?account=1", "application/json", nil)
	if err != nil {
		t.Fatalf("post run: %v", err)
	}
	resp.Body.Close()
	if !runner.ticked {
		t.Error("run endpoint should force a tick")
	}
}

func TestConfigPatchValidation(t *testing.T) {
	ts, store, _ := testServer(t, "")

	// Leverage out of range must be rejected before any mutation.
	resp, err := http.Post(ts.URL+"/api/v1/config?account=1", "application/json",
		strings.NewReader(`{"leverage": 500}`))
	if err != nil {
		t.Fatalf("post config: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code: got %d, want 400", resp.StatusCode)
	}
	if store.account.Leverage != 5 {
		t.Errorf("rejected patch mutated the account: leverage=%v", store.account.Leverage)
	}

	// A valid patch applies.
	resp, err = http.Post(ts.URL+"/api/v1/config?account=1", "application/json",
		strings.NewReader(`{"leverage": 10, "stop_loss_pct": 2}`))
	if err != nil {
		t.Fatalf("post config: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code: got %d, want 200", resp.StatusCode)
	}
	if store.account.Leverage != 10 || store.account.StopLossPct != 2 {
		t.Errorf("patch not applied: %+v", store.account)
	}
}

func TestConfigRejectsUnknownRuleSet(t *testing.T) {
	ts, _, _ := testServer(t, "")

	resp, err := http.Post(ts.URL+"/api/v1/config?account=1", "application/json",
		strings.NewReader(`{"rule_set": "yolo"}`))
	if err != nil {
		t.Fatalf("post config: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code: got %d, want 400", resp.StatusCode)
	}
}

// ────────────────────────────────────────────────────────────
// WebSocket fan-out
// ────────────────────────────────────────────────────────────

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := NewHub()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.HandleWSRequest(conn)
	})
	ws := httptest.NewServer(mux)
	defer ws.Close()

	url := "ws" + strings.TrimPrefix(ws.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for registration before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() == 0 {
		t.Fatal("client never registered")
	}

	hub.Broadcast(1, []byte(`{"price":42000}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var envelope struct {
		Type      string `json:"type"`
		AccountID int64  `json:"account_id"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		t.Fatalf("unmarshal %q: %v", msg, err)
	}
	if envelope.Type != "tick" || envelope.AccountID != 1 {
		t.Errorf("envelope: %+v", envelope)
	}
}
