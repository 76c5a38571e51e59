package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"papertraderv1/internal/engine"
	"papertraderv1/internal/model"
	"papertraderv1/internal/signal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// TickRunner is the engine surface the control API drives.
type TickRunner interface {
	Tick(ctx context.Context, accountID int64, force bool) (*engine.TickResult, error)
	Reset(ctx context.Context, accountID int64) error
}

// SnapshotCache serves the latest cached tick snapshot without hitting the
// engine. Satisfied by the Redis client.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, accountID int64) ([]byte, error)
}

// Server holds the control API dependencies.
type Server struct {
	Hub    *Hub
	Store  model.Store
	Runner TickRunner
	Cache  SnapshotCache // may be nil

	// TOTPSecret guards mutating endpoints. Empty disables the check
	// (development only).
	TOTPSecret string

	start time.Time
}

// NewServer wires the control API.
func NewServer(hub *Hub, store model.Store, runner TickRunner, cache SnapshotCache, totpSecret string) *Server {
	if totpSecret == "" {
		log.Println("[gateway] WARNING: TOTP disabled, mutating endpoints are unprotected")
	}
	return &Server{
		Hub: hub, Store: store, Runner: runner, Cache: cache,
		TOTPSecret: totpSecret, start: time.Now(),
	}
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-TOTP-Code")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		s.Hub.HandleWSRequest(conn)
	})

	mux.HandleFunc("/api/v1/status", s.rest(s.handleStatus))
	mux.HandleFunc("/api/v1/trades", s.rest(s.handleTrades))
	mux.HandleFunc("/api/v1/logs", s.rest(s.handleLogs))
	mux.HandleFunc("/api/v1/snapshot", s.rest(s.handleSnapshot))

	mux.HandleFunc("/api/v1/toggle", s.mutating(s.handleToggle))
	mux.HandleFunc("/api/v1/run", s.mutating(s.handleRun))
	mux.HandleFunc("/api/v1/reset", s.mutating(s.handleReset))
	mux.HandleFunc("/api/v1/config", s.mutating(s.handleConfig))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"ws_clients": s.Hub.ClientCount(),
			"uptime_sec": int64(time.Since(s.start).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

// rest wraps read-only handlers with CORS and OPTIONS handling.
func (s *Server) rest(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h(w, r)
	}
}

// mutating wraps state-changing handlers: POST only, TOTP checked when
// configured.
func (s *Server) mutating(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		if s.TOTPSecret != "" {
			code := r.Header.Get("X-TOTP-Code")
			if code == "" || !totp.Validate(code, s.TOTPSecret) {
				writeError(w, http.StatusUnauthorized, "invalid TOTP code")
				return
			}
		}
		h(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := s.Store.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	open, err := s.Store.OpenPositions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":        acct,
		"open_positions": open,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	trades, err := s.Store.RecentTrades(r.Context(), id, queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	logs, err := s.Store.RecentLogs(r.Context(), id, queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []model.LogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	if s.Cache == nil {
		writeError(w, http.StatusNotFound, "snapshot cache not configured")
		return
	}
	data, err := s.Cache.GetSnapshot(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "no snapshot yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	acct, err := s.Store.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	acct.IsActive = !acct.IsActive
	if err := s.Store.UpdateAccount(r.Context(), acct); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("[gateway] account %d toggled active=%v", id, acct.IsActive)
	writeJSON(w, http.StatusOK, map[string]any{"is_active": acct.IsActive})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	res, err := s.Runner.Tick(r.Context(), id, true)
	if errors.Is(err, engine.ErrTickInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	if err := s.Runner.Reset(r.Context(), id); err != nil {
		if errors.Is(err, engine.ErrTickInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("[gateway] account %d reset", id)
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}
	var patch model.ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if valid, reason := patch.Validate(); !valid {
		writeError(w, http.StatusBadRequest, reason)
		return
	}
	if patch.RuleSet != nil {
		if _, err := signal.Lookup(*patch.RuleSet); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	acct, err := s.Store.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	patch.Apply(acct)
	if err := s.Store.UpdateAccount(r.Context(), acct); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("[gateway] account %d config updated", id)
	writeJSON(w, http.StatusOK, acct)
}

// ── helpers ──

func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("account")
	if raw == "" {
		raw = "1"
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}

func queryLimit(r *http.Request, def int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
