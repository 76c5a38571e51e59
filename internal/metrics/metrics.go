package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	TicksTotal   prometheus.Counter
	TickErrors   prometheus.Counter
	TickDur      prometheus.Histogram
	TicksSkipped prometheus.Counter // lock already held by another tick

	FetchDur        prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram

	PositionsOpened     prometheus.Counter
	PositionsClosed     *prometheus.CounterVec // labels: reason
	PositionsLiquidated prometheus.Counter
	EntriesBlocked      prometheus.Counter
	StopAdjustments     prometheus.Counter

	OpenPositions  *prometheus.GaugeVec // labels: account
	AccountBalance *prometheus.GaugeVec // labels: account

	WSClients prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botengine_ticks_total",
			Help: "Total engine ticks executed",
		}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botengine_tick_errors_total",
			Help: "Ticks aborted before any mutation committed",
		}),
		TickDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "botengine_tick_duration_seconds",
			Help:    "Full tick latency (fetch + pipeline + persist)",
			Buckets: prometheus.DefBuckets,
		}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botengine_ticks_skipped_total",
			Help: "Ticks skipped because the per-account lock was held",
		}),

		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "botengine_fetch_duration_seconds",
			Help:    "Market data fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "botengine_sqlite_commit_duration_seconds",
			Help:    "SQLite tick-transaction commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		PositionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botengine_positions_opened_total",
			Help: "Positions opened",
		}),
		PositionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botengine_positions_closed_total",
			Help: "Positions closed (by exit reason)",
		}, []string{"reason"}),
		PositionsLiquidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botengine_positions_liquidated_total",
			Help: "Positions liquidated",
		}),
		EntriesBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botengine_entries_blocked_total",
			Help: "Entry evaluations that ended in no trade",
		}),
		StopAdjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "botengine_stop_adjustments_total",
			Help: "Trailing-stop moves persisted",
		}),

		OpenPositions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "botengine_open_positions",
			Help: "Currently open positions per account",
		}, []string{"account"}),
		AccountBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "botengine_account_balance",
			Help: "Simulated account balance",
		}, []string{"account"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "botengine_ws_clients",
			Help: "Connected dashboard WebSocket clients",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.TickErrors,
		m.TickDur,
		m.TicksSkipped,
		m.FetchDur,
		m.SQLiteCommitDur,
		m.PositionsOpened,
		m.PositionsClosed,
		m.PositionsLiquidated,
		m.EntriesBlocked,
		m.StopAdjustments,
		m.OpenPositions,
		m.AccountBalance,
		m.WSClients,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	MarketDataOK   bool      `json:"market_data_ok"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastTickTime   time.Time `json:"last_tick_time"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetMarketDataOK(v bool) {
	h.mu.Lock()
	h.MarketDataOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Determine overall status
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.MarketDataOK || !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	// Tick age
	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		MarketDataOK    bool    `json:"market_data_ok"`
		LastTickTime    string  `json:"last_tick_time"`
		TickAge         string  `json:"tick_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		MarketDataOK:    h.MarketDataOK,
		LastTickTime:    h.LastTickTime.Format(time.RFC3339),
		TickAge:         tickAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
