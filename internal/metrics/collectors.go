package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"tradejournal/pkg/logger"
)

// JournalCollector reads gauges straight from Postgres at scrape time
type JournalCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB

	registeredUsers *prometheus.Desc
	pendingUsers    *prometheus.Desc
	trades24h       *prometheus.Desc
	activeStates    *prometheus.Desc
}

// NewJournalCollector creates a new database-backed collector
func NewJournalCollector(log *logger.Logger, postgres *sqlx.DB) *JournalCollector {
	return &JournalCollector{
		log:      log.With("component", "metrics_collector"),
		postgres: postgres,

		registeredUsers: prometheus.NewDesc(
			"tradejournal_registered_users",
			"Users that completed registration",
			nil, nil,
		),
		pendingUsers: prometheus.NewDesc(
			"tradejournal_pending_users",
			"Users created on first contact that have not finished registration",
			nil, nil,
		),
		trades24h: prometheus.NewDesc(
			"tradejournal_trades_logged_24h",
			"Trades journaled in the last 24h",
			nil, nil,
		),
		activeStates: prometheus.NewDesc(
			"tradejournal_active_conversations",
			"Users parked in a multi-step flow, by step",
			[]string{"state"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *JournalCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.registeredUsers
	ch <- c.pendingUsers
	ch <- c.trades24h
	ch <- c.activeStates
}

// Collect implements prometheus.Collector
func (c *JournalCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectUserCounts(ctx, ch)
	c.collectTradeCount(ctx, ch)
	c.collectActiveStates(ctx, ch)
}

func (c *JournalCollector) collectUserCounts(ctx context.Context, ch chan<- prometheus.Metric) {
	var counts struct {
		Registered int `db:"registered"`
		Pending    int `db:"pending"`
	}
	err := c.postgres.GetContext(ctx, &counts, `
		SELECT
			COUNT(*) FILTER (WHERE registration_complete) AS registered,
			COUNT(*) FILTER (WHERE NOT registration_complete) AS pending
		FROM users
	`)
	if err != nil {
		c.log.Errorw("Failed to collect user counts", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.registeredUsers, prometheus.GaugeValue, float64(counts.Registered))
	ch <- prometheus.MustNewConstMetric(c.pendingUsers, prometheus.GaugeValue, float64(counts.Pending))
}

func (c *JournalCollector) collectTradeCount(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	err := c.postgres.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM trades
		WHERE created_at > NOW() - INTERVAL '24 hours'
	`)
	if err != nil {
		c.log.Errorw("Failed to collect trade count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.trades24h, prometheus.GaugeValue, float64(count))
}

// collectActiveStates only sees the Postgres state backend
func (c *JournalCollector) collectActiveStates(ctx context.Context, ch chan<- prometheus.Metric) {
	type stateCount struct {
		State string `db:"state"`
		Count int    `db:"count"`
	}

	var rows []stateCount
	err := c.postgres.SelectContext(ctx, &rows, `
		SELECT state, COUNT(*) AS count
		FROM user_states
		GROUP BY state
	`)
	if err != nil {
		c.log.Errorw("Failed to collect conversation states", "error", err)
		return
	}

	for _, r := range rows {
		ch <- prometheus.MustNewConstMetric(c.activeStates, prometheus.GaugeValue, float64(r.Count), r.State)
	}
}

// RegisterCollector registers a custom collector
func RegisterCollector(collector prometheus.Collector) {
	prometheus.MustRegister(collector)
}
