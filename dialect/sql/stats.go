package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueryStats holds statement execution statistics.
type QueryStats struct {
	// TotalQueries counts QueryContext and QueryRowContext calls.
	TotalQueries atomic.Int64
	// TotalExecs counts ExecContext calls.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of statement statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsExecQuerier wraps an ExecQuerier with statistics collection. It can
// be handed to any generated repository in place of the wrapped value.
type StatsExecQuerier struct {
	ExecQuerier
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures a StatsExecQuerier.
type StatsOption func(*StatsExecQuerier)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsExecQuerier) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsExecQuerier) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to the given logger, or to
// slog.Default() when logger is nil.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "args", len(args))
	})
}

// NewStatsExecQuerier wraps ex with statistics collection.
//
//	db, _ := sql.Open(dialect.Postgres, dsn)
//	ex := sql.NewStatsExecQuerier(db,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(nil),
//	)
//	repo := ent.NewPgProductRepository(ex)
//	fmt.Println(ex.QueryStats().Stats())
func NewStatsExecQuerier(ex ExecQuerier, opts ...StatsOption) *StatsExecQuerier {
	s := &StatsExecQuerier{
		ExecQuerier:   ex,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (s *StatsExecQuerier) QueryStats() *QueryStats {
	return s.stats
}

// SlowThreshold returns the current slow statement threshold.
func (s *StatsExecQuerier) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow statement threshold.
func (s *StatsExecQuerier) SetSlowThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = threshold
}

// ExecContext executes a statement and records statistics.
func (s *StatsExecQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.ExecQuerier.ExecContext(ctx, query, args...)
	s.record(ctx, query, args, start, err, false)
	return res, err
}

// QueryContext executes a query and records statistics.
func (s *StatsExecQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.ExecQuerier.QueryContext(ctx, query, args...)
	s.record(ctx, query, args, start, err, true)
	return rows, err
}

// QueryRowContext executes a single-row query and records statistics.
// sql.ErrNoRows is not counted as an error.
func (s *StatsExecQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := s.ExecQuerier.QueryRowContext(ctx, query, args...)
	err := row.Err()
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	s.record(ctx, query, args, start, err, true)
	return row
}

func (s *StatsExecQuerier) record(ctx context.Context, query string, args []any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		s.stats.TotalQueries.Add(1)
	} else {
		s.stats.TotalExecs.Add(1)
	}
	s.stats.TotalDuration.Add(int64(duration))

	if err != nil {
		s.stats.Errors.Add(1)
	}

	s.mu.RLock()
	threshold := s.slowThreshold
	hook := s.slowHook
	s.mu.RUnlock()

	if duration > threshold {
		s.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, args, duration)
		}
	}
}

// Collector exports the statistics of s as Prometheus counters under
// namespace, with a constant statement_source label set to source.
//
//	reg.MustRegister(ex.Collector("shop", "primary"))
func (s *StatsExecQuerier) Collector(namespace, source string) prometheus.Collector {
	labels := prometheus.Labels{"source": source}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "sql", name), help, nil, labels)
	}
	return &statsCollector{
		stats:    s.stats,
		queries:  desc("queries_total", "Number of queries run."),
		execs:    desc("execs_total", "Number of statements executed."),
		seconds:  desc("statement_seconds_total", "Time spent running statements."),
		slow:     desc("slow_statements_total", "Number of statements above the slow threshold."),
		failures: desc("errors_total", "Number of failed statements."),
	}
}

type statsCollector struct {
	stats                                   *QueryStats
	queries, execs, seconds, slow, failures *prometheus.Desc
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queries
	ch <- c.execs
	ch <- c.seconds
	ch <- c.slow
	ch <- c.failures
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Stats()
	ch <- prometheus.MustNewConstMetric(c.queries, prometheus.CounterValue, float64(snap.TotalQueries))
	ch <- prometheus.MustNewConstMetric(c.execs, prometheus.CounterValue, float64(snap.TotalExecs))
	ch <- prometheus.MustNewConstMetric(c.seconds, prometheus.CounterValue, snap.TotalDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.slow, prometheus.CounterValue, float64(snap.SlowQueries))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(snap.Errors))
}

// DebugExecQuerier logs every statement at debug level before running it.
type DebugExecQuerier struct {
	ExecQuerier
	logger *slog.Logger
}

// NewDebugExecQuerier wraps ex with statement logging. A nil logger means
// slog.Default().
func NewDebugExecQuerier(ex ExecQuerier, logger *slog.Logger) *DebugExecQuerier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugExecQuerier{ExecQuerier: ex, logger: logger}
}

// ExecContext logs and executes a statement.
func (d *DebugExecQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.logger.DebugContext(ctx, "exec", "query", query, "args", args)
	return d.ExecQuerier.ExecContext(ctx, query, args...)
}

// QueryContext logs and executes a query.
func (d *DebugExecQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	d.logger.DebugContext(ctx, "query", "query", query, "args", args)
	return d.ExecQuerier.QueryContext(ctx, query, args...)
}

// QueryRowContext logs and executes a single-row query.
func (d *DebugExecQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	d.logger.DebugContext(ctx, "query row", "query", query, "args", args)
	return d.ExecQuerier.QueryRowContext(ctx, query, args...)
}

var (
	_ ExecQuerier = (*StatsExecQuerier)(nil)
	_ ExecQuerier = (*DebugExecQuerier)(nil)
)
