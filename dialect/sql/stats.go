package sql

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/sqldialect/dialect"
	"github.com/syssam/sqldialect/dialect/bind"
)

// Stats counts the statements sent through a StatsDriver. Arguments are
// counted by how they bind, positional or named, and statements using the
// row limiting clause of the dialect are counted as paged.
type Stats struct {
	queries    atomic.Int64
	execs      atomic.Int64
	duration   atomic.Int64 // nanoseconds
	slow       atomic.Int64
	errors     atomic.Int64
	positional atomic.Int64
	named      atomic.Int64
	paged      atomic.Int64
	mismatched atomic.Int64
}

// Snapshot returns the current statistics.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:        s.queries.Load(),
		Execs:          s.execs.Load(),
		Duration:       time.Duration(s.duration.Load()),
		Slow:           s.slow.Load(),
		Errors:         s.errors.Load(),
		PositionalArgs: s.positional.Load(),
		NamedArgs:      s.named.Load(),
		Paged:          s.paged.Load(),
		Mismatched:     s.mismatched.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *Stats) Reset() {
	for _, c := range []*atomic.Int64{
		&s.queries, &s.execs, &s.duration, &s.slow, &s.errors,
		&s.positional, &s.named, &s.paged, &s.mismatched,
	} {
		c.Store(0)
	}
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Queries        int64
	Execs          int64
	Duration       time.Duration
	Slow           int64
	Errors         int64
	PositionalArgs int64
	NamedArgs      int64
	// Paged is the number of statements with a LIMIT, FETCH or FIRST clause
	// of the dialect.
	Paged int64
	// Mismatched is the number of statements whose arguments did not bind
	// the way the dialect's markers do, e.g. named arguments sent to a
	// positional dialect.
	Mismatched int64
}

// AvgDuration returns the average statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.Queries + s.Execs
	if total == 0 {
		return 0
	}
	return s.Duration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d paged=%d args=%d/%d duration=%s avg=%s slow=%d errors=%d mismatched=%d",
		s.Queries, s.Execs, s.Paged, s.PositionalArgs, s.NamedArgs, s.Duration, s.AvgDuration(),
		s.Slow, s.Errors, s.Mismatched,
	)
}

// Statement describes a statement observed by a StatsDriver.
type Statement struct {
	Dialect  string
	Markers  bind.Style
	Query    string
	Args     []any
	Duration time.Duration
	Err      error
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(context.Context, Statement)

// StatsDriver wraps a Driver with statement statistics.
type StatsDriver struct {
	*Driver
	stats   *Stats
	markers bind.Style
	paging  string
	logger  *slog.Logger

	mu            sync.RWMutex
	slowThreshold time.Duration
	slowHook      SlowQueryHook
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow query detection. Default
// is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithStatsLogger logs slow statements and statements whose arguments do
// not match the binding style of the dialect.
func WithStatsLogger(logger *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		s.logger = logger
	}
}

// NewStatsDriver wraps a Driver with statistics collection.
//
//	drv, _ := sql.Open("sqlserver", dsn)
//	stats := sql.NewStatsDriver(drv, sql.WithStatsLogger(slog.Default()))
//	query, args := stats.Builder().Select("id").From("users").Limit(10).Query()
//	err := stats.Query(ctx, query, args, &rows)
//	fmt.Println(stats.Stats().Snapshot())
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	d := drv.SQLDialect()
	s := &StatsDriver{
		Driver:        drv,
		stats:         &Stats{},
		markers:       bind.StyleOf(d.BindMarkersFactory()),
		paging:        pagingKeyword(d.Limit()),
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pagingKeyword returns the leading keyword of the limit clause, e.g.
// LIMIT, OFFSET or FIRST.
func pagingKeyword(l dialect.LimitClause) string {
	fields := strings.Fields(l.Clause(1))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// Stats returns the collected statistics.
func (d *StatsDriver) Stats() *Stats {
	return d.stats
}

// SlowThreshold returns the current slow query threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow query threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query executes a query and records statistics.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, start, err, true)
	return err
}

// Exec executes a statement and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, start, err, false)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, start time.Time, err error, isQuery bool) {
	stmt := Statement{
		Dialect:  d.Dialect(),
		Markers:  d.markers,
		Query:    query,
		Duration: time.Since(start),
		Err:      err,
	}
	stmt.Args, _ = argList(args)
	if isQuery {
		d.stats.queries.Add(1)
	} else {
		d.stats.execs.Add(1)
	}
	d.stats.duration.Add(int64(stmt.Duration))
	if err != nil {
		d.stats.errors.Add(1)
	}
	if d.paging != "" && containsKeyword(query, d.paging) {
		d.stats.paged.Add(1)
	}

	var positional, named int64
	for _, arg := range stmt.Args {
		if _, ok := arg.(NamedArg); ok {
			named++
		} else {
			positional++
		}
	}
	d.stats.positional.Add(positional)
	d.stats.named.Add(named)
	if (d.markers == bind.StyleNamed && positional > 0) || (d.markers != bind.StyleNamed && named > 0) {
		d.stats.mismatched.Add(1)
		if d.logger != nil {
			d.logger.WarnContext(ctx, "arguments do not match dialect markers",
				"dialect", stmt.Dialect, "markers", stmt.Markers, "positional", positional, "named", named, "query", query)
		}
	}

	d.mu.RLock()
	threshold, hook := d.slowThreshold, d.slowHook
	d.mu.RUnlock()
	if stmt.Duration <= threshold {
		return
	}
	d.stats.slow.Add(1)
	if d.logger != nil {
		d.logger.WarnContext(ctx, "slow query detected",
			"dialect", stmt.Dialect, "duration", stmt.Duration, "query", query, "args", stmt.Args)
	}
	if hook != nil {
		hook(ctx, stmt)
	}
}

// containsKeyword reports whether query contains kw as a whole word,
// ignoring case.
func containsKeyword(query, kw string) bool {
	for _, f := range strings.Fields(query) {
		if strings.EqualFold(f, kw) {
			return true
		}
	}
	return false
}

// Tx starts a transaction that also records statistics.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options that also records statistics.
func (d *StatsDriver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.Driver.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx wraps a transaction with statistics collection.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query executes a query within the transaction and records statistics.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err, true)
	return err
}

// Exec executes a statement within the transaction and records statistics.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err, false)
	return err
}

// DebugDriver wraps a Driver with logging of every statement. Arguments
// are printed next to the placeholders they bind to, e.g. [$1=a8m $2=30]
// or [@P1_name=a8m].
type DebugDriver struct {
	*Driver
	log func(context.Context, ...any)
}

// DebugOption configures the DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLog sets a custom log function.
func DebugWithLog(logFunc func(context.Context, ...any)) DebugOption {
	return func(d *DebugDriver) {
		d.log = logFunc
	}
}

// DebugWithLogger logs at debug level, with the dialect and its marker
// style attached to every record.
func DebugWithLogger(logger *slog.Logger) DebugOption {
	return func(d *DebugDriver) {
		l := logger.With("dialect", d.Dialect(), "markers", bind.StyleOf(d.SQLDialect().BindMarkersFactory()))
		d.log = func(ctx context.Context, v ...any) {
			l.DebugContext(ctx, fmt.Sprint(v...))
		}
	}
}

// NewDebugDriver wraps a Driver with debug logging.
//
//	drv, _ := sql.Open("postgres", dsn)
//	debug := sql.NewDebugDriver(drv, sql.DebugWithLog(func(ctx context.Context, v ...any) {
//	    log.Println(v...)
//	}))
func NewDebugDriver(drv *Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{
		Driver: drv,
		log: func(ctx context.Context, v ...any) {
			slog.InfoContext(ctx, fmt.Sprint(v...), "dialect", drv.Dialect())
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DebugDriver) describe(kind, query string, args any) string {
	return kind + ": " + query + " args: " + formatArgs(d.SQLDialect().BindMarkersFactory(), args)
}

// Query executes a query and logs it.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log(ctx, d.describe("query", query, args))
	return d.Driver.Query(ctx, query, args, v)
}

// Exec executes a statement and logs it.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log(ctx, d.describe("exec", query, args))
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction with debug logging.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.log(ctx, "begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, driver: d}, nil
}

// DebugTx wraps a transaction with debug logging.
type DebugTx struct {
	dialect.Tx
	driver *DebugDriver
}

// Query executes a query within the transaction and logs it.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.driver.log(ctx, tx.driver.describe("tx query", query, args))
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec executes a statement within the transaction and logs it.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.driver.log(ctx, tx.driver.describe("tx exec", query, args))
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit commits the transaction and logs it.
func (tx *DebugTx) Commit() error {
	tx.driver.log(context.Background(), "commit transaction")
	return tx.Tx.Commit()
}

// Rollback rolls back the transaction and logs it.
func (tx *DebugTx) Rollback() error {
	tx.driver.log(context.Background(), "rollback transaction")
	return tx.Tx.Rollback()
}

// formatArgs pairs the arguments with the placeholders of f they bind to.
// Anonymous placeholders are numbered, as in ?1, since their text repeats.
func formatArgs(f bind.Factory, args any) string {
	argv, err := argList(args)
	if err != nil {
		return fmt.Sprint(args)
	}
	markers := f.Create()
	first := f.Create().Next()
	prefix := ""
	if n, ok := first.(interface{ Name() string }); ok {
		prefix = strings.TrimSuffix(first.Placeholder(), n.Name())
	}
	parts := make([]string, len(argv))
	for i, arg := range argv {
		if na, ok := arg.(NamedArg); ok {
			parts[i] = fmt.Sprintf("%s%s=%v", prefix, na.Name, na.Value)
			continue
		}
		label := markers.Next().Placeholder()
		if !f.Identifiable() {
			label += strconv.Itoa(i + 1)
		}
		parts[i] = fmt.Sprintf("%s=%v", label, arg)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)

// OpenWithStats opens a Driver for the named database/sql driver with
// statistics collection enabled.
func OpenWithStats(driverName, source string, opts ...StatsOption) (*StatsDriver, *Stats, error) {
	drv, err := Open(driverName, source)
	if err != nil {
		return nil, nil, err
	}
	s := NewStatsDriver(drv, opts...)
	return s, s.Stats(), nil
}
