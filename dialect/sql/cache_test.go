package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqldialect/dialect"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	v, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "users:1", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "users:2", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "posts:1", []byte("c"), 0))

	v, err = c.Get(ctx, "users:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), v)

	now = now.Add(time.Minute)
	v, err = c.Get(ctx, "users:1")
	require.NoError(t, err)
	assert.Nil(t, v, "expired")
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.DeletePrefix(ctx, "users:"))
	v, _ = c.Get(ctx, "users:2")
	assert.Nil(t, v)
	v, _ = c.Get(ctx, "posts:1")
	assert.Equal(t, []byte("c"), v)

	require.NoError(t, c.Delete(ctx, "posts:1"))
	assert.Zero(t, c.Len())

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len())
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'
	got, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)
	got[1] = 'x'
	got, _ = c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)
}

func TestCachedQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.PostgresDialect, db)
	cache := NewMemoryCache()
	query, args := drv.Builder().Select("id", "name").From("users").Where(EQ("active", true)).Limit(10).Query()

	// A single round trip serves both calls.
	mock.ExpectQuery(`SELECT id, name FROM users WHERE active = \$1 LIMIT 10`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Alice").
			AddRow(int64(2), nil))

	want := &ResultSet{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "Alice"}, {int64(2), nil}},
	}
	for range 2 {
		rs, err := CachedQuery(context.Background(), drv, cache, query, args, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, rs)
	}
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, []map[string]any{{"id": int64(1), "name": "Alice"}, {"id": int64(2), "name": nil}}, want.Maps())
}

func TestQueryCache_Key(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	qc := NewQueryCache(OpenDB(dialect.MySQLDialect, db), NewMemoryCache(), WithKeyPrefix("app:"))
	k1, err := qc.Key("SELECT id FROM users WHERE id = ?", []any{1})
	require.NoError(t, err)
	k2, err := qc.Key("SELECT id FROM users WHERE id = ?", []any{1})
	require.NoError(t, err)
	k3, err := qc.Key("SELECT id FROM users WHERE id = ?", []any{2})
	require.NoError(t, err)
	_, err = qc.Key("SELECT id FROM users WHERE id = ?", []any{failingValuer{}})
	require.Error(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "app:mysql:")
}

type failingValuer struct{}

func (failingValuer) Value() (driver.Value, error) { return nil, errors.New("no value") }

func TestQueryCache_Invalidate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cache := NewMemoryCache()
	require.NoError(t, cache.Set(context.Background(), "other", []byte("x"), 0))
	qc := NewQueryCache(OpenDB(dialect.SQLiteDialect, db), cache)

	for range 2 {
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))
		_, err := qc.Query(context.Background(), "SELECT 1", nil)
		require.NoError(t, err)
		require.NoError(t, qc.Invalidate(context.Background()))
	}
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 1, cache.Len(), "keys outside the prefix are kept")
}

func TestQueryCache_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cache := NewMemoryCache()
	qc := NewQueryCache(OpenDB(dialect.PostgresDialect, db), cache)
	expected := errors.New("boom")
	mock.ExpectQuery("SELECT 1").WillReturnError(expected)
	_, err = qc.Query(context.Background(), "SELECT 1", nil)
	assert.ErrorIs(t, err, expected)
	assert.Zero(t, cache.Len(), "errors are not cached")
}

// blockingDriver serves a fixed result once released and counts queries.
// A query fails if its context is done before the release.
type blockingDriver struct {
	calls   atomic.Int32
	release chan struct{}
}

func (d *blockingDriver) Exec(context.Context, string, any, any) error { return nil }

func (d *blockingDriver) Query(ctx context.Context, _ string, _, v any) error {
	d.calls.Add(1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.release:
	}
	*v.(*Rows) = Rows{&fakeRows{columns: []string{"n"}, data: [][]any{{int64(42)}}}}
	return nil
}

func (d *blockingDriver) Tx(context.Context) (dialect.Tx, error) { return nil, errors.New("no tx") }
func (d *blockingDriver) Close() error                           { return nil }
func (d *blockingDriver) Dialect() string                        { return dialect.SQLite }

type fakeRows struct {
	columns []string
	data    [][]any
	i       int
}

func (r *fakeRows) Close() error                           { return nil }
func (r *fakeRows) ColumnTypes() ([]*sql.ColumnType, error) { return nil, nil }
func (r *fakeRows) Columns() ([]string, error)             { return r.columns, nil }
func (r *fakeRows) Err() error                             { return nil }
func (r *fakeRows) NextResultSet() bool                    { return false }

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	for i, v := range r.data[r.i-1] {
		*dest[i].(*any) = v
	}
	return nil
}

func TestQueryCache_CollapsesConcurrentMisses(t *testing.T) {
	drv := &blockingDriver{release: make(chan struct{})}
	qc := NewQueryCache(drv, NewMemoryCache())

	const n = 8
	var (
		wg      sync.WaitGroup
		results = make([]*ResultSet, n)
		errs    = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = qc.Query(context.Background(), "SELECT n", nil)
		}()
	}
	// Give all callers time to join the in-flight query.
	time.Sleep(50 * time.Millisecond)
	close(drv.release)
	wg.Wait()

	assert.Equal(t, int32(1), drv.calls.Load())
	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, [][]any{{int64(42)}}, results[i].Rows)
	}
}

func TestQueryCache_CallerContexts(t *testing.T) {
	drv := &blockingDriver{release: make(chan struct{})}
	qc := NewQueryCache(drv, NewMemoryCache())

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	var (
		wg         sync.WaitGroup
		errA, errB error
		rsB        *ResultSet
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = qc.Query(ctxA, "SELECT n", nil)
	}()
	require.Eventually(t, func() bool { return drv.calls.Load() == 1 }, time.Second, time.Millisecond)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rsB, errB = qc.Query(context.Background(), "SELECT n", nil)
	}()
	// Let B join the in-flight query before A gives up.
	time.Sleep(50 * time.Millisecond)
	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(drv.release)
	wg.Wait()

	assert.ErrorIs(t, errA, context.Canceled)
	require.NoError(t, errB)
	assert.Equal(t, [][]any{{int64(42)}}, rsB.Rows)
	assert.Equal(t, int32(1), drv.calls.Load())
}

func TestQueryCache_CorruptEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	cache := NewMemoryCache()
	qc := NewQueryCache(OpenDB(dialect.PostgresDialect, db), cache)
	key, err := qc.Key("SELECT 1", nil)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, key, []byte{0xc1}, 0))

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))
	rs, err := qc.Query(ctx, "SELECT 1", nil)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}}, rs.Rows)
	require.NoError(t, mock.ExpectationsWereMet())

	// The entry was replaced by the fresh result.
	rs, err = qc.Query(ctx, "SELECT 1", nil)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}}, rs.Rows)
}
