package vodstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"vodaudit/internal/config"
	"vodaudit/internal/services"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store provides read-only access to the application's VOD tables.
type Store struct {
	db           *sql.DB
	driver       string
	queryTimeout time.Duration
}

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.Database) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, services.Wrap(services.ErrConfiguration, "vodstore", "open", "database dsn is empty", nil)
	}
	connectTimeout := cfg.ConnectTimeout()

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres, "":
		db, err = openPostgres(dsn, connectTimeout)
	case DriverSQLite:
		db, err = sql.Open("sqlite", sqliteReadOnlyDSN(dsn))
	default:
		return nil, services.Wrap(services.ErrConfiguration, "vodstore", "open", fmt.Sprintf("unsupported driver %q", cfg.Driver), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "vodstore", "open", "", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	store := &Store{
		db:           db,
		driver:       driver,
		queryTimeout: cfg.QueryTimeout(),
	}

	pingCtx := ctx
	if connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrTransient, "vodstore", "connect", "", err)
	}
	return store, nil
}

func openPostgres(dsn string, connectTimeout time.Duration) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if connectTimeout > 0 {
		connConfig.ConnectTimeout = connectTimeout
	}
	if connConfig.RuntimeParams == nil {
		connConfig.RuntimeParams = map[string]string{}
	}
	connConfig.RuntimeParams["default_transaction_read_only"] = "on"
	connConfig.RuntimeParams["application_name"] = "vodaudit"
	return stdlib.OpenDB(*connConfig), nil
}

// sqliteReadOnlyDSN adds the pragmas modernc.org/sqlite applies per connection.
func sqliteReadOnlyDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=query_only(1)&_pragma=busy_timeout(5000)"
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver reports the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// queryAll runs a SELECT and scans every row. Busy SQLite databases are
// retried with backoff; each attempt starts from an empty result.
func queryAll[T any](ctx context.Context, s *Store, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	query = rebind(s.driver, query)
	var out []T
	err := retryOnBusy(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				return err
			}
			out = append(out, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) queryRow(ctx context.Context, dest []any, query string, args ...any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	query = rebind(s.driver, query)
	return retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL. Placeholders inside
// single-quoted literals are left alone.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// nullableTime scans timestamps that arrive as time.Time (PostgreSQL) or as
// text (SQLite).
type nullableTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (t *nullableTime) Scan(value any) error {
	t.Time, t.Valid = time.Time{}, false
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", value)
	}
}

func (t *nullableTime) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unrecognized format %q", raw)
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}
