package testsupport

import (
	"context"
	"database/sql"
	_ "embed"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"vodaudit/internal/config"
	"vodaudit/internal/vodstore"
)

//go:embed fixture_schema.sql
var fixtureSchema string

// Fixture is a writable SQLite database shaped like the application tables.
// The store under test opens the same file read-only.
type Fixture struct {
	t    testing.TB
	db   *sql.DB
	Path string
}

// AccountRow describes an m3u_m3uaccount row to insert.
type AccountRow struct {
	Name      string
	Type      string
	Inactive  bool
	ServerURL string
	Username  string
	Password  string
	UserAgent string
}

// NewFixture creates the fixture database and points cfg at it.
func NewFixture(t testing.TB, cfg *config.Config) *Fixture {
	t.Helper()

	path := filepath.Join(BaseDir(cfg), "dispatcharr.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		t.Fatalf("fixture pragma: %v", err)
	}
	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}

	cfg.Database.Driver = vodstore.DriverSQLite
	cfg.Database.DSN = path
	return &Fixture{t: t, db: db, Path: path}
}

func (f *Fixture) insert(query string, args ...any) int64 {
	f.t.Helper()
	res, err := f.db.Exec(query, args...)
	if err != nil {
		f.t.Fatalf("fixture insert: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		f.t.Fatalf("fixture last insert id: %v", err)
	}
	return id
}

// Account inserts an account and returns its id.
func (f *Fixture) Account(row AccountRow) int64 {
	f.t.Helper()
	if row.Type == "" {
		row.Type = vodstore.AccountTypeXtream
	}
	var userAgentID any
	if row.UserAgent != "" {
		userAgentID = f.insert(`INSERT INTO core_useragent (name, user_agent) VALUES (?, ?)`, row.Name+" agent", row.UserAgent)
	}
	active := 1
	if row.Inactive {
		active = 0
	}
	return f.insert(`INSERT INTO m3u_m3uaccount (name, is_active, account_type, server_url, username, password, user_agent_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`, row.Name, active, row.Type, row.ServerURL, row.Username, row.Password, userAgentID)
}

// Series inserts a series and returns its id.
func (f *Fixture) Series(name string) int64 {
	f.t.Helper()
	return f.insert(`INSERT INTO vod_series (name) VALUES (?)`, name)
}

// Episode inserts an episode and returns its id and uuid.
func (f *Fixture) Episode(seriesID int64, name string, season, episode int64) (int64, uuid.UUID) {
	f.t.Helper()
	id := uuid.New()
	rowID := f.insert(`INSERT INTO vod_episode (uuid, name, series_id, season_number, episode_number) VALUES (?, ?, ?, ?, ?)`,
		id.String(), name, seriesID, season, episode)
	return rowID, id
}

// Relation attaches a provider stream to an episode and returns its id.
// customProperties is stored verbatim and may be empty.
func (f *Fixture) Relation(accountID, episodeID int64, streamID, container, customProperties string) int64 {
	f.t.Helper()
	var props any
	if customProperties != "" {
		props = customProperties
	}
	stamp := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)
	return f.insert(`INSERT INTO vod_m3uepisoderelation
(m3u_account_id, episode_id, stream_id, container_extension, custom_properties, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`, accountID, episodeID, streamID, container, props, stamp, stamp)
}

// MustOpenFixtureStore opens a read-only vodstore.Store on the configured
// database and registers cleanup.
func MustOpenFixtureStore(t testing.TB, cfg *config.Config) *vodstore.Store {
	t.Helper()

	store, err := vodstore.Open(context.Background(), cfg.Database)
	if err != nil {
		t.Fatalf("vodstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
