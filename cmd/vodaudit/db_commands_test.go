package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"vodaudit/internal/audit"
	"vodaudit/internal/services"
	"vodaudit/internal/testsupport"
)

type seededCLI struct {
	env      *cliTestEnv
	ep1      int64
	ep1UUID  uuid.UUID
	orphanID uuid.UUID
}

func seedCLI(t *testing.T, opts ...testsupport.ConfigOption) *seededCLI {
	t.Helper()
	env := setupCLITestEnv(t, opts...)
	fx := testsupport.NewFixture(t, env.cfg)

	providerA := fx.Account(testsupport.AccountRow{Name: "Provider A", ServerURL: "http://a.example", Username: "ua", Password: "pa"})
	providerB := fx.Account(testsupport.AccountRow{Name: "Provider B", Type: "STD"})
	series := fx.Series("MasterChef Junior")
	ep1, ep1UUID := fx.Episode(series, "Episode 1", 9, 1)
	ep2, _ := fx.Episode(series, "Episode 2", 9, 2)
	ep2dup, _ := fx.Episode(series, "Episode 2", 9, 2)
	_, orphan := fx.Episode(series, "Episode 3", 9, 3)

	fx.Relation(providerA, ep1, "78020", "mkv", `{"info":{"title":"S09E01 1080p"}}`)
	fx.Relation(providerA, ep1, "78021", "mp4", "")
	fx.Relation(providerB, ep1, "91000", "mp4", "")
	fx.Relation(providerA, ep2, "78025", "mp4", "")
	fx.Relation(providerA, ep2dup, "78026", "mp4", "")

	env.writeConfig(t)
	return &seededCLI{env: env, ep1: ep1, ep1UUID: ep1UUID, orphanID: orphan}
}

func TestDBCommandsRequireDatabase(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeConfig(t)

	_, _, err := runCLI(t, []string{"db", "duplicate-episodes"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected missing dsn to fail")
	}
	if code := services.ExitCode(err); code != services.ExitConfiguration {
		t.Fatalf("expected configuration exit code, got %d (%v)", code, err)
	}
}

func TestDuplicateEpisodesCommand(t *testing.T) {
	s := seedCLI(t)
	metricsPath := filepath.Join(s.env.baseDir, "textfile", "vodaudit.prom")
	if err := os.MkdirAll(filepath.Dir(metricsPath), 0o755); err != nil {
		t.Fatalf("mkdir metrics dir: %v", err)
	}

	out, _, err := runCLI(t, []string{"db", "duplicate-episodes", "--metrics-file", metricsPath}, s.env.configPath, "")
	if err != nil {
		t.Fatalf("duplicate-episodes: %v", err)
	}
	requireContains(t, out, "Found 1 sets of duplicate episodes!")
	requireContains(t, out, "MasterChef Junior")
	requireContains(t, out, "S9E2")
	requireContains(t, out, "Total duplicate sets: 1")

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	requireContains(t, string(data), "vodaudit_duplicate_episode_sets 1")
	requireContains(t, string(data), `vodaudit_last_run_timestamp_seconds{check="duplicate_episodes"}`)
}

func TestDuplicateStreamsCommand(t *testing.T) {
	s := seedCLI(t)

	out, _, err := runCLI(t, []string{"db", "duplicate-streams"}, s.env.configPath, "")
	if err != nil {
		t.Fatalf("duplicate-streams: %v", err)
	}
	requireContains(t, out, "Checking Account: Provider A")
	requireContains(t, out, "Found 1 episodes with multiple streams.")
	requireContains(t, out, "WARNING: Episode 'Episode 1' (S9E1) has 2 streams:")
	requireContains(t, out, "Title in metadata: S09E01 1080p")
	requireContains(t, out, "Title in metadata: N/A")
	requireContains(t, out, "Checking Account: Provider B")

	out, _, err = runCLI(t, []string{"db", "duplicate-streams", "--json"}, s.env.configPath, "")
	if err != nil {
		t.Fatalf("duplicate-streams --json: %v", err)
	}
	var accounts []audit.AccountDuplicates
	if err := json.Unmarshal([]byte(out), &accounts); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Episodes != 1 {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

func TestGroupingCheckCommand(t *testing.T) {
	s := seedCLI(t)

	out, _, err := runCLI(t, []string{"db", "grouping-check"}, s.env.configPath, "")
	if err != nil {
		t.Fatalf("grouping-check: %v", err)
	}
	requireContains(t, out, "Active Accounts: Provider A, Provider B")
	requireContains(t, out, "OK")
	requireNotContains(t, out, "Mismatch detected")
}

func TestStreamsCommand(t *testing.T) {
	s := seedCLI(t)

	out, _, err := runCLI(t, []string{"db", "streams", "78020", "99999"}, s.env.configPath, "")
	if err != nil {
		t.Fatalf("streams: %v", err)
	}
	requireContains(t, out, "✅ Found Stream ID: 78020")
	requireContains(t, out, "Episode: Episode 1 (S9E1)")
	requireContains(t, out, "Provider: Provider A")
	requireContains(t, out, "❌ Missing Stream IDs: 99999")

	out, _, err = runCLI(t, []string{"db", "streams", "424242"}, s.env.configPath, "")
	if err != nil {
		t.Fatalf("streams: %v", err)
	}
	requireContains(t, out, "None of the stream IDs are in the database")
}

func TestDBEpisodeCommand(t *testing.T) {
	s := seedCLI(t)

	out, _, err := runCLI(t, []string{"db", "episode", strconv.FormatInt(s.ep1, 10)}, s.env.configPath, "")
	if err != nil {
		t.Fatalf("db episode: %v", err)
	}
	requireContains(t, out, "✅ Found Episode: Episode 1")
	requireContains(t, out, "Season: 9")
	requireContains(t, out, "Found 3 stream(s):")
	requireContains(t, out, "Stream ID: '78020' (Length: 5)")

	out, _, err = runCLI(t, []string{"db", "episode", "9999"}, s.env.configPath, "")
	if code := services.ExitCode(err); code != services.ExitNotFound {
		t.Fatalf("expected not found exit code, got %d (%v)", code, err)
	}
	requireContains(t, out, "Episode 9999 NOT FOUND")

	_, _, err = runCLI(t, []string{"db", "episode", "abc"}, s.env.configPath, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDedupCheckCommand(t *testing.T) {
	s := seedCLI(t)

	out, _, err := runCLI(t, []string{"db", "dedup-check", "--series", "masterchef", "--season", "9", "--episode", "1", "--stream-id", "78020,78021"}, s.env.configPath, "")
	if err != nil {
		t.Fatalf("dedup-check: %v", err)
	}
	requireContains(t, out, "Using Series: MasterChef Junior")
	requireContains(t, out, "ALL CHECKS PASSED")

	out, _, err = runCLI(t, []string{"db", "dedup-check", "--series", "MasterChef", "--season", "9", "--episode", "2", "--stream-id", "78025", "--stream-id", "78026"}, s.env.configPath, "")
	if !errors.Is(err, audit.ErrDedupFailed) {
		t.Fatalf("expected dedup failure, got %v", err)
	}
	if code := services.ExitCode(err); code != services.ExitFailure {
		t.Fatalf("expected failure exit code, got %d", code)
	}
	requireContains(t, out, "2 Episode rows for S9E2 (expected 1)")
	requireContains(t, out, "SOME CHECKS FAILED")

	if _, _, err := runCLI(t, []string{"db", "dedup-check", "--series", "MasterChef"}, s.env.configPath, ""); err == nil {
		t.Fatal("expected --stream-id to be required")
	}
}
