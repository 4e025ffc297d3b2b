package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"vodaudit/internal/deps"
	"vodaudit/internal/services"
	"vodaudit/internal/testsupport"
)

func TestConfigInitCreatesSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "nested", "vodaudit.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected existing file to be refused")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Database.DSN = "postgres://reader@db/dispatcharr"
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Database driver: postgres")
	requireContains(t, out, "Database DSN set: yes")
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[compare]\nbitrate_tolerance = 4.0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if code := services.ExitCode(err); code != services.ExitConfiguration {
		t.Fatalf("expected configuration exit code, got %d (%v)", code, err)
	}
}

func TestDepsCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries("ffprobe-stub"))
	env.cfg.FFprobe.Binary = "ffprobe-stub"
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"deps"}, env.configPath, "")
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "FFprobe")

	out, _, err = runCLI(t, []string{"deps", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("deps --json: %v", err)
	}
	var statuses []deps.Status
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(statuses) != 1 || !statuses[0].Available {
		t.Fatalf("unexpected statuses: %+v", statuses)
	}
}

func TestDepsCommandReportsMissingBinary(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.FFprobe.Binary = "vodaudit-missing-ffprobe"
	env.writeConfig(t)

	out, _, err := runCLI(t, []string{"deps"}, env.configPath, "")
	if code := services.ExitCode(err); code != services.ExitExternalTool {
		t.Fatalf("expected external tool exit code, got %d (%v)", code, err)
	}
	requireContains(t, out, `binary "vodaudit-missing-ffprobe" not found`)
}
