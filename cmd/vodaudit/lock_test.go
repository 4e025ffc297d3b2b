package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"vodaudit/internal/logging"
)

func TestAcquireProbeLockWaitsForHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "probe.lock")
	logger := logging.NewNop()

	release, err := acquireProbeLock(context.Background(), path, logger)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := acquireProbeLock(ctx, path, logger); err == nil {
		t.Fatal("expected second acquire to fail while the lock is held")
	}

	release()
	again, err := acquireProbeLock(context.Background(), path, logger)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}
