package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"vodaudit/internal/logging"
)

const lockRetryDelay = 500 * time.Millisecond

// acquireProbeLock serializes probe runs on this host so concurrent
// invocations do not exceed a provider's connection limit. It waits for the
// holder to finish unless ctx ends first.
func acquireProbeLock(ctx context.Context, path string, logger *slog.Logger) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire probe lock: %w", err)
	}
	if !ok {
		logger.Info("waiting for another probe run to finish", logging.String("lock", path))
		ok, err = lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("acquire probe lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("acquire probe lock: %s is held by another run", path)
		}
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release probe lock", logging.String("lock", path), logging.Error(err))
		}
	}, nil
}
