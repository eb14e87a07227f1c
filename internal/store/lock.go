package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"IndicatorMaster/internal/model"
)

const lockRetry = 250 * time.Millisecond

// Lock takes the advisory lock guarding the master file across processes.
// Hold it from Load to Save so overlapping runs cannot drop each other's
// merges. It gives up when ctx is done.
func (s *Store) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.opts.Path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", model.ErrPersistenceFailure, err)
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("%w: lock %s: %w", model.ErrPersistenceFailure, s.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w: lock %s: held by another process", model.ErrPersistenceFailure, s.lock.Path())
	}
	return nil
}

// Unlock releases the advisory lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}
