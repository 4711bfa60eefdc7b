package integration

import (
	"context"
	"time"
)

// RunLockName is the lock key guarding sync runs
const RunLockName = "commerce-sync"

// RunLock is a run-level mutex. Acquire fails with ErrSyncAlreadyInProgress
// while another holder's lease is live. Leases expire after ttl so a crashed
// run cannot block the next one forever.
type RunLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, name, token string) error
}

// RunRepository records run history
type RunRepository interface {
	Start(ctx context.Context, summary *RunSummary) error
	Finish(ctx context.Context, summary *RunSummary) error
	ListRecent(ctx context.Context, limit int) ([]RunSummary, error)
}
