package match

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Match, bool, error)
	// ListTracked returns matches the lifecycle poller still cares about:
	// everything not yet captured.
	ListTracked(ctx context.Context) ([]Match, error)
	// ListForCapture returns matches past not_started that have not been
	// fully captured yet.
	ListForCapture(ctx context.Context) ([]Match, error)
	// ListForAllocation returns completed matches whose points_status has
	// not reached complete.
	ListForAllocation(ctx context.Context) ([]Match, error)
	ListLive(ctx context.Context) ([]Match, error)

	// Create inserts a newly discovered match. It reports false without
	// error when the (provider, external_id) pair already exists, so
	// re-discovering an already-captured fixture is harmless.
	Create(ctx context.Context, item Match) (bool, error)
	UpdateState(ctx context.Context, id string, status Status, statusText string, currentlyLive bool) error
	SetPointsStatus(ctx context.Context, id string, status PointsStatus) error
	MarkCaptured(ctx context.Context, id string) error

	// Claim takes the per-match processing lease. It succeeds when the lease
	// is free, already held by owner, or expired past ttl.
	Claim(ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id, owner string) error
}
