package cache

import (
	"context"

	"github.com/wicketpool/points-pipeline/internal/domain/points"
	basecache "github.com/wicketpool/points-pipeline/internal/platform/cache"
)

// PointsConfigRepository wraps the durable weight-table store with a TTL
// cache. Weight tables change rarely but are read once per match per stage,
// so a short TTL trims most of the lookups without risking a stale config
// surviving long.
type PointsConfigRepository struct {
	next  points.Repository
	cache *basecache.Store
}

func NewPointsConfigRepository(next points.Repository, cache *basecache.Store) *PointsConfigRepository {
	return &PointsConfigRepository{next: next, cache: cache}
}

func (r *PointsConfigRepository) GetByTournament(ctx context.Context, tournamentID string) (points.Config, bool, error) {
	key := "points-config:tournament:" + tournamentID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		cfg, exists, err := r.next.GetByTournament(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		return cachedPointsConfig{value: cfg, exists: exists}, nil
	})
	if err != nil {
		return points.Config{}, false, err
	}

	cached, _ := v.(cachedPointsConfig)
	return cached.value, cached.exists, nil
}

type cachedPointsConfig struct {
	value  points.Config
	exists bool
}
