package rawdata

import "context"

type Repository interface {
	Upsert(ctx context.Context, item Payload) error
	GetByMatch(ctx context.Context, matchID string) (Payload, bool, error)
}
