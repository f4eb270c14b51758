package player

import "context"

// Repository describes player persistence needs from use cases.
type Repository interface {
	GetByExternalID(ctx context.Context, tournamentID, provider, externalID string) (Player, bool, error)
	Upsert(ctx context.Context, item Player) error
}
