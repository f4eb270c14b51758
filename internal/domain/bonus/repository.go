package bonus

import "context"

type Repository interface {
	// SeedPlaceholder creates the empty pending entry for a match. At most
	// one uncaptured entry per (match, player) exists, the placeholder
	// included; re-seeding is a no-op.
	SeedPlaceholder(ctx context.Context, matchID string) error
	// ListPending returns uncaptured corrections that already name a player.
	ListPending(ctx context.Context) ([]Correction, error)
	MarkCaptured(ctx context.Context, id int64) error
}
