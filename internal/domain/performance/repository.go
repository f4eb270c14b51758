package performance

import "context"

type Repository interface {
	Get(ctx context.Context, matchID, playerID string) (Record, bool, error)
	ListByMatch(ctx context.Context, matchID string) ([]Record, error)
	Upsert(ctx context.Context, record Record) error
	MarkAllocated(ctx context.Context, matchID, playerID string) error
	SetBonusAwards(ctx context.Context, matchID, playerID string, playerOfTheMatch bool, hatTricks int) error
}
