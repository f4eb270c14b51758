package score

import "context"

type Repository interface {
	Upsert(ctx context.Context, record Record) error
	GetFinal(ctx context.Context, matchID, playerID string) (Record, bool, error)
	DeleteLiveByMatch(ctx context.Context, matchID string) error
	UpdateFinalBonus(ctx context.Context, matchID, playerID string, bonusPoints, totalPoints int) error
}
