package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wicketpool/points-pipeline/internal/domain/score"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

type ScoreRepository struct {
	db *sqlx.DB
}

func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func (r *ScoreRepository) Upsert(ctx context.Context, record score.Record) error {
	insertModel := scoreInsertModel{
		MatchID:        record.MatchID,
		PlayerID:       record.PlayerID,
		Generation:     string(record.Generation),
		BattingPoints:  record.BattingPoints,
		BowlingPoints:  record.BowlingPoints,
		FieldingPoints: record.FieldingPoints,
		BonusPoints:    record.BonusPoints,
		TotalPoints:    record.TotalPoints,
		ComputedAt:     record.ComputedAt,
	}
	query, args, err := qb.InsertModel("score_records", insertModel, `ON CONFLICT (match_id, player_id, generation)
DO UPDATE SET
    batting_points = EXCLUDED.batting_points,
    bowling_points = EXCLUDED.bowling_points,
    fielding_points = EXCLUDED.fielding_points,
    bonus_points = EXCLUDED.bonus_points,
    total_points = EXCLUDED.total_points,
    computed_at = EXCLUDED.computed_at`)
	if err != nil {
		return fmt.Errorf("build upsert score query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert score match=%s player=%s generation=%s: %w", record.MatchID, record.PlayerID, record.Generation, err)
	}
	return nil
}

func (r *ScoreRepository) GetFinal(ctx context.Context, matchID, playerID string) (score.Record, bool, error) {
	query, args, err := qb.Select("*").
		From("score_records").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("player_id", playerID),
			qb.Eq("generation", string(score.GenerationFinal)),
		).
		ToSQL()
	if err != nil {
		return score.Record{}, false, fmt.Errorf("build get final score query: %w", err)
	}

	var row scoreTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return score.Record{}, false, nil
		}
		return score.Record{}, false, fmt.Errorf("get final score: %w", err)
	}

	return score.Record{
		MatchID:        row.MatchID,
		PlayerID:       row.PlayerID,
		Generation:     score.Generation(row.Generation),
		BattingPoints:  row.BattingPoints,
		BowlingPoints:  row.BowlingPoints,
		FieldingPoints: row.FieldingPoints,
		BonusPoints:    row.BonusPoints,
		TotalPoints:    row.TotalPoints,
		ComputedAt:     row.ComputedAt,
	}, true, nil
}

func (r *ScoreRepository) DeleteLiveByMatch(ctx context.Context, matchID string) error {
	query := `DELETE FROM score_records WHERE match_id = $1 AND generation = $2`
	if _, err := r.db.ExecContext(ctx, query, matchID, string(score.GenerationLive)); err != nil {
		return fmt.Errorf("delete live scores: %w", err)
	}
	return nil
}

func (r *ScoreRepository) UpdateFinalBonus(ctx context.Context, matchID, playerID string, bonusPoints, totalPoints int) error {
	query, args, err := qb.Update("score_records").
		Set("bonus_points", bonusPoints).
		Set("total_points", totalPoints).
		SetExpr("computed_at", "NOW()").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("player_id", playerID),
			qb.Eq("generation", string(score.GenerationFinal)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update final bonus query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update final bonus: %w", err)
	}
	return nil
}

type scoreTableModel struct {
	MatchID        string    `db:"match_id"`
	PlayerID       string    `db:"player_id"`
	Generation     string    `db:"generation"`
	BattingPoints  int       `db:"batting_points"`
	BowlingPoints  int       `db:"bowling_points"`
	FieldingPoints int       `db:"fielding_points"`
	BonusPoints    int       `db:"bonus_points"`
	TotalPoints    int       `db:"total_points"`
	ComputedAt     time.Time `db:"computed_at"`
}

type scoreInsertModel struct {
	MatchID        string    `db:"match_id"`
	PlayerID       string    `db:"player_id"`
	Generation     string    `db:"generation"`
	BattingPoints  int       `db:"batting_points"`
	BowlingPoints  int       `db:"bowling_points"`
	FieldingPoints int       `db:"fielding_points"`
	BonusPoints    int       `db:"bonus_points"`
	TotalPoints    int       `db:"total_points"`
	ComputedAt     time.Time `db:"computed_at"`
}
