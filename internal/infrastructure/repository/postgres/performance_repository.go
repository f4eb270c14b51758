package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/wicketpool/points-pipeline/internal/domain/performance"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

type PerformanceRepository struct {
	db *sqlx.DB
}

func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

func (r *PerformanceRepository) Get(ctx context.Context, matchID, playerID string) (performance.Record, bool, error) {
	query, args, err := qb.Select("*").
		From("match_performances").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("player_id", playerID),
		).
		ToSQL()
	if err != nil {
		return performance.Record{}, false, fmt.Errorf("build get performance query: %w", err)
	}

	var row performanceTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return performance.Record{}, false, nil
		}
		return performance.Record{}, false, fmt.Errorf("get performance: %w", err)
	}
	return performanceToDomain(row), true, nil
}

func (r *PerformanceRepository) ListByMatch(ctx context.Context, matchID string) ([]performance.Record, error) {
	query, args, err := qb.Select("*").
		From("match_performances").
		Where(qb.Eq("match_id", matchID)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list performances query: %w", err)
	}

	var rows []performanceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list performances: %w", err)
	}

	out := make([]performance.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, performanceToDomain(row))
	}
	return out, nil
}

func (r *PerformanceRepository) Upsert(ctx context.Context, record performance.Record) error {
	insertModel := performanceInsertFromDomain(record)
	query, args, err := qb.InsertModel("match_performances", insertModel, `ON CONFLICT (match_id, player_id)
DO UPDATE SET
    player_name = EXCLUDED.player_name,
    batting_runs = EXCLUDED.batting_runs,
    batting_balls_faced = EXCLUDED.batting_balls_faced,
    batting_sixes = EXCLUDED.batting_sixes,
    batting_strike_rate = EXCLUDED.batting_strike_rate,
    dismissal_text = EXCLUDED.dismissal_text,
    bowling_overs = EXCLUDED.bowling_overs,
    bowling_wickets = EXCLUDED.bowling_wickets,
    bowling_runs_conceded = EXCLUDED.bowling_runs_conceded,
    bowling_maidens = EXCLUDED.bowling_maidens,
    bowling_no_balls_wides = EXCLUDED.bowling_no_balls_wides,
    bowling_economy = EXCLUDED.bowling_economy,
    fielding_catches = EXCLUDED.fielding_catches,
    fielding_run_outs = EXCLUDED.fielding_run_outs,
    fielding_stumpings = EXCLUDED.fielding_stumpings,
    player_of_the_match = EXCLUDED.player_of_the_match,
    hat_tricks = EXCLUDED.hat_tricks,
    match_status = EXCLUDED.match_status,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert performance query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert performance match=%s player=%s: %w", record.MatchID, record.PlayerID, err)
	}
	return nil
}

func (r *PerformanceRepository) MarkAllocated(ctx context.Context, matchID, playerID string) error {
	query, args, err := qb.Update("match_performances").
		Set("points_allocated", true).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("player_id", playerID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark performance allocated query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark performance allocated: %w", err)
	}
	return nil
}

func (r *PerformanceRepository) SetBonusAwards(ctx context.Context, matchID, playerID string, playerOfTheMatch bool, hatTricks int) error {
	query, args, err := qb.Update("match_performances").
		Set("player_of_the_match", playerOfTheMatch).
		Set("hat_tricks", hatTricks).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("player_id", playerID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set bonus awards query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set bonus awards: %w", err)
	}
	return nil
}
