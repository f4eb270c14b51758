package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/wicketpool/points-pipeline/internal/domain/points"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

type PointsConfigRepository struct {
	db *sqlx.DB
}

func NewPointsConfigRepository(db *sqlx.DB) *PointsConfigRepository {
	return &PointsConfigRepository{db: db}
}

func (r *PointsConfigRepository) GetByTournament(ctx context.Context, tournamentID string) (points.Config, bool, error) {
	query, args, err := qb.Select("*").
		From("points_configs").
		Where(qb.Eq("tournament_id", tournamentID)).
		ToSQL()
	if err != nil {
		return points.Config{}, false, fmt.Errorf("build get points config query: %w", err)
	}

	var row pointsConfigTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return points.Config{}, false, nil
		}
		return points.Config{}, false, fmt.Errorf("get points config: %w", err)
	}

	return points.Config{
		TournamentID:        row.TournamentID,
		BattingRun:          row.BattingRun,
		BattingSix:          row.BattingSix,
		BattingDuck:         row.BattingDuck,
		BattingFastRate:     row.BattingFastRate,
		BattingSlowRate:     row.BattingSlowRate,
		Batting30:           row.Batting30,
		Batting50:           row.Batting50,
		Batting100:          row.Batting100,
		Batting200:          row.Batting200,
		BowlingWicket:       row.BowlingWicket,
		BowlingMaiden:       row.BowlingMaiden,
		BowlingNoBallWide:   row.BowlingNoBallWide,
		BowlingLowEconomy:   row.BowlingLowEconomy,
		BowlingHighEconomy:  row.BowlingHighEconomy,
		BowlingThreeWickets: row.BowlingThreeWickets,
		BowlingFiveWickets:  row.BowlingFiveWickets,
		FieldingCatch:       row.FieldingCatch,
		FieldingRunOut:      row.FieldingRunOut,
		FieldingStumping:    row.FieldingStumping,
		BonusPlayerOfMatch:  row.BonusPlayerOfMatch,
		BonusHatTrick:       row.BonusHatTrick,
	}, true, nil
}

type pointsConfigTableModel struct {
	TournamentID        string `db:"tournament_id"`
	BattingRun          int    `db:"batting_run"`
	BattingSix          int    `db:"batting_six"`
	BattingDuck         int    `db:"batting_duck"`
	BattingFastRate     int    `db:"batting_fast_rate"`
	BattingSlowRate     int    `db:"batting_slow_rate"`
	Batting30           int    `db:"batting_30"`
	Batting50           int    `db:"batting_50"`
	Batting100          int    `db:"batting_100"`
	Batting200          int    `db:"batting_200"`
	BowlingWicket       int    `db:"bowling_wicket"`
	BowlingMaiden       int    `db:"bowling_maiden"`
	BowlingNoBallWide   int    `db:"bowling_no_ball_wide"`
	BowlingLowEconomy   int    `db:"bowling_low_economy"`
	BowlingHighEconomy  int    `db:"bowling_high_economy"`
	BowlingThreeWickets int    `db:"bowling_three_wickets"`
	BowlingFiveWickets  int    `db:"bowling_five_wickets"`
	FieldingCatch       int    `db:"fielding_catch"`
	FieldingRunOut      int    `db:"fielding_run_out"`
	FieldingStumping    int    `db:"fielding_stumping"`
	BonusPlayerOfMatch  int    `db:"bonus_player_of_match"`
	BonusHatTrick       int    `db:"bonus_hat_trick"`
}
