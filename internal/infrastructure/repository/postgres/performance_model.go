package postgres

import (
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/performance"
)

type performanceTableModel struct {
	MatchID             string    `db:"match_id"`
	TournamentID        string    `db:"tournament_id"`
	PlayerID            string    `db:"player_id"`
	PlayerName          string    `db:"player_name"`
	BattingRuns         int       `db:"batting_runs"`
	BattingBallsFaced   int       `db:"batting_balls_faced"`
	BattingSixes        int       `db:"batting_sixes"`
	BattingStrikeRate   float64   `db:"batting_strike_rate"`
	DismissalText       string    `db:"dismissal_text"`
	BowlingOvers        float64   `db:"bowling_overs"`
	BowlingWickets      int       `db:"bowling_wickets"`
	BowlingRunsConceded int       `db:"bowling_runs_conceded"`
	BowlingMaidens      int       `db:"bowling_maidens"`
	BowlingNoBallsWides int       `db:"bowling_no_balls_wides"`
	BowlingEconomy      float64   `db:"bowling_economy"`
	FieldingCatches     int       `db:"fielding_catches"`
	FieldingRunOuts     int       `db:"fielding_run_outs"`
	FieldingStumpings   int       `db:"fielding_stumpings"`
	PlayerOfTheMatch    bool      `db:"player_of_the_match"`
	HatTricks           int       `db:"hat_tricks"`
	MatchStatus         string    `db:"match_status"`
	PointsAllocated     bool      `db:"points_allocated"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func performanceToDomain(row performanceTableModel) performance.Record {
	return performance.Record{
		MatchID:             row.MatchID,
		TournamentID:        row.TournamentID,
		PlayerID:            row.PlayerID,
		PlayerName:          row.PlayerName,
		BattingRuns:         row.BattingRuns,
		BattingBallsFaced:   row.BattingBallsFaced,
		BattingSixes:        row.BattingSixes,
		BattingStrikeRate:   row.BattingStrikeRate,
		DismissalText:       row.DismissalText,
		BowlingOvers:        row.BowlingOvers,
		BowlingWickets:      row.BowlingWickets,
		BowlingRunsConceded: row.BowlingRunsConceded,
		BowlingMaidens:      row.BowlingMaidens,
		BowlingNoBallsWides: row.BowlingNoBallsWides,
		BowlingEconomy:      row.BowlingEconomy,
		FieldingCatches:     row.FieldingCatches,
		FieldingRunOuts:     row.FieldingRunOuts,
		FieldingStumpings:   row.FieldingStumpings,
		PlayerOfTheMatch:    row.PlayerOfTheMatch,
		HatTricks:           row.HatTricks,
		MatchStatus:         row.MatchStatus,
		PointsAllocated:     row.PointsAllocated,
		UpdatedAt:           row.UpdatedAt,
	}
}

func performanceInsertFromDomain(record performance.Record) performanceInsertModel {
	return performanceInsertModel{
		MatchID:             record.MatchID,
		TournamentID:        record.TournamentID,
		PlayerID:            record.PlayerID,
		PlayerName:          record.PlayerName,
		BattingRuns:         record.BattingRuns,
		BattingBallsFaced:   record.BattingBallsFaced,
		BattingSixes:        record.BattingSixes,
		BattingStrikeRate:   record.BattingStrikeRate,
		DismissalText:       record.DismissalText,
		BowlingOvers:        record.BowlingOvers,
		BowlingWickets:      record.BowlingWickets,
		BowlingRunsConceded: record.BowlingRunsConceded,
		BowlingMaidens:      record.BowlingMaidens,
		BowlingNoBallsWides: record.BowlingNoBallsWides,
		BowlingEconomy:      record.BowlingEconomy,
		FieldingCatches:     record.FieldingCatches,
		FieldingRunOuts:     record.FieldingRunOuts,
		FieldingStumpings:   record.FieldingStumpings,
		PlayerOfTheMatch:    record.PlayerOfTheMatch,
		HatTricks:           record.HatTricks,
		MatchStatus:         record.MatchStatus,
		UpdatedAt:           record.UpdatedAt,
	}
}

// points_allocated is intentionally absent: upserts from capture must never
// touch the allocation flag.
type performanceInsertModel struct {
	MatchID             string    `db:"match_id"`
	TournamentID        string    `db:"tournament_id"`
	PlayerID            string    `db:"player_id"`
	PlayerName          string    `db:"player_name"`
	BattingRuns         int       `db:"batting_runs"`
	BattingBallsFaced   int       `db:"batting_balls_faced"`
	BattingSixes        int       `db:"batting_sixes"`
	BattingStrikeRate   float64   `db:"batting_strike_rate"`
	DismissalText       string    `db:"dismissal_text"`
	BowlingOvers        float64   `db:"bowling_overs"`
	BowlingWickets      int       `db:"bowling_wickets"`
	BowlingRunsConceded int       `db:"bowling_runs_conceded"`
	BowlingMaidens      int       `db:"bowling_maidens"`
	BowlingNoBallsWides int       `db:"bowling_no_balls_wides"`
	BowlingEconomy      float64   `db:"bowling_economy"`
	FieldingCatches     int       `db:"fielding_catches"`
	FieldingRunOuts     int       `db:"fielding_run_outs"`
	FieldingStumpings   int       `db:"fielding_stumpings"`
	PlayerOfTheMatch    bool      `db:"player_of_the_match"`
	HatTricks           int       `db:"hat_tricks"`
	MatchStatus         string    `db:"match_status"`
	UpdatedAt           time.Time `db:"updated_at"`
}
