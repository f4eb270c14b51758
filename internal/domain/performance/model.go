package performance

import "time"

// Record is the canonical per-player-per-match performance row. It is
// accumulated across sync passes: batting, bowling, and fielding figures may
// arrive at different times and each pass only touches the fields it carries.
type Record struct {
	MatchID      string
	TournamentID string
	PlayerID     string
	PlayerName   string

	BattingRuns       int
	BattingBallsFaced int
	BattingSixes      int
	BattingStrikeRate float64
	DismissalText     string

	BowlingOvers        float64
	BowlingWickets      int
	BowlingRunsConceded int
	BowlingMaidens      int
	BowlingNoBallsWides int
	BowlingEconomy      float64

	FieldingCatches   int
	FieldingRunOuts   int
	FieldingStumpings int

	PlayerOfTheMatch bool
	HatTricks        int

	MatchStatus     string
	PointsAllocated bool
	UpdatedAt       time.Time
}
