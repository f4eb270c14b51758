package points

import (
	"strings"

	"github.com/wicketpool/points-pipeline/internal/domain/performance"
)

const (
	fastStrikeRate     = 150.0
	slowStrikeRate     = 90.0
	minBallsForRate    = 10
	lowEconomyRate     = 7.0
	highEconomyRate    = 9.0
	minOversForEconomy = 2.0

	milestoneDoubleCentury = 200
	milestoneCentury       = 100
	milestoneFifty         = 50
	milestoneThirty        = 30

	haulFiveWickets  = 5
	haulThreeWickets = 3
)

// Breakdown holds the four category scores plus their sum.
type Breakdown struct {
	Batting  int
	Bowling  int
	Fielding int
	Bonus    int
	Total    int
}

// Score computes the fantasy breakdown for one performance row. It is pure:
// identical inputs always yield identical output.
func Score(perf performance.Record, cfg Config) Breakdown {
	out := Breakdown{
		Batting:  battingPoints(perf, cfg),
		Bowling:  bowlingPoints(perf, cfg),
		Fielding: fieldingPoints(perf, cfg),
		Bonus:    BonusPoints(perf.PlayerOfTheMatch, perf.HatTricks, cfg),
	}
	out.Total = out.Batting + out.Bowling + out.Fielding + out.Bonus
	return out
}

// BonusPoints is exposed separately because late bonus corrections recompute
// only this category against an already committed final score.
func BonusPoints(playerOfTheMatch bool, hatTricks int, cfg Config) int {
	total := 0
	if playerOfTheMatch {
		total += cfg.BonusPlayerOfMatch
	}
	if hatTricks > 0 {
		total += hatTricks * cfg.BonusHatTrick
	}
	return total
}

func battingPoints(perf performance.Record, cfg Config) int {
	total := perf.BattingRuns*cfg.BattingRun + perf.BattingSixes*cfg.BattingSix

	if isDuck(perf) {
		total += cfg.BattingDuck
	}

	if perf.BattingBallsFaced >= minBallsForRate {
		switch {
		case perf.BattingStrikeRate >= fastStrikeRate:
			total += cfg.BattingFastRate
		case perf.BattingStrikeRate <= slowStrikeRate:
			total += cfg.BattingSlowRate
		}
	}

	// Highest satisfied milestone only, never stacked.
	switch {
	case perf.BattingRuns >= milestoneDoubleCentury:
		total += cfg.Batting200
	case perf.BattingRuns >= milestoneCentury:
		total += cfg.Batting100
	case perf.BattingRuns >= milestoneFifty:
		total += cfg.Batting50
	case perf.BattingRuns >= milestoneThirty:
		total += cfg.Batting30
	}

	return total
}

func bowlingPoints(perf performance.Record, cfg Config) int {
	total := perf.BowlingWickets*cfg.BowlingWicket +
		perf.BowlingMaidens*cfg.BowlingMaiden +
		perf.BowlingNoBallsWides*cfg.BowlingNoBallWide

	if perf.BowlingOvers >= minOversForEconomy {
		switch {
		case perf.BowlingEconomy <= lowEconomyRate:
			total += cfg.BowlingLowEconomy
		case perf.BowlingEconomy >= highEconomyRate:
			total += cfg.BowlingHighEconomy
		}
	}

	switch {
	case perf.BowlingWickets >= haulFiveWickets:
		total += cfg.BowlingFiveWickets
	case perf.BowlingWickets >= haulThreeWickets:
		total += cfg.BowlingThreeWickets
	}

	return total
}

func fieldingPoints(perf performance.Record, cfg Config) int {
	return perf.FieldingCatches*cfg.FieldingCatch +
		perf.FieldingRunOuts*cfg.FieldingRunOut +
		perf.FieldingStumpings*cfg.FieldingStumping
}

// isDuck treats a batter as out for zero only when a dismissal is recorded
// and it is an actual dismissal: "not out" and "retired hurt" never count.
func isDuck(perf performance.Record) bool {
	if perf.BattingRuns != 0 {
		return false
	}
	dismissal := strings.ToLower(strings.TrimSpace(perf.DismissalText))
	if dismissal == "" {
		return false
	}
	return dismissal != "not out" && dismissal != "retired hurt"
}
