package points

import (
	"testing"

	"github.com/wicketpool/points-pipeline/internal/domain/performance"
)

func testConfig() Config {
	return Config{
		TournamentID:    "t1",
		BattingRun:      1,
		BattingSix:      5,
		BattingDuck:     -10,
		BattingFastRate: 35,
		BattingSlowRate: -15,
		Batting30:       10,
		Batting50:       25,
		Batting100:      60,
		Batting200:      150,

		BowlingWicket:       15,
		BowlingMaiden:       15,
		BowlingNoBallWide:   -2,
		BowlingLowEconomy:   25,
		BowlingHighEconomy:  -20,
		BowlingThreeWickets: 30,
		BowlingFiveWickets:  75,

		FieldingCatch:    10,
		FieldingRunOut:   12,
		FieldingStumping: 14,

		BonusPlayerOfMatch: 50,
		BonusHatTrick:      40,
	}
}

func TestScore_BattingWithFastRateAndFifty(t *testing.T) {
	t.Parallel()

	perf := performance.Record{
		BattingRuns:       55,
		BattingSixes:      2,
		BattingBallsFaced: 30,
		BattingStrikeRate: 183.3,
		DismissalText:     "c Smith b Khan",
	}

	got := Score(perf, testConfig())
	// runs 55 + sixes 10 + fifty 25 + fast rate 35
	if got.Batting != 125 {
		t.Fatalf("batting points mismatch: got=%d want=125", got.Batting)
	}
	if got.Total != got.Batting {
		t.Fatalf("total must equal batting for a batting-only row: got=%d", got.Total)
	}
}

func TestScore_BowlingFiveWicketHaulAndLowEconomy(t *testing.T) {
	t.Parallel()

	perf := performance.Record{
		BowlingOvers:   4,
		BowlingWickets: 5,
		BowlingMaidens: 1,
		BowlingEconomy: 6.0,
	}

	got := Score(perf, testConfig())
	// wickets 75 + maiden 15 + five-for 75 + low economy 25
	if got.Bowling != 190 {
		t.Fatalf("bowling points mismatch: got=%d want=190", got.Bowling)
	}
}

func TestScore_MilestonesNeverStack(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	perf := performance.Record{BattingRuns: 120, BattingBallsFaced: 5}

	got := Score(perf, cfg)
	// runs 120 + century 60 only; the fifty and thirty bonuses must not pile on
	if got.Batting != 180 {
		t.Fatalf("batting points mismatch: got=%d want=180", got.Batting)
	}

	perf.BattingRuns = 200
	got = Score(perf, cfg)
	if got.Batting != 350 {
		t.Fatalf("double century batting points mismatch: got=%d want=350", got.Batting)
	}
}

func TestScore_HaulsNeverStack(t *testing.T) {
	t.Parallel()

	perf := performance.Record{BowlingWickets: 3, BowlingOvers: 1}
	got := Score(perf, testConfig())
	// wickets 45 + three-for 30, no economy adjustment under two overs
	if got.Bowling != 75 {
		t.Fatalf("bowling points mismatch: got=%d want=75", got.Bowling)
	}
}

func TestScore_DuckRequiresActualDismissal(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	cases := []struct {
		name      string
		dismissal string
		want      int
	}{
		{"bowled for zero", "b Khan", -10},
		{"lbw for zero", "lbw", -10},
		{"not out on zero", "not out", 0},
		{"retired hurt on zero", "Retired Hurt", 0},
		{"did not bat", "", 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			perf := performance.Record{BattingRuns: 0, BattingBallsFaced: 2, DismissalText: tc.dismissal}
			if got := Score(perf, cfg); got.Batting != tc.want {
				t.Fatalf("batting points mismatch: got=%d want=%d", got.Batting, tc.want)
			}
		})
	}
}

func TestScore_StrikeRateNeedsMinimumBalls(t *testing.T) {
	t.Parallel()

	perf := performance.Record{
		BattingRuns:       18,
		BattingBallsFaced: 6,
		BattingStrikeRate: 300,
		DismissalText:     "not out",
	}
	if got := Score(perf, testConfig()); got.Batting != 18 {
		t.Fatalf("strike rate bonus must not apply under 10 balls: got=%d want=18", got.Batting)
	}

	perf.BattingBallsFaced = 10
	if got := Score(perf, testConfig()); got.Batting != 53 {
		t.Fatalf("fast rate bonus expected at 10 balls: got=%d want=53", got.Batting)
	}
}

func TestScore_SlowStrikeRatePenalty(t *testing.T) {
	t.Parallel()

	perf := performance.Record{
		BattingRuns:       12,
		BattingBallsFaced: 20,
		BattingStrikeRate: 60,
		DismissalText:     "run out",
	}
	// runs 12 - slow rate 15
	if got := Score(perf, testConfig()); got.Batting != -3 {
		t.Fatalf("slow rate penalty mismatch: got=%d want=-3", got.Batting)
	}
}

func TestScore_HighEconomyPenalty(t *testing.T) {
	t.Parallel()

	perf := performance.Record{
		BowlingOvers:        4,
		BowlingWickets:      1,
		BowlingEconomy:      10.5,
		BowlingNoBallsWides: 3,
	}
	// wicket 15 - extras 6 - high economy 20
	if got := Score(perf, testConfig()); got.Bowling != -11 {
		t.Fatalf("bowling points mismatch: got=%d want=-11", got.Bowling)
	}
}

func TestScore_FieldingAndBonusSumIntoTotal(t *testing.T) {
	t.Parallel()

	perf := performance.Record{
		BattingRuns:       30,
		BattingBallsFaced: 15,
		BattingStrikeRate: 200,
		FieldingCatches:   2,
		FieldingRunOuts:   1,
		FieldingStumpings: 1,
		PlayerOfTheMatch:  true,
		HatTricks:         1,
	}

	got := Score(perf, testConfig())
	if got.Batting != 75 {
		t.Fatalf("batting points mismatch: got=%d want=75", got.Batting)
	}
	if got.Fielding != 46 {
		t.Fatalf("fielding points mismatch: got=%d want=46", got.Fielding)
	}
	if got.Bonus != 90 {
		t.Fatalf("bonus points mismatch: got=%d want=90", got.Bonus)
	}
	want := got.Batting + got.Bowling + got.Fielding + got.Bonus
	if got.Total != want {
		t.Fatalf("total must be the category sum: got=%d want=%d", got.Total, want)
	}
}

func TestBonusPoints_HatTricksMultiply(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	if got := BonusPoints(false, 2, cfg); got != 80 {
		t.Fatalf("hat trick bonus mismatch: got=%d want=80", got)
	}
	if got := BonusPoints(true, 0, cfg); got != 50 {
		t.Fatalf("potm bonus mismatch: got=%d want=50", got)
	}
	if got := BonusPoints(false, 0, cfg); got != 0 {
		t.Fatalf("empty bonus mismatch: got=%d want=0", got)
	}
}

func TestValidate_RejectsNegativeMilestoneWeights(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.Batting50 = -5
	if err := Validate(cfg); err == nil {
		t.Fatal("expected negative milestone weight to be rejected")
	}

	cfg = testConfig()
	cfg.TournamentID = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected missing tournament id to be rejected")
	}
}
