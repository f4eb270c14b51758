package usecase

import (
	"fmt"
	"testing"
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/match"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

func captureFixture(matches *memMatchRepo, perfs *memPerformanceRepo, raws *memRawDataRepo, provider *stubProvider, players *memPlayerRepo) *ScorecardCaptureService {
	registry := NewProviderRegistry(provider)
	resolver := NewPlayerResolverService(players, registry, &fixedIDGen{}, logging.NewNop())
	runLog, _ := testRunLogger()
	return NewScorecardCaptureService(
		matches,
		perfs,
		raws,
		resolver,
		registry,
		runLog,
		logging.NewNop(),
		2,
		time.Minute,
	)
}

func liveMatch(id string) match.Match {
	return match.Match{
		ID:            id,
		TournamentID:  "t1",
		Provider:      "stub",
		ExternalID:    "ext-" + id,
		Status:        match.StatusLive,
		CurrentlyLive: true,
	}
}

func TestScorecardCapture_MergesAllDisciplines(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		name: "stub",
		scorecards: map[string]ExternalScorecard{
			"ext-m1": {
				State:      MatchStateLive,
				StatusText: "Innings Break",
				Batting: []ExternalBatting{
					{PlayerExternalID: "x1", PlayerName: "V. Kohli", Runs: 55, BallsFaced: 30, Sixes: 2, StrikeRate: 183.3, DismissalText: "c Smith b Khan"},
				},
				Bowling: []ExternalBowling{
					{PlayerExternalID: "x2", PlayerName: "J. Bumrah", Overs: 4, Wickets: 3, RunsConceded: 21, Maidens: 1, Economy: 5.25},
				},
				Fielding: []ExternalFielding{
					{PlayerExternalID: "x1", PlayerName: "V. Kohli", Catches: 1},
				},
				Raw: []byte(`{"status":"success"}`),
			},
		},
		details: map[string]ExternalPlayerDetail{
			"x1": {ExternalID: "x1", Name: "Virat Kohli", Role: "Batsman", TeamName: "India"},
			"x2": {ExternalID: "x2", Name: "Jasprit Bumrah", Role: "Bowler", TeamName: "India"},
		},
	}

	matches := newMemMatchRepo(liveMatch("m1"))
	perfs := newMemPerformanceRepo()
	raws := newMemRawDataRepo()
	players := newMemPlayerRepo()

	service := captureFixture(matches, perfs, raws, provider, players)

	report, err := service.Run(t.Context())
	if err != nil {
		t.Fatalf("capture run failed: %v", err)
	}
	if report.MatchesCaptured != 1 || report.RowsMerged != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// x1 batted and fielded; both disciplines land in the same row
	p1, ok, _ := players.GetByExternalID(t.Context(), "t1", "stub", "x1")
	if !ok {
		t.Fatal("player x1 not created")
	}
	row, ok := perfs.get("m1", p1.ID)
	if !ok {
		t.Fatal("performance row missing for x1")
	}
	if row.BattingRuns != 55 || row.FieldingCatches != 1 {
		t.Fatalf("disciplines not merged into one row: %+v", row)
	}
	if row.TournamentID != "t1" {
		t.Fatalf("tournament id not stamped: %+v", row)
	}

	payload, ok, _ := raws.GetByMatch(t.Context(), "m1")
	if !ok {
		t.Fatal("raw payload not staged")
	}
	if payload.PayloadHash == "" {
		t.Fatal("payload hash missing")
	}

	if got := matches.get("m1"); got.StatusText != "Innings Break" {
		t.Fatalf("status text not refreshed: %q", got.StatusText)
	}
}

func TestScorecardCapture_RepeatRunIsIdempotent(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		name: "stub",
		scorecards: map[string]ExternalScorecard{
			"ext-m1": {
				State: MatchStateLive,
				Batting: []ExternalBatting{
					{PlayerExternalID: "x1", PlayerName: "R. Sharma", Runs: 31, BallsFaced: 20, StrikeRate: 155},
				},
			},
		},
	}

	matches := newMemMatchRepo(liveMatch("m1"))
	perfs := newMemPerformanceRepo()
	players := newMemPlayerRepo()
	service := captureFixture(matches, perfs, newMemRawDataRepo(), provider, players)

	for i := 0; i < 2; i++ {
		if _, err := service.Run(t.Context()); err != nil {
			t.Fatalf("run %d failed: %v", i+1, err)
		}
	}

	p1, _, _ := players.GetByExternalID(t.Context(), "t1", "stub", "x1")
	row, _ := perfs.get("m1", p1.ID)
	if row.BattingRuns != 31 {
		t.Fatalf("repeat capture changed the row: %+v", row)
	}
	if players.upserts != 1 {
		t.Fatalf("player recreated on repeat run: upserts=%d", players.upserts)
	}
}

func TestScorecardCapture_UpstreamFailureDefersMatch(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		name:     "stub",
		scoreErr: fmt.Errorf("%w: 503 from upstream", ErrUpstreamUnavailable),
	}
	matches := newMemMatchRepo(liveMatch("m1"))
	perfs := newMemPerformanceRepo()
	service := captureFixture(matches, perfs, newMemRawDataRepo(), provider, newMemPlayerRepo())

	report, err := service.Run(t.Context())
	if err != nil {
		t.Fatalf("capture run must absorb per-match failures: %v", err)
	}
	if report.MatchesSkipped != 1 || report.MatchesCaptured != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if perfs.upserts != 0 {
		t.Fatal("no rows may be written for a deferred match")
	}
	if got := matches.get("m1"); got.ClaimedBy != "" {
		t.Fatal("claim not released after deferral")
	}
}

func TestScorecardCapture_UnresolvablePlayerSkipsRowOnly(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		name: "stub",
		scorecards: map[string]ExternalScorecard{
			"ext-m1": {
				State: MatchStateLive,
				Batting: []ExternalBatting{
					// no name anywhere: unresolvable
					{PlayerExternalID: "ghost", Runs: 12},
					{PlayerExternalID: "x1", PlayerName: "S. Gill", Runs: 44},
				},
			},
		},
	}

	matches := newMemMatchRepo(liveMatch("m1"))
	perfs := newMemPerformanceRepo()
	players := newMemPlayerRepo()
	service := captureFixture(matches, perfs, newMemRawDataRepo(), provider, players)

	report, err := service.Run(t.Context())
	if err != nil {
		t.Fatalf("capture run failed: %v", err)
	}
	if report.MatchesCaptured != 1 {
		t.Fatalf("match must still be captured: %+v", report)
	}
	if report.RowsMerged != 1 || report.RowsSkipped != 1 {
		t.Fatalf("unexpected row counts: %+v", report)
	}
}

func TestScorecardCapture_CompletedScorecardPromotesStatus(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		name: "stub",
		scorecards: map[string]ExternalScorecard{
			"ext-m1": {State: MatchStateCompleted, StatusText: "India won by 5 wickets"},
		},
	}
	matches := newMemMatchRepo(liveMatch("m1"))
	service := captureFixture(matches, newMemPerformanceRepo(), newMemRawDataRepo(), provider, newMemPlayerRepo())

	if _, err := service.Run(t.Context()); err != nil {
		t.Fatalf("capture run failed: %v", err)
	}

	got := matches.get("m1")
	if got.Status != match.StatusCompleted {
		t.Fatalf("status mismatch: got=%s want=completed", got.Status)
	}
	if got.CurrentlyLive {
		t.Fatal("completed match must not stay flagged live")
	}
}

func TestBuildPerformanceDeltas_FoldsPerPlayer(t *testing.T) {
	t.Parallel()

	card := ExternalScorecard{
		Batting: []ExternalBatting{
			{PlayerExternalID: "x1", PlayerName: "A", Runs: 10},
			{PlayerExternalID: "x1", PlayerName: "A", Runs: 25}, // later innings wins
			{PlayerExternalID: "", Runs: 99},                    // dropped
		},
		Bowling: []ExternalBowling{
			{PlayerExternalID: "x1", Wickets: 2},
		},
		Fielding: []ExternalFielding{
			{PlayerExternalID: "x2", PlayerName: "B", Catches: 3},
		},
	}

	deltas, names := buildPerformanceDeltas(card, "live")
	if len(deltas) != 2 {
		t.Fatalf("unexpected delta count: got=%d want=2", len(deltas))
	}

	d1 := deltas["x1"]
	if d1 == nil || d1.BattingRuns == nil || *d1.BattingRuns != 25 {
		t.Fatalf("most recent batting figures must win: %+v", d1)
	}
	if d1.BowlingWickets == nil || *d1.BowlingWickets != 2 {
		t.Fatalf("bowling not folded into same delta: %+v", d1)
	}
	if d1.MatchStatus == nil || *d1.MatchStatus != "live" {
		t.Fatalf("match status not stamped: %+v", d1)
	}
	if names["x2"] != "B" {
		t.Fatalf("scorecard name not collected: %+v", names)
	}

	d2 := deltas["x2"]
	if d2.HasBatting() || d2.HasBowling() || !d2.HasFielding() {
		t.Fatalf("fielding-only delta carries wrong disciplines: %+v", d2)
	}
}

func TestScorecardCapture_SkipsMatchHeldByAnotherProcess(t *testing.T) {
	t.Parallel()

	held := liveMatch("m1")
	claimedAt := time.Now().Add(-5 * time.Second)
	held.ClaimedBy = "capture/peer-host:4242"
	held.ClaimedAt = &claimedAt
	matches := newMemMatchRepo(held)
	perfs := newMemPerformanceRepo()
	provider := &stubProvider{name: "stub"}

	service := captureFixture(matches, perfs, newMemRawDataRepo(), provider, newMemPlayerRepo())

	report, err := service.Run(t.Context())
	if err != nil {
		t.Fatalf("capture run failed: %v", err)
	}
	if report.MatchesSkipped != 1 || report.MatchesCaptured != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := matches.get("m1").ClaimedBy; got != "capture/peer-host:4242" {
		t.Fatalf("unexpired peer claim must survive, got owner %q", got)
	}
}
