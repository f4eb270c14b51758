package cricapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/wicketpool/points-pipeline/internal/platform/logging"
	"github.com/wicketpool/points-pipeline/internal/platform/resilience"
	"github.com/wicketpool/points-pipeline/internal/usecase"
)

func TestClassifyMatchState(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data scorecardData
		want usecase.MatchState
	}{
		{"not started", scorecardData{}, usecase.MatchStateNotStarted},
		{"started", scorecardData{MatchStarted: true}, usecase.MatchStateLive},
		{"ended flag", scorecardData{MatchStarted: true, MatchEnded: true}, usecase.MatchStateCompleted},
		{"winner without ended flag", scorecardData{MatchStarted: true, MatchWinner: "India"}, usecase.MatchStateCompleted},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyMatchState(tc.data); got != tc.want {
				t.Fatalf("classifyMatchState mismatch: got=%s want=%s", got, tc.want)
			}
		})
	}
}

func TestMapBattingEntry_ToleratesStringNumbers(t *testing.T) {
	t.Parallel()

	// upstream sometimes encodes numeric fields as strings
	item := map[string]any{
		"batsman":        map[string]any{"id": "p-1", "name": "V. Kohli"},
		"r":              "55",
		"b":              float64(30),
		"6s":             "2",
		"sr":             "183.33",
		"dismissal-text": " c Smith b Khan ",
	}

	got, ok := mapBattingEntry(item)
	if !ok {
		t.Fatal("entry with a batsman id must map")
	}
	if got.PlayerExternalID != "p-1" || got.PlayerName != "V. Kohli" {
		t.Fatalf("player ref mismatch: %+v", got)
	}
	if got.Runs != 55 || got.BallsFaced != 30 || got.Sixes != 2 {
		t.Fatalf("numeric fields mismatch: %+v", got)
	}
	if got.StrikeRate != 183.33 {
		t.Fatalf("strike rate mismatch: %v", got.StrikeRate)
	}
	if got.DismissalText != "c Smith b Khan" {
		t.Fatalf("dismissal not trimmed: %q", got.DismissalText)
	}
}

func TestMapBattingEntry_DropsRowsWithoutPlayerID(t *testing.T) {
	t.Parallel()

	if _, ok := mapBattingEntry(map[string]any{"r": float64(10)}); ok {
		t.Fatal("row without a batsman ref must be dropped")
	}
	if _, ok := mapBattingEntry(map[string]any{"batsman": map[string]any{"id": "  "}}); ok {
		t.Fatal("row with a blank id must be dropped")
	}
}

func TestMapBowlingEntry_SumsNoBallsAndWides(t *testing.T) {
	t.Parallel()

	item := map[string]any{
		"bowler": map[string]any{"id": "p-9", "name": "J. Bumrah"},
		"o":      float64(4),
		"w":      float64(3),
		"r":      float64(21),
		"m":      float64(1),
		"nb":     float64(2),
		"wd":     "3",
		"eco":    "5.25",
	}

	got, ok := mapBowlingEntry(item)
	if !ok {
		t.Fatal("entry with a bowler id must map")
	}
	if got.NoBallsWides != 5 {
		t.Fatalf("extras must sum nb and wd: got=%d want=5", got.NoBallsWides)
	}
	if got.Overs != 4 || got.Wickets != 3 || got.Economy != 5.25 {
		t.Fatalf("bowling figures mismatch: %+v", got)
	}
}

func TestAccumulateFielding_SumsAcrossInnings(t *testing.T) {
	t.Parallel()

	byPlayer := make(map[string]*usecase.ExternalFielding)
	first := map[string]any{
		"catcher": map[string]any{"id": "p-3", "name": "R. Pant"},
		"catch":   float64(1),
		"stumped": float64(1),
	}
	second := map[string]any{
		"catcher": map[string]any{"id": "p-3", "name": "R. Pant"},
		"catch":   float64(2),
		"runout":  float64(1),
	}

	accumulateFielding(byPlayer, first)
	accumulateFielding(byPlayer, second)
	accumulateFielding(byPlayer, map[string]any{"catch": float64(9)}) // no ref, dropped

	if len(byPlayer) != 1 {
		t.Fatalf("unexpected player count: %d", len(byPlayer))
	}
	entry := byPlayer["p-3"]
	if entry.Catches != 3 || entry.RunOuts != 1 || entry.Stumpings != 1 {
		t.Fatalf("fielding credits not accumulated: %+v", entry)
	}
}

func TestSanitizeSensitiveText_RedactsKey(t *testing.T) {
	t.Parallel()

	msg := "GET https://api.cricapi.com/v1/match_scorecard?apikey=super-secret&id=42 failed"
	got := sanitizeSensitiveText(msg, "super-secret")
	if strings.Contains(got, "super-secret") {
		t.Fatalf("api key leaked: %q", got)
	}

	got = redactAPIURL("https://api.cricapi.com/v1/currentMatches?apikey=super-secret&offset=0")
	if strings.Contains(got, "super-secret") || !strings.Contains(got, "apikey=REDACTED") {
		t.Fatalf("url not redacted: %q", got)
	}
}

func TestAbbreviateBody(t *testing.T) {
	t.Parallel()

	if got := abbreviateBody([]byte("  short  ")); got != "short" {
		t.Fatalf("short body mismatch: %q", got)
	}
	long := strings.Repeat("x", 400)
	got := abbreviateBody([]byte(long))
	if len(got) != 243 || !strings.HasSuffix(got, "...") {
		t.Fatalf("long body not abbreviated: len=%d", len(got))
	}
}

type stubTransport struct {
	status int
	body   string
	calls  int
}

func (s *stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	s.calls++
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Header:     make(http.Header),
	}, nil
}

func TestExhaustedRetriesKeepTransientMarker(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{status: 500, body: `{"status":"failure"}`}
	client := NewClient(ClientConfig{
		BaseURL:    "http://upstream.test",
		APIKey:     "k",
		HTTPClient: &http.Client{Transport: transport},
		Logger:     logging.NewNop(),
	})

	_, err := client.executeRequest(t.Context(), "http://upstream.test/currentMatches?apikey=k")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !errors.Is(err, usecase.ErrUpstreamUnavailable) {
		t.Fatalf("caller sentinel lost: %v", err)
	}
	if !isCricAPICircuitFailure(err) {
		t.Fatalf("transient marker lost, breaker would never record the failure: %v", err)
	}
}

func TestCircuitOpensAfterRepeatedServerErrors(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{status: 503, body: "unavailable"}
	client := NewClient(ClientConfig{
		BaseURL:    "http://upstream.test",
		APIKey:     "k",
		HTTPClient: &http.Client{Transport: transport},
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	var envelope currentMatchesEnvelope
	if _, err := client.doJSON(t.Context(), "/currentMatches", nil, &envelope); err == nil {
		t.Fatal("expected failure from upstream 503")
	}
	if transport.calls != 1 {
		t.Fatalf("expected a single upstream attempt, got %d", transport.calls)
	}

	_, err := client.doJSON(t.Context(), "/currentMatches", nil, &envelope)
	if !errors.Is(err, usecase.ErrUpstreamUnavailable) {
		t.Fatalf("open circuit must surface the upstream sentinel, got %v", err)
	}
	if transport.calls != 1 {
		t.Fatalf("open circuit must not reach upstream, attempts %d", transport.calls)
	}
	if got := client.breaker.State(); got != resilience.CircuitStateOpen {
		t.Fatalf("breaker state = %s, want %s", got, resilience.CircuitStateOpen)
	}
}

func TestFetchCurrentMatchesMapsFixtureFields(t *testing.T) {
	t.Parallel()

	transport := &stubTransport{status: 200, body: `{
		"status": "success",
		"data": [
			{"id": "ext-1", "name": " India vs England ", "matchType": "T20", "status": "Live", "matchStarted": true, "matchEnded": false},
			{"id": "ext-2", "name": "Australia vs Pakistan", "matchType": "odi", "status": "Australia won", "matchStarted": true, "matchEnded": true},
			{"id": "", "name": "dropped"}
		]
	}`}
	client := NewClient(ClientConfig{
		BaseURL:    "http://upstream.test",
		APIKey:     "k",
		HTTPClient: &http.Client{Transport: transport},
		Logger:     logging.NewNop(),
	})

	states, err := client.FetchCurrentMatches(t.Context())
	if err != nil {
		t.Fatalf("fetch current matches failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("blank ids must be dropped, got %d states", len(states))
	}
	first := states[0]
	if first.ExternalID != "ext-1" || first.Name != "India vs England" || first.MatchType != "t20" {
		t.Fatalf("fixture identity mismatch: %+v", first)
	}
	if !first.Started || first.Ended {
		t.Fatalf("live fixture misclassified: %+v", first)
	}
	if second := states[1]; !second.Ended || second.MatchType != "odi" {
		t.Fatalf("finished fixture misclassified: %+v", second)
	}
}
