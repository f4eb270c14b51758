package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// MatchState is the adapter's classification of a scorecard response.
// Completed means the provider reported a result; everything else that has
// begun is live.
type MatchState string

const (
	MatchStateNotStarted MatchState = "not_started"
	MatchStateLive       MatchState = "live"
	MatchStateCompleted  MatchState = "completed"
)

type ExternalMatchState struct {
	ExternalID string
	Name       string
	MatchType  string
	StatusText string
	Started    bool
	Ended      bool
}

type ExternalBatting struct {
	PlayerExternalID string
	PlayerName       string
	Runs             int
	BallsFaced       int
	Sixes            int
	StrikeRate       float64
	DismissalText    string
}

type ExternalBowling struct {
	PlayerExternalID string
	PlayerName       string
	Overs            float64
	Wickets          int
	RunsConceded     int
	Maidens          int
	NoBallsWides     int
	Economy          float64
}

type ExternalFielding struct {
	PlayerExternalID string
	PlayerName       string
	Catches          int
	RunOuts          int
	Stumpings        int
}

// ExternalScorecard is the provider-neutral scorecard shape every adapter
// normalizes into. Fielding entries are pre-aggregated per player across
// innings by the adapter.
type ExternalScorecard struct {
	State      MatchState
	StatusText string
	Batting    []ExternalBatting
	Bowling    []ExternalBowling
	Fielding   []ExternalFielding
	Raw        []byte
}

type ExternalPlayerDetail struct {
	ExternalID string
	Name       string
	Role       string
	TeamName   string
}

// ScorecardProvider is implemented once per upstream provider. A single
// adapter call never retries on its own; transport-level retry and circuit
// breaking live inside the concrete clients.
type ScorecardProvider interface {
	Name() string
	FetchScorecard(ctx context.Context, externalID string) (ExternalScorecard, error)
	FetchPlayerDetail(ctx context.Context, externalID string) (ExternalPlayerDetail, error)
	FetchCurrentMatches(ctx context.Context) ([]ExternalMatchState, error)
}

// ProviderRegistry resolves the adapter a match is bound to by provider
// name. Adding a provider means registering one more adapter; no pipeline
// code changes.
type ProviderRegistry struct {
	providers map[string]ScorecardProvider
}

func NewProviderRegistry(providers ...ScorecardProvider) *ProviderRegistry {
	byName := make(map[string]ScorecardProvider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(p.Name()))
		if name == "" {
			continue
		}
		byName[name] = p
	}
	return &ProviderRegistry{providers: byName}
}

func (r *ProviderRegistry) Get(name string) (ScorecardProvider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, name)
	}
	return p, nil
}

func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
