package usecase

import (
	"errors"
	"testing"

	"github.com/wicketpool/points-pipeline/internal/domain/match"
	"github.com/wicketpool/points-pipeline/internal/domain/player"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

func resolverFixture(players *memPlayerRepo, provider *stubProvider) *PlayerResolverService {
	return NewPlayerResolverService(players, NewProviderRegistry(provider), &fixedIDGen{}, logging.NewNop())
}

func resolverMatch() match.Match {
	return match.Match{ID: "m1", TournamentID: "t1", Provider: "stub", ExternalID: "e1"}
}

func TestPlayerResolver_CreatesFromDetailOnFirstSight(t *testing.T) {
	t.Parallel()

	players := newMemPlayerRepo()
	provider := &stubProvider{
		name: "stub",
		details: map[string]ExternalPlayerDetail{
			"x1": {ExternalID: "x1", Name: "Babar Azam", Role: "Batsman", TeamName: "Pakistan"},
		},
	}

	resolved, err := resolverFixture(players, provider).Resolve(t.Context(), resolverMatch(), "x1", "B. Azam")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ID == "" {
		t.Fatal("created player must get an internal id")
	}
	// the detail endpoint outranks the scorecard name
	if resolved.Name != "Babar Azam" || resolved.Role != "Batsman" || resolved.TeamName != "Pakistan" {
		t.Fatalf("detail fields not applied: %+v", resolved)
	}
}

func TestPlayerResolver_FallsBackToScorecardNameWhenDetailFails(t *testing.T) {
	t.Parallel()

	players := newMemPlayerRepo()
	provider := &stubProvider{
		name:      "stub",
		detailErr: errors.New("players_info timed out"),
	}

	resolved, err := resolverFixture(players, provider).Resolve(t.Context(), resolverMatch(), "x1", "M. Rizwan")
	if err != nil {
		t.Fatalf("resolve must fall back to the scorecard name: %v", err)
	}
	if resolved.Name != "M. Rizwan" {
		t.Fatalf("fallback name mismatch: %q", resolved.Name)
	}
}

func TestPlayerResolver_NoNameAnywhereIsUnresolvable(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{name: "stub"}
	_, err := resolverFixture(newMemPlayerRepo(), provider).Resolve(t.Context(), resolverMatch(), "x1", "")
	if !IsRowSkippable(err) {
		t.Fatalf("expected a row-skippable error, got %v", err)
	}

	_, err = resolverFixture(newMemPlayerRepo(), provider).Resolve(t.Context(), resolverMatch(), "  ", "someone")
	if !IsRowSkippable(err) {
		t.Fatalf("blank external id must be row-skippable, got %v", err)
	}
}

func TestPlayerResolver_ExistingPlayerSkipsDetailFetch(t *testing.T) {
	t.Parallel()

	players := newMemPlayerRepo(player.Player{
		ID: "internal-1", TournamentID: "t1", Provider: "stub", ExternalID: "x1", Name: "K. Williamson",
	})
	// a detail fetch would fail loudly if attempted
	provider := &stubProvider{name: "stub", detailErr: errors.New("must not be called")}

	resolved, err := resolverFixture(players, provider).Resolve(t.Context(), resolverMatch(), "x1", "K. Williamson")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ID != "internal-1" {
		t.Fatalf("existing player not reused: %+v", resolved)
	}
	if players.upserts != 0 {
		t.Fatalf("unchanged player must not be rewritten: upserts=%d", players.upserts)
	}
}

func TestPlayerResolver_RenamedPlayerIsRefreshed(t *testing.T) {
	t.Parallel()

	players := newMemPlayerRepo(player.Player{
		ID: "internal-1", TournamentID: "t1", Provider: "stub", ExternalID: "x1", Name: "K Williamson",
	})
	provider := &stubProvider{name: "stub"}

	resolved, err := resolverFixture(players, provider).Resolve(t.Context(), resolverMatch(), "x1", "Kane Williamson")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Name != "Kane Williamson" {
		t.Fatalf("name not refreshed: %q", resolved.Name)
	}
	if players.upserts != 1 {
		t.Fatalf("rename must persist: upserts=%d", players.upserts)
	}
}

func TestProviderRegistry_LookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	registry := NewProviderRegistry(&stubProvider{name: "CricAPI"})

	p, err := registry.Get(" cricapi ")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if p.Name() != "CricAPI" {
		t.Fatalf("wrong provider returned: %s", p.Name())
	}

	if _, err := registry.Get("unknown"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown provider must return ErrInvalidInput, got %v", err)
	}

	names := registry.Names()
	if len(names) != 1 || names[0] != "cricapi" {
		t.Fatalf("unexpected names: %v", names)
	}
}
