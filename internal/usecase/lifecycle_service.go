package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/match"
	idgen "github.com/wicketpool/points-pipeline/internal/platform/id"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

// MatchLifecycleService polls each provider's current-matches feed, creates
// rows for fixtures it has not seen before, and moves tracked matches along
// not_started → live → completed. Transitions are monotonic; the captured
// flag is never touched here.
//
// Discovery is gated on a configured tournament id: every new fixture a feed
// reports is filed under that tournament. With no tournament configured the
// service only syncs matches that already exist.
type MatchLifecycleService struct {
	matches      match.Repository
	providers    *ProviderRegistry
	runLog       *RunLogger
	logger       *logging.Logger
	tournamentID string
	ids          idgen.Generator
	now          func() time.Time
}

type LifecycleReport struct {
	MatchesTracked  int
	MatchesCreated  int
	MatchesUpdated  int
	ProvidersFailed int
}

func NewMatchLifecycleService(
	matches match.Repository,
	providers *ProviderRegistry,
	runLog *RunLogger,
	logger *logging.Logger,
	tournamentID string,
	ids idgen.Generator,
) *MatchLifecycleService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchLifecycleService{
		matches:      matches,
		providers:    providers,
		runLog:       runLog,
		logger:       logger,
		tournamentID: tournamentID,
		ids:          ids,
		now:          time.Now,
	}
}

func (s *MatchLifecycleService) SyncStates(ctx context.Context) (LifecycleReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchLifecycleService.SyncStates")
	defer span.End()

	tracked, err := s.matches.ListTracked(ctx)
	if err != nil {
		return LifecycleReport{}, fmt.Errorf("list tracked matches: %w", err)
	}

	report := LifecycleReport{MatchesTracked: len(tracked)}

	byProvider := make(map[string][]match.Match)
	for _, m := range tracked {
		byProvider[m.Provider] = append(byProvider[m.Provider], m)
	}

	registered := make(map[string]bool)
	for _, providerName := range s.providers.Names() {
		registered[providerName] = true
		group := byProvider[providerName]
		if len(group) == 0 && s.tournamentID == "" {
			continue
		}

		provider, err := s.providers.Get(providerName)
		if err != nil {
			report.ProvidersFailed++
			continue
		}

		states, err := provider.FetchCurrentMatches(ctx)
		if err != nil {
			report.ProvidersFailed++
			s.logger.WarnContext(ctx, "current matches feed unavailable, provider skipped this run",
				"provider", providerName,
				"matches", len(group),
				"error", err,
			)
			s.runLog.Event(ctx, "lifecycle", RunLevelWarn, "provider feed unavailable", map[string]any{
				"provider": providerName,
				"error":    err.Error(),
			})
			continue
		}

		byExternalID := make(map[string]ExternalMatchState, len(states))
		for _, st := range states {
			byExternalID[st.ExternalID] = st
		}

		for _, m := range group {
			updated, err := s.applyState(ctx, m, byExternalID)
			if err != nil {
				s.logger.ErrorContext(ctx, "lifecycle update failed", "match_id", m.ID, "error", err)
				continue
			}
			if updated {
				report.MatchesUpdated++
			}
		}

		if s.tournamentID != "" {
			report.MatchesCreated += s.discover(ctx, providerName, group, states)
		}
	}

	// Matches bound to a provider nobody registered can never progress.
	for providerName := range byProvider {
		if !registered[providerName] {
			report.ProvidersFailed++
			s.logger.ErrorContext(ctx, "lifecycle sync skipping provider", "provider", providerName,
				"error", fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, providerName))
		}
	}

	s.runLog.Event(ctx, "lifecycle", RunLevelInfo, "lifecycle sync finished", map[string]any{
		"tracked":          report.MatchesTracked,
		"created":          report.MatchesCreated,
		"updated":          report.MatchesUpdated,
		"providers_failed": report.ProvidersFailed,
	})
	return report, nil
}

// discover files feed entries with no tracked counterpart as new matches.
// The repository dedupes on (provider, external_id), so a fixture that was
// already captured and left the tracked set is not resurrected.
func (s *MatchLifecycleService) discover(ctx context.Context, providerName string, group []match.Match, states []ExternalMatchState) int {
	known := make(map[string]bool, len(group))
	for _, m := range group {
		known[m.ExternalID] = true
	}

	created := 0
	for _, st := range states {
		if known[st.ExternalID] {
			continue
		}
		id, err := s.ids.NewID()
		if err != nil {
			s.logger.ErrorContext(ctx, "match discovery failed", "provider", providerName, "external_id", st.ExternalID, "error", err)
			continue
		}

		status := match.StatusNotStarted
		switch {
		case st.Ended:
			status = match.StatusCompleted
		case st.Started:
			status = match.StatusLive
		}

		inserted, err := s.matches.Create(ctx, match.Match{
			ID:            id,
			TournamentID:  s.tournamentID,
			Provider:      providerName,
			ExternalID:    st.ExternalID,
			Name:          st.Name,
			MatchType:     st.MatchType,
			Status:        status,
			StatusText:    st.StatusText,
			CurrentlyLive: status == match.StatusLive,
			PointsStatus:  match.PointsNone,
			UpdatedAt:     s.now(),
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "match discovery failed", "provider", providerName, "external_id", st.ExternalID, "error", err)
			continue
		}
		if !inserted {
			continue
		}
		created++
		s.logger.InfoContext(ctx, "match discovered",
			"match_id", id,
			"provider", providerName,
			"external_id", st.ExternalID,
			"status", string(status),
		)
	}
	return created
}

func (s *MatchLifecycleService) applyState(ctx context.Context, m match.Match, feed map[string]ExternalMatchState) (bool, error) {
	st, inFeed := feed[m.ExternalID]
	if !inFeed {
		// A live match that dropped out of the feed is no longer live; its
		// status stays wherever the state machine last left it.
		if !m.CurrentlyLive {
			return false, nil
		}
		if err := s.matches.UpdateState(ctx, m.ID, m.Status, m.StatusText, false); err != nil {
			return false, fmt.Errorf("clear live flag match_id=%s: %w", m.ID, err)
		}
		return true, nil
	}

	reported := match.StatusNotStarted
	switch {
	case st.Ended:
		reported = match.StatusCompleted
	case st.Started:
		reported = match.StatusLive
	}

	next := match.NextStatus(m.Status, reported)
	currentlyLive := next == match.StatusLive
	statusText := firstNonEmptyString(st.StatusText, m.StatusText)

	if next == m.Status && currentlyLive == m.CurrentlyLive && statusText == m.StatusText {
		return false, nil
	}
	if err := s.matches.UpdateState(ctx, m.ID, next, statusText, currentlyLive); err != nil {
		return false, fmt.Errorf("update match state match_id=%s: %w", m.ID, err)
	}

	if next != m.Status {
		s.logger.InfoContext(ctx, "match status transition",
			"match_id", m.ID,
			"from", string(m.Status),
			"to", string(next),
			"status_text", statusText,
		)
	}
	return true, nil
}
