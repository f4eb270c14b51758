package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/match"
	"github.com/wicketpool/points-pipeline/internal/domain/player"
	idgen "github.com/wicketpool/points-pipeline/internal/platform/id"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

// PlayerResolverService maps provider player ids onto internal players,
// creating new rows on first sight.
type PlayerResolverService struct {
	players   player.Repository
	providers *ProviderRegistry
	idGen     idgen.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewPlayerResolverService(
	players player.Repository,
	providers *ProviderRegistry,
	gen idgen.Generator,
	logger *logging.Logger,
) *PlayerResolverService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PlayerResolverService{
		players:   players,
		providers: providers,
		idGen:     gen,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve returns the internal player for a provider player id within the
// match's tournament, get-or-create. scorecardName is the best-effort name
// the scorecard row carried; it seeds new players when the detail lookup
// fails and refreshes existing players when upstream renamed them.
func (s *PlayerResolverService) Resolve(ctx context.Context, m match.Match, externalID, scorecardName string) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerResolverService.Resolve")
	defer span.End()

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return player.Player{}, fmt.Errorf("%w: empty external player id", ErrPlayerUnresolvable)
	}
	scorecardName = strings.TrimSpace(scorecardName)

	existing, found, err := s.players.GetByExternalID(ctx, m.TournamentID, m.Provider, externalID)
	if err != nil {
		return player.Player{}, fmt.Errorf("lookup player external_id=%s: %w", externalID, err)
	}
	if found {
		if scorecardName != "" && scorecardName != existing.Name {
			existing.Name = scorecardName
			existing.UpdatedAt = s.now().UTC()
			if err := s.players.Upsert(ctx, existing); err != nil {
				return player.Player{}, fmt.Errorf("refresh player name external_id=%s: %w", externalID, err)
			}
		}
		return existing, nil
	}

	detail, detailErr := s.fetchDetail(ctx, m.Provider, externalID)
	name := firstNonEmptyString(detail.Name, scorecardName)
	if name == "" {
		if detailErr != nil {
			return player.Player{}, fmt.Errorf("%w: external_id=%s detail fetch failed: %v", ErrPlayerUnresolvable, externalID, detailErr)
		}
		return player.Player{}, fmt.Errorf("%w: external_id=%s has no name from any source", ErrPlayerUnresolvable, externalID)
	}
	if detailErr != nil {
		s.logger.WarnContext(ctx, "player detail fetch failed, creating from scorecard fields",
			"provider", m.Provider,
			"external_id", externalID,
			"error", detailErr,
		)
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return player.Player{}, fmt.Errorf("generate player id: %w", err)
	}

	now := s.now().UTC()
	created := player.Player{
		ID:           id,
		TournamentID: m.TournamentID,
		Provider:     m.Provider,
		ExternalID:   externalID,
		Name:         name,
		Role:         detail.Role,
		TeamName:     detail.TeamName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.players.Upsert(ctx, created); err != nil {
		return player.Player{}, fmt.Errorf("create player external_id=%s: %w", externalID, err)
	}

	s.logger.InfoContext(ctx, "player created",
		"tournament_id", m.TournamentID,
		"provider", m.Provider,
		"external_id", externalID,
		"name", name,
	)
	return created, nil
}

func (s *PlayerResolverService) fetchDetail(ctx context.Context, providerName, externalID string) (ExternalPlayerDetail, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return ExternalPlayerDetail{}, err
	}

	detail, err := provider.FetchPlayerDetail(ctx, externalID)
	if err != nil {
		return ExternalPlayerDetail{}, err
	}
	detail.Name = strings.TrimSpace(detail.Name)
	detail.Role = strings.TrimSpace(detail.Role)
	detail.TeamName = strings.TrimSpace(detail.TeamName)
	return detail, nil
}

// IsRowSkippable reports whether a resolve failure should skip just the one
// performance row instead of failing the match.
func IsRowSkippable(err error) bool {
	return errors.Is(err, ErrPlayerUnresolvable)
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
