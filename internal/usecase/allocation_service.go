package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/archive"
	"github.com/wicketpool/points-pipeline/internal/domain/bonus"
	"github.com/wicketpool/points-pipeline/internal/domain/match"
	"github.com/wicketpool/points-pipeline/internal/domain/performance"
	"github.com/wicketpool/points-pipeline/internal/domain/points"
	"github.com/wicketpool/points-pipeline/internal/domain/rawdata"
	"github.com/wicketpool/points-pipeline/internal/domain/score"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

const defaultAllocationOwnerTag = "allocation"

// PointsAllocationService commits final scores once a match completes. The
// writes are deliberately non-transactional: each row flips its own
// points_allocated flag, so a failed run resumes from exactly the rows it
// never reached. Fail-fast per match, never per run.
type PointsAllocationService struct {
	matches       match.Repository
	performances  performance.Repository
	pointsConfigs points.Repository
	scores        score.Repository
	bonuses       bonus.Repository
	archives      archive.Repository
	rawPayloads   rawdata.Repository
	runLog        *RunLogger
	logger        *logging.Logger
	claimTTL      time.Duration
	owner         string
	now           func() time.Time
}

type AllocationReport struct {
	MatchesSeen      int
	MatchesFinalized int
	MatchesFailed    int
	MatchesSkipped   int
	RowsAllocated    int
}

func NewPointsAllocationService(
	matches match.Repository,
	performances performance.Repository,
	pointsConfigs points.Repository,
	scores score.Repository,
	bonuses bonus.Repository,
	archives archive.Repository,
	rawPayloads rawdata.Repository,
	runLog *RunLogger,
	logger *logging.Logger,
	claimTTL time.Duration,
) *PointsAllocationService {
	if logger == nil {
		logger = logging.Default()
	}
	if claimTTL <= 0 {
		claimTTL = defaultMatchClaimTTL
	}
	return &PointsAllocationService{
		matches:       matches,
		performances:  performances,
		pointsConfigs: pointsConfigs,
		scores:        scores,
		bonuses:       bonuses,
		archives:      archives,
		rawPayloads:   rawPayloads,
		runLog:        runLog,
		logger:        logger,
		claimTTL:      claimTTL,
		owner:         leaseOwner(defaultAllocationOwnerTag),
		now:           time.Now,
	}
}

func (s *PointsAllocationService) Run(ctx context.Context) (AllocationReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PointsAllocationService.Run")
	defer span.End()

	candidates, err := s.matches.ListForAllocation(ctx)
	if err != nil {
		return AllocationReport{}, fmt.Errorf("list matches for allocation: %w", err)
	}

	report := AllocationReport{MatchesSeen: len(candidates)}
	for _, m := range candidates {
		rows, finalizeErr := s.finalizeMatch(ctx, m)
		report.RowsAllocated += rows
		switch {
		case finalizeErr == nil:
			report.MatchesFinalized++
		case errors.Is(finalizeErr, errMatchBusy):
			report.MatchesSkipped++
		default:
			report.MatchesFailed++
			s.logger.ErrorContext(ctx, "match finalization failed",
				"match_id", m.ID,
				"rows_allocated", rows,
				"error", finalizeErr,
			)
			s.runLog.Event(ctx, "allocation", RunLevelError, "match finalization failed", map[string]any{
				"match_id": m.ID,
				"error":    finalizeErr.Error(),
			})
		}
	}

	s.runLog.Event(ctx, "allocation", RunLevelInfo, "points allocation finished", map[string]any{
		"matches_seen":      report.MatchesSeen,
		"matches_finalized": report.MatchesFinalized,
		"matches_failed":    report.MatchesFailed,
		"rows_allocated":    report.RowsAllocated,
	})
	return report, nil
}

var errMatchBusy = errors.New("match claimed by another worker")

func (s *PointsAllocationService) finalizeMatch(ctx context.Context, m match.Match) (int, error) {
	// Terminal state; re-running against it performs zero writes.
	if m.PointsStatus == match.PointsComplete {
		return 0, errMatchBusy
	}

	claimed, err := s.matches.Claim(ctx, m.ID, s.owner, s.now().UTC(), s.claimTTL)
	if err != nil {
		return 0, fmt.Errorf("claim match: %w", err)
	}
	if !claimed {
		return 0, errMatchBusy
	}
	defer func() {
		if releaseErr := s.matches.Release(ctx, m.ID, s.owner); releaseErr != nil {
			s.logger.WarnContext(ctx, "release match claim failed", "match_id", m.ID, "error", releaseErr)
		}
	}()

	if err := s.matches.SetPointsStatus(ctx, m.ID, match.PointsProcessing); err != nil {
		return 0, fmt.Errorf("set points status processing: %w", err)
	}

	cfg, found, err := s.pointsConfigs.GetByTournament(ctx, m.TournamentID)
	if err == nil && found {
		err = points.Validate(cfg)
	}
	if err != nil || !found {
		s.markFailed(ctx, m.ID)
		if err != nil {
			return 0, fmt.Errorf("%w: tournament_id=%s: %v", ErrConfigMissing, m.TournamentID, err)
		}
		return 0, fmt.Errorf("%w: tournament_id=%s", ErrConfigMissing, m.TournamentID)
	}

	rows, err := s.performances.ListByMatch(ctx, m.ID)
	if err != nil {
		s.markFailed(ctx, m.ID)
		return 0, fmt.Errorf("list performances: %w", err)
	}

	allocated := 0
	for _, row := range rows {
		if row.PointsAllocated {
			continue
		}
		if err := s.allocateRow(ctx, m, row, cfg); err != nil {
			// Already-written rows stay written; their own flags keep a
			// retry from recomputing them.
			s.markFailed(ctx, m.ID)
			return allocated, err
		}
		allocated++
	}

	if err := s.scores.DeleteLiveByMatch(ctx, m.ID); err != nil {
		s.markFailed(ctx, m.ID)
		return allocated, fmt.Errorf("purge live scores: %w", err)
	}
	if err := s.archivePayload(ctx, m); err != nil {
		s.markFailed(ctx, m.ID)
		return allocated, err
	}
	if err := s.bonuses.SeedPlaceholder(ctx, m.ID); err != nil {
		s.markFailed(ctx, m.ID)
		return allocated, fmt.Errorf("seed bonus placeholder: %w", err)
	}

	if err := s.matches.SetPointsStatus(ctx, m.ID, match.PointsComplete); err != nil {
		return allocated, fmt.Errorf("set points status complete: %w", err)
	}
	if err := s.matches.MarkCaptured(ctx, m.ID); err != nil {
		return allocated, fmt.Errorf("mark captured: %w", err)
	}

	s.logger.InfoContext(ctx, "match finalized",
		"match_id", m.ID,
		"tournament_id", m.TournamentID,
		"rows_allocated", allocated,
	)
	return allocated, nil
}

func (s *PointsAllocationService) allocateRow(ctx context.Context, m match.Match, row performance.Record, cfg points.Config) error {
	breakdown := points.Score(row, cfg)
	record := score.Record{
		MatchID:        m.ID,
		PlayerID:       row.PlayerID,
		Generation:     score.GenerationFinal,
		BattingPoints:  breakdown.Batting,
		BowlingPoints:  breakdown.Bowling,
		FieldingPoints: breakdown.Fielding,
		BonusPoints:    breakdown.Bonus,
		TotalPoints:    breakdown.Total,
		ComputedAt:     s.now().UTC(),
	}
	if err := s.scores.Upsert(ctx, record); err != nil {
		return fmt.Errorf("write final score player_id=%s: %w", row.PlayerID, err)
	}
	if err := s.performances.MarkAllocated(ctx, m.ID, row.PlayerID); err != nil {
		return fmt.Errorf("mark row allocated player_id=%s: %w", row.PlayerID, err)
	}
	return nil
}

func (s *PointsAllocationService) archivePayload(ctx context.Context, m match.Match) error {
	payload, found, err := s.rawPayloads.GetByMatch(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("load staged payload: %w", err)
	}
	if !found {
		s.logger.WarnContext(ctx, "no staged payload to archive", "match_id", m.ID)
		return nil
	}

	snapshot := archive.Snapshot{
		MatchID:      m.ID,
		SnapshotType: archive.TypePostMatch,
		Provider:     payload.Provider,
		PayloadJSON:  payload.PayloadJSON,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.archives.Insert(ctx, snapshot); err != nil {
		if errors.Is(err, archive.ErrDuplicate) {
			s.logger.DebugContext(ctx, "archive snapshot already present", "match_id", m.ID)
			return nil
		}
		return fmt.Errorf("archive payload: %w", err)
	}
	return nil
}

func (s *PointsAllocationService) markFailed(ctx context.Context, matchID string) {
	if err := s.matches.SetPointsStatus(ctx, matchID, match.PointsFailed); err != nil {
		s.logger.ErrorContext(ctx, "set points status failed errored", "match_id", matchID, "error", err)
	}
}
