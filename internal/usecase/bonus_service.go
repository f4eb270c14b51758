package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/bonus"
	"github.com/wicketpool/points-pipeline/internal/domain/performance"
	"github.com/wicketpool/points-pipeline/internal/domain/points"
	"github.com/wicketpool/points-pipeline/internal/domain/score"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

// BonusCorrectionService folds late POTM and hat-trick awards into already
// finalized scores. Each pending row is handled independently; a failure
// leaves captured=false so the next poll retries just that row.
type BonusCorrectionService struct {
	bonuses       bonus.Repository
	performances  performance.Repository
	pointsConfigs points.Repository
	scores        score.Repository
	runLog        *RunLogger
	logger        *logging.Logger
	now           func() time.Time
}

type BonusReport struct {
	Pending int
	Applied int
	Skipped int
}

func NewBonusCorrectionService(
	bonuses bonus.Repository,
	performances performance.Repository,
	pointsConfigs points.Repository,
	scores score.Repository,
	runLog *RunLogger,
	logger *logging.Logger,
) *BonusCorrectionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &BonusCorrectionService{
		bonuses:       bonuses,
		performances:  performances,
		pointsConfigs: pointsConfigs,
		scores:        scores,
		runLog:        runLog,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *BonusCorrectionService) Run(ctx context.Context) (BonusReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BonusCorrectionService.Run")
	defer span.End()

	pending, err := s.bonuses.ListPending(ctx)
	if err != nil {
		return BonusReport{}, fmt.Errorf("list pending bonus corrections: %w", err)
	}

	report := BonusReport{Pending: len(pending)}
	for _, correction := range pending {
		if err := s.applyCorrection(ctx, correction); err != nil {
			report.Skipped++
			s.logger.WarnContext(ctx, "bonus correction deferred",
				"match_id", correction.MatchID,
				"player_id", correction.PlayerID,
				"error", err,
			)
			continue
		}
		report.Applied++
	}

	s.runLog.Event(ctx, "bonus", RunLevelInfo, "bonus corrections finished", map[string]any{
		"pending": report.Pending,
		"applied": report.Applied,
		"skipped": report.Skipped,
	})
	return report, nil
}

func (s *BonusCorrectionService) applyCorrection(ctx context.Context, correction bonus.Correction) error {
	perf, found, err := s.performances.Get(ctx, correction.MatchID, correction.PlayerID)
	if err != nil {
		return fmt.Errorf("read performance: %w", err)
	}
	if !found {
		return fmt.Errorf("no performance row for match_id=%s player_id=%s", correction.MatchID, correction.PlayerID)
	}

	if err := s.performances.SetBonusAwards(ctx, correction.MatchID, correction.PlayerID, correction.PlayerOfTheMatch, correction.HatTricks); err != nil {
		return fmt.Errorf("write bonus awards: %w", err)
	}

	// The tournament comes from the performance row itself, never from
	// surrounding loop state.
	cfg, found, err := s.pointsConfigs.GetByTournament(ctx, perf.TournamentID)
	if err != nil {
		return fmt.Errorf("load points config tournament_id=%s: %w", perf.TournamentID, err)
	}
	if !found {
		return fmt.Errorf("%w: tournament_id=%s", ErrConfigMissing, perf.TournamentID)
	}

	delta := points.BonusPoints(correction.PlayerOfTheMatch, correction.HatTricks, cfg)
	if delta > 0 {
		final, found, err := s.scores.GetFinal(ctx, correction.MatchID, correction.PlayerID)
		if err != nil {
			return fmt.Errorf("read final score: %w", err)
		}
		if !found {
			return fmt.Errorf("no final score for match_id=%s player_id=%s", correction.MatchID, correction.PlayerID)
		}

		newBonus := final.BonusPoints + delta
		newTotal := final.BattingPoints + final.BowlingPoints + final.FieldingPoints + newBonus
		if err := s.scores.UpdateFinalBonus(ctx, correction.MatchID, correction.PlayerID, newBonus, newTotal); err != nil {
			return fmt.Errorf("update final score bonus: %w", err)
		}
	}

	if err := s.bonuses.MarkCaptured(ctx, correction.ID); err != nil {
		return fmt.Errorf("mark correction captured: %w", err)
	}

	s.logger.InfoContext(ctx, "bonus correction applied",
		"match_id", correction.MatchID,
		"player_id", correction.PlayerID,
		"potm", correction.PlayerOfTheMatch,
		"hat_tricks", correction.HatTricks,
		"bonus_delta", delta,
	)
	return nil
}
