package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/wicketpool/points-pipeline/internal/domain/match"
	"github.com/wicketpool/points-pipeline/internal/domain/performance"
	"github.com/wicketpool/points-pipeline/internal/domain/points"
	"github.com/wicketpool/points-pipeline/internal/domain/score"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

const defaultLiveScoreConcurrency = 4

// LiveScoreService republishes provisional scores for matches currently
// live. Every pass is a full recompute from the durable performance rows; it
// only ever writes the live generation, so it is safe to run alongside
// capture and finalization.
type LiveScoreService struct {
	matches       match.Repository
	performances  performance.Repository
	pointsConfigs points.Repository
	scores        score.Repository
	runLog        *RunLogger
	logger        *logging.Logger
	maxConcurrent int
	now           func() time.Time
}

type LiveScoreReport struct {
	MatchesLive    int
	MatchesScored  int
	MatchesSkipped int
	RowsScored     int
}

func NewLiveScoreService(
	matches match.Repository,
	performances performance.Repository,
	pointsConfigs points.Repository,
	scores score.Repository,
	runLog *RunLogger,
	logger *logging.Logger,
	maxConcurrent int,
) *LiveScoreService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxConcurrent < 1 {
		maxConcurrent = defaultLiveScoreConcurrency
	}
	return &LiveScoreService{
		matches:       matches,
		performances:  performances,
		pointsConfigs: pointsConfigs,
		scores:        scores,
		runLog:        runLog,
		logger:        logger,
		maxConcurrent: maxConcurrent,
		now:           time.Now,
	}
}

func (s *LiveScoreService) Run(ctx context.Context) (LiveScoreReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveScoreService.Run")
	defer span.End()

	live, err := s.matches.ListLive(ctx)
	if err != nil {
		return LiveScoreReport{}, fmt.Errorf("list live matches: %w", err)
	}

	report := LiveScoreReport{MatchesLive: len(live)}
	if len(live) == 0 {
		return report, nil
	}

	configs, err := s.loadConfigs(ctx, live)
	if err != nil {
		return report, err
	}

	var scoredCount atomic.Int32
	var skippedCount atomic.Int32
	var rowCount atomic.Int32

	workers := pool.New().WithContext(ctx).WithMaxGoroutines(s.maxConcurrent)
	for _, m := range live {
		m := m
		workers.Go(func(ctx context.Context) error {
			cfg, ok := configs[m.TournamentID]
			if !ok {
				skippedCount.Add(1)
				s.logger.WarnContext(ctx, "live scoring skipped, no points config",
					"match_id", m.ID,
					"tournament_id", m.TournamentID,
					"error", ErrConfigMissing,
				)
				return nil
			}

			rows, err := s.scoreMatch(ctx, m, cfg)
			if err != nil {
				skippedCount.Add(1)
				s.logger.ErrorContext(ctx, "live scoring failed", "match_id", m.ID, "error", err)
				return nil
			}
			scoredCount.Add(1)
			rowCount.Add(int32(rows))
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return report, fmt.Errorf("live scoring pool: %w", err)
	}

	report.MatchesScored = int(scoredCount.Load())
	report.MatchesSkipped = int(skippedCount.Load())
	report.RowsScored = int(rowCount.Load())

	s.runLog.Event(ctx, "live_scoring", RunLevelInfo, "live scoring finished", map[string]any{
		"matches_live":   report.MatchesLive,
		"matches_scored": report.MatchesScored,
		"rows_scored":    report.RowsScored,
	})
	return report, nil
}

// loadConfigs resolves each distinct tournament's weight table up front so
// the fan-out below never hammers the config table per match.
func (s *LiveScoreService) loadConfigs(ctx context.Context, live []match.Match) (map[string]points.Config, error) {
	configs := make(map[string]points.Config)
	seen := make(map[string]bool)
	for _, m := range live {
		if seen[m.TournamentID] {
			continue
		}
		seen[m.TournamentID] = true

		cfg, found, err := s.pointsConfigs.GetByTournament(ctx, m.TournamentID)
		if err != nil {
			return nil, fmt.Errorf("load points config tournament_id=%s: %w", m.TournamentID, err)
		}
		if !found {
			continue
		}
		if err := points.Validate(cfg); err != nil {
			s.logger.WarnContext(ctx, "points config rejected by validation",
				"tournament_id", m.TournamentID,
				"error", err,
			)
			continue
		}
		configs[m.TournamentID] = cfg
	}
	return configs, nil
}

func (s *LiveScoreService) scoreMatch(ctx context.Context, m match.Match, cfg points.Config) (int, error) {
	rows, err := s.performances.ListByMatch(ctx, m.ID)
	if err != nil {
		return 0, fmt.Errorf("list performances: %w", err)
	}

	scored := 0
	for _, row := range rows {
		breakdown := points.Score(row, cfg)
		record := score.Record{
			MatchID:        m.ID,
			PlayerID:       row.PlayerID,
			Generation:     score.GenerationLive,
			BattingPoints:  breakdown.Batting,
			BowlingPoints:  breakdown.Bowling,
			FieldingPoints: breakdown.Fielding,
			BonusPoints:    breakdown.Bonus,
			TotalPoints:    breakdown.Total,
			ComputedAt:     s.now().UTC(),
		}
		if err := s.scores.Upsert(ctx, record); err != nil {
			return scored, fmt.Errorf("upsert live score player_id=%s: %w", row.PlayerID, err)
		}
		scored++
	}
	return scored, nil
}
