package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/wicketpool/points-pipeline/internal/domain/match"
	"github.com/wicketpool/points-pipeline/internal/domain/performance"
	"github.com/wicketpool/points-pipeline/internal/domain/rawdata"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

const (
	defaultCaptureWorkers  = 4
	defaultMatchClaimTTL   = 5 * time.Minute
	defaultCaptureOwnerTag = "capture"
)

// ScorecardCaptureService ingests provider scorecards into the durable
// performance store. It runs eagerly from the first ball: live and completed
// matches both flow through the same read-merge-write path, so a mid-match
// crash loses nothing that the next run cannot rebuild.
type ScorecardCaptureService struct {
	matches      match.Repository
	performances performance.Repository
	rawPayloads  rawdata.Repository
	resolver     *PlayerResolverService
	providers    *ProviderRegistry
	runLog       *RunLogger
	logger       *logging.Logger
	workerCount  int
	claimTTL     time.Duration
	owner        string
	now          func() time.Time
}

type CaptureReport struct {
	MatchesSeen     int
	MatchesCaptured int
	MatchesSkipped  int
	RowsMerged      int
	RowsSkipped     int
}

func NewScorecardCaptureService(
	matches match.Repository,
	performances performance.Repository,
	rawPayloads rawdata.Repository,
	resolver *PlayerResolverService,
	providers *ProviderRegistry,
	runLog *RunLogger,
	logger *logging.Logger,
	workerCount int,
	claimTTL time.Duration,
) *ScorecardCaptureService {
	if logger == nil {
		logger = logging.Default()
	}
	if workerCount < 1 {
		workerCount = defaultCaptureWorkers
	}
	if claimTTL <= 0 {
		claimTTL = defaultMatchClaimTTL
	}
	return &ScorecardCaptureService{
		matches:      matches,
		performances: performances,
		rawPayloads:  rawPayloads,
		resolver:     resolver,
		providers:    providers,
		runLog:       runLog,
		logger:       logger,
		workerCount:  workerCount,
		claimTTL:     claimTTL,
		owner:        leaseOwner(defaultCaptureOwnerTag),
		now:          time.Now,
	}
}

type captureOutcome struct {
	captured   bool
	rowsMerged int
	rowsBad    int
}

func (s *ScorecardCaptureService) Run(ctx context.Context) (CaptureReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScorecardCaptureService.Run")
	defer span.End()

	candidates, err := s.matches.ListForCapture(ctx)
	if err != nil {
		return CaptureReport{}, fmt.Errorf("list matches for capture: %w", err)
	}

	report := CaptureReport{MatchesSeen: len(candidates)}
	if len(candidates) == 0 {
		return report, nil
	}

	pool, err := ants.NewPool(s.workerCount)
	if err != nil {
		return CaptureReport{}, fmt.Errorf("create capture worker pool: %w", err)
	}
	defer pool.Release()

	var capturedCount atomic.Int32
	var skippedCount atomic.Int32
	var rowsMerged atomic.Int32
	var rowsSkipped atomic.Int32

	var workers sync.WaitGroup
	for _, m := range candidates {
		m := m
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			outcome, captureErr := s.captureMatch(ctx, m)
			rowsMerged.Add(int32(outcome.rowsMerged))
			rowsSkipped.Add(int32(outcome.rowsBad))
			if captureErr != nil {
				skippedCount.Add(1)
				s.logCaptureFailure(ctx, m, captureErr)
				return
			}
			if outcome.captured {
				capturedCount.Add(1)
			} else {
				skippedCount.Add(1)
			}
		}); err != nil {
			workers.Done()
			return CaptureReport{}, fmt.Errorf("submit capture task to worker pool: %w", err)
		}
	}
	workers.Wait()

	report.MatchesCaptured = int(capturedCount.Load())
	report.MatchesSkipped = int(skippedCount.Load())
	report.RowsMerged = int(rowsMerged.Load())
	report.RowsSkipped = int(rowsSkipped.Load())

	s.runLog.Event(ctx, "capture", RunLevelInfo, "scorecard capture finished", map[string]any{
		"matches_seen":     report.MatchesSeen,
		"matches_captured": report.MatchesCaptured,
		"matches_skipped":  report.MatchesSkipped,
		"rows_merged":      report.RowsMerged,
		"rows_skipped":     report.RowsSkipped,
	})
	return report, nil
}

func (s *ScorecardCaptureService) captureMatch(ctx context.Context, m match.Match) (captureOutcome, error) {
	claimed, err := s.matches.Claim(ctx, m.ID, s.owner, s.now().UTC(), s.claimTTL)
	if err != nil {
		return captureOutcome{}, fmt.Errorf("claim match: %w", err)
	}
	if !claimed {
		s.logger.DebugContext(ctx, "match held by another worker, skipping", "match_id", m.ID)
		return captureOutcome{}, nil
	}
	defer func() {
		if releaseErr := s.matches.Release(ctx, m.ID, s.owner); releaseErr != nil {
			s.logger.WarnContext(ctx, "release match claim failed", "match_id", m.ID, "error", releaseErr)
		}
	}()

	provider, err := s.providers.Get(m.Provider)
	if err != nil {
		return captureOutcome{}, err
	}

	card, err := provider.FetchScorecard(ctx, m.ExternalID)
	if err != nil {
		return captureOutcome{}, fmt.Errorf("fetch scorecard external_id=%s: %w", m.ExternalID, err)
	}
	if card.State == MatchStateNotStarted {
		return captureOutcome{}, nil
	}

	next := match.NextStatus(m.Status, matchStatusFromState(card.State))
	statusText := firstNonEmptyString(card.StatusText, m.StatusText)
	if next != m.Status || statusText != m.StatusText {
		if err := s.matches.UpdateState(ctx, m.ID, next, statusText, next == match.StatusLive); err != nil {
			return captureOutcome{}, fmt.Errorf("update match state: %w", err)
		}
	}

	outcome := captureOutcome{}
	deltas, names := buildPerformanceDeltas(card, string(next))
	for externalID, delta := range deltas {
		p, resolveErr := s.resolver.Resolve(ctx, m, externalID, names[externalID])
		if resolveErr != nil {
			if IsRowSkippable(resolveErr) {
				outcome.rowsBad++
				s.logger.WarnContext(ctx, "performance row skipped",
					"match_id", m.ID,
					"external_player_id", externalID,
					"error", resolveErr,
				)
				continue
			}
			return outcome, resolveErr
		}

		if err := s.mergeRow(ctx, m, p.ID, *delta); err != nil {
			return outcome, err
		}
		outcome.rowsMerged++
	}

	if len(card.Raw) > 0 {
		if err := s.stageRawPayload(ctx, m, card.Raw); err != nil {
			// Staging feeds the archive only; losing one snapshot does not
			// invalidate the merged rows.
			s.logger.WarnContext(ctx, "stage raw payload failed", "match_id", m.ID, "error", err)
		}
	}

	outcome.captured = true
	return outcome, nil
}

func (s *ScorecardCaptureService) mergeRow(ctx context.Context, m match.Match, playerID string, delta performance.Delta) error {
	existing, found, err := s.performances.Get(ctx, m.ID, playerID)
	if err != nil {
		return fmt.Errorf("read performance match_id=%s player_id=%s: %w", m.ID, playerID, err)
	}
	if !found {
		existing = performance.Record{
			MatchID:      m.ID,
			TournamentID: m.TournamentID,
			PlayerID:     playerID,
		}
	}

	merged := performance.Merge(existing, delta)
	merged.UpdatedAt = s.now().UTC()
	if err := s.performances.Upsert(ctx, merged); err != nil {
		return fmt.Errorf("upsert performance match_id=%s player_id=%s: %w", m.ID, playerID, err)
	}
	return nil
}

func (s *ScorecardCaptureService) stageRawPayload(ctx context.Context, m match.Match, raw []byte) error {
	sum := sha256.Sum256(raw)
	return s.rawPayloads.Upsert(ctx, rawdata.Payload{
		Provider:    m.Provider,
		MatchID:     m.ID,
		PayloadJSON: string(raw),
		PayloadHash: hex.EncodeToString(sum[:]),
		FetchedAt:   s.now().UTC(),
	})
}

func (s *ScorecardCaptureService) logCaptureFailure(ctx context.Context, m match.Match, err error) {
	if errors.Is(err, ErrUpstreamUnavailable) {
		s.logger.WarnContext(ctx, "provider unavailable, match deferred to next run",
			"match_id", m.ID,
			"provider", m.Provider,
			"error", err,
		)
		s.runLog.Event(ctx, "capture", RunLevelWarn, "match deferred", map[string]any{
			"match_id": m.ID,
			"provider": m.Provider,
		})
		return
	}
	s.logger.ErrorContext(ctx, "scorecard capture failed", "match_id", m.ID, "error", err)
	s.runLog.Event(ctx, "capture", RunLevelError, "capture failed", map[string]any{
		"match_id": m.ID,
		"error":    err.Error(),
	})
}

func matchStatusFromState(state MatchState) match.Status {
	switch state {
	case MatchStateCompleted:
		return match.StatusCompleted
	case MatchStateLive:
		return match.StatusLive
	default:
		return match.StatusNotStarted
	}
}

// buildPerformanceDeltas folds a scorecard into one delta per player. A
// batter appearing in multiple innings keeps the most recent figures; the
// adapters already aggregate fielding counts per player.
func buildPerformanceDeltas(card ExternalScorecard, matchStatus string) (map[string]*performance.Delta, map[string]string) {
	deltas := make(map[string]*performance.Delta)
	names := make(map[string]string)

	get := func(externalID, name string) *performance.Delta {
		d, ok := deltas[externalID]
		if !ok {
			d = &performance.Delta{MatchStatus: &matchStatus}
			deltas[externalID] = d
		}
		if name != "" {
			names[externalID] = name
			n := name
			d.PlayerName = &n
		}
		return d
	}

	for _, b := range card.Batting {
		if b.PlayerExternalID == "" {
			continue
		}
		b := b
		d := get(b.PlayerExternalID, b.PlayerName)
		d.BattingRuns = &b.Runs
		d.BattingBallsFaced = &b.BallsFaced
		d.BattingSixes = &b.Sixes
		d.BattingStrikeRate = &b.StrikeRate
		d.DismissalText = &b.DismissalText
	}

	for _, b := range card.Bowling {
		if b.PlayerExternalID == "" {
			continue
		}
		b := b
		d := get(b.PlayerExternalID, b.PlayerName)
		d.BowlingOvers = &b.Overs
		d.BowlingWickets = &b.Wickets
		d.BowlingRunsConceded = &b.RunsConceded
		d.BowlingMaidens = &b.Maidens
		d.BowlingNoBallsWides = &b.NoBallsWides
		d.BowlingEconomy = &b.Economy
	}

	for _, f := range card.Fielding {
		if f.PlayerExternalID == "" {
			continue
		}
		f := f
		d := get(f.PlayerExternalID, f.PlayerName)
		d.FieldingCatches = &f.Catches
		d.FieldingRunOuts = &f.RunOuts
		d.FieldingStumpings = &f.Stumpings
	}

	return deltas, names
}
