package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

// RunNotifier receives the run summary after a pipeline pass. Publishing is
// best effort.
type RunNotifier interface {
	PublishRunReport(ctx context.Context, report RunReport) error
}

// RunReport is the audit summary of one pipeline pass.
type RunReport struct {
	RunID      string `json:"run_id"`
	StartedAt  string `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`

	MatchesTracked   int `json:"matches_tracked"`
	MatchesCreated   int `json:"matches_created"`
	MatchesCaptured  int `json:"matches_captured"`
	RowsMerged       int `json:"rows_merged"`
	LiveMatches      int `json:"live_matches"`
	LiveRowsScored   int `json:"live_rows_scored"`
	MatchesFinalized int `json:"matches_finalized"`
	MatchesFailed    int `json:"matches_failed"`
	RowsAllocated    int `json:"rows_allocated"`
	BonusApplied     int `json:"bonus_applied"`

	StageErrors []string `json:"stage_errors,omitempty"`
}

// PipelineService runs the stages of one batch pass in order. A stage error
// is recorded and the remaining stages still run: lifecycle trouble must not
// block bonus corrections, and vice versa.
type PipelineService struct {
	lifecycle  *MatchLifecycleService
	capture    *ScorecardCaptureService
	liveScores *LiveScoreService
	allocation *PointsAllocationService
	bonuses    *BonusCorrectionService
	notifier   RunNotifier
	runLog     *RunLogger
	logger     *logging.Logger
	now        func() time.Time
}

func NewPipelineService(
	lifecycle *MatchLifecycleService,
	capture *ScorecardCaptureService,
	liveScores *LiveScoreService,
	allocation *PointsAllocationService,
	bonuses *BonusCorrectionService,
	notifier RunNotifier,
	runLog *RunLogger,
	logger *logging.Logger,
) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PipelineService{
		lifecycle:  lifecycle,
		capture:    capture,
		liveScores: liveScores,
		allocation: allocation,
		bonuses:    bonuses,
		notifier:   notifier,
		runLog:     runLog,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *PipelineService) RunOnce(ctx context.Context) (RunReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.RunOnce")
	defer span.End()

	started := s.now().UTC()
	report := RunReport{
		RunID:     s.runLog.RunID(),
		StartedAt: started.Format(time.RFC3339),
	}

	s.runLog.Event(ctx, "pipeline", RunLevelInfo, "pipeline run started", nil)

	if lifecycleReport, err := s.lifecycle.SyncStates(ctx); err != nil {
		report.StageErrors = append(report.StageErrors, fmt.Sprintf("lifecycle: %v", err))
		s.logger.ErrorContext(ctx, "lifecycle stage failed", "error", err)
	} else {
		report.MatchesTracked = lifecycleReport.MatchesTracked
		report.MatchesCreated = lifecycleReport.MatchesCreated
	}

	if captureReport, err := s.capture.Run(ctx); err != nil {
		report.StageErrors = append(report.StageErrors, fmt.Sprintf("capture: %v", err))
		s.logger.ErrorContext(ctx, "capture stage failed", "error", err)
	} else {
		report.MatchesCaptured = captureReport.MatchesCaptured
		report.RowsMerged = captureReport.RowsMerged
	}

	if liveReport, err := s.liveScores.Run(ctx); err != nil {
		report.StageErrors = append(report.StageErrors, fmt.Sprintf("live_scoring: %v", err))
		s.logger.ErrorContext(ctx, "live scoring stage failed", "error", err)
	} else {
		report.LiveMatches = liveReport.MatchesLive
		report.LiveRowsScored = liveReport.RowsScored
	}

	if allocationReport, err := s.allocation.Run(ctx); err != nil {
		report.StageErrors = append(report.StageErrors, fmt.Sprintf("allocation: %v", err))
		s.logger.ErrorContext(ctx, "allocation stage failed", "error", err)
	} else {
		report.MatchesFinalized = allocationReport.MatchesFinalized
		report.MatchesFailed = allocationReport.MatchesFailed
		report.RowsAllocated = allocationReport.RowsAllocated
	}

	if bonusReport, err := s.bonuses.Run(ctx); err != nil {
		report.StageErrors = append(report.StageErrors, fmt.Sprintf("bonus: %v", err))
		s.logger.ErrorContext(ctx, "bonus stage failed", "error", err)
	} else {
		report.BonusApplied = bonusReport.Applied
	}

	report.DurationMs = s.now().UTC().Sub(started).Milliseconds()
	s.runLog.Event(ctx, "pipeline", RunLevelInfo, "pipeline run finished", map[string]any{
		"duration_ms":       report.DurationMs,
		"matches_captured":  report.MatchesCaptured,
		"matches_finalized": report.MatchesFinalized,
		"stage_errors":      len(report.StageErrors),
	})

	if s.notifier != nil {
		if err := s.notifier.PublishRunReport(ctx, report); err != nil {
			s.logger.WarnContext(ctx, "run report publish failed", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "pipeline run finished",
		"run_id", report.RunID,
		"duration_ms", report.DurationMs,
		"matches_tracked", report.MatchesTracked,
		"matches_captured", report.MatchesCaptured,
		"matches_finalized", report.MatchesFinalized,
		"rows_allocated", report.RowsAllocated,
		"bonus_applied", report.BonusApplied,
		"stage_errors", len(report.StageErrors),
	)
	return report, nil
}
