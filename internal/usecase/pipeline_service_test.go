package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/match"
	"github.com/wicketpool/points-pipeline/internal/domain/points"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

type recordingNotifier struct {
	report RunReport
	called bool
	err    error
}

func (n *recordingNotifier) PublishRunReport(_ context.Context, report RunReport) error {
	n.called = true
	n.report = report
	return n.err
}

type trackedListFailingMatchRepo struct {
	*memMatchRepo
}

func (r *trackedListFailingMatchRepo) ListTracked(context.Context) ([]match.Match, error) {
	return nil, errors.New("matches table unreachable")
}

func pipelineFixture(matches match.Repository, notifier RunNotifier) *PipelineService {
	perfs := newMemPerformanceRepo()
	scores := newMemScoreRepo()
	bonuses := &memBonusRepo{}
	configRepo := &memPointsConfigRepo{configs: map[string]points.Config{}}
	registry := NewProviderRegistry(&stubProvider{name: "stub"})
	runLog, _ := testRunLogger()
	logger := logging.NewNop()

	resolver := NewPlayerResolverService(newMemPlayerRepo(), registry, &fixedIDGen{}, logger)
	lifecycle := NewMatchLifecycleService(matches, registry, runLog, logger, "", nil)
	capture := NewScorecardCaptureService(matches, perfs, newMemRawDataRepo(), resolver, registry, runLog, logger, 1, time.Minute)
	liveScores := NewLiveScoreService(matches, perfs, configRepo, scores, runLog, logger, 1)
	allocation := NewPointsAllocationService(matches, perfs, configRepo, scores, bonuses, &memArchiveRepo{}, newMemRawDataRepo(), runLog, logger, time.Minute)
	bonusService := NewBonusCorrectionService(bonuses, perfs, configRepo, scores, runLog, logger)

	return NewPipelineService(lifecycle, capture, liveScores, allocation, bonusService, notifier, runLog, logger)
}

func TestPipeline_RunOncePublishesReport(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	service := pipelineFixture(newMemMatchRepo(), notifier)

	report, err := service.RunOnce(t.Context())
	if err != nil {
		t.Fatalf("pipeline run failed: %v", err)
	}
	if report.RunID == "" {
		t.Fatal("run id missing from report")
	}
	if len(report.StageErrors) != 0 {
		t.Fatalf("empty database must produce a clean run: %v", report.StageErrors)
	}
	if !notifier.called {
		t.Fatal("notifier not invoked")
	}
	if notifier.report.RunID != report.RunID {
		t.Fatalf("published report mismatch: %q vs %q", notifier.report.RunID, report.RunID)
	}
}

func TestPipeline_StageFailureDoesNotStopLaterStages(t *testing.T) {
	t.Parallel()

	matches := &trackedListFailingMatchRepo{memMatchRepo: newMemMatchRepo()}
	notifier := &recordingNotifier{}
	service := pipelineFixture(matches, notifier)

	report, err := service.RunOnce(t.Context())
	if err != nil {
		t.Fatalf("pipeline must absorb stage errors: %v", err)
	}
	if len(report.StageErrors) != 1 {
		t.Fatalf("unexpected stage errors: %v", report.StageErrors)
	}
	if !strings.HasPrefix(report.StageErrors[0], "lifecycle:") {
		t.Fatalf("stage error not attributed: %q", report.StageErrors[0])
	}
	// the broken lifecycle stage must not suppress the report publication
	if !notifier.called {
		t.Fatal("notifier not invoked after stage failure")
	}
}

func TestPipeline_NotifierFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{err: errors.New("webhook endpoint down")}
	service := pipelineFixture(newMemMatchRepo(), notifier)

	if _, err := service.RunOnce(t.Context()); err != nil {
		t.Fatalf("notifier failure must never fail the run: %v", err)
	}
}

func TestPipeline_NilNotifierIsAllowed(t *testing.T) {
	t.Parallel()

	service := pipelineFixture(newMemMatchRepo(), nil)
	if _, err := service.RunOnce(t.Context()); err != nil {
		t.Fatalf("pipeline run failed: %v", err)
	}
}
