package usecase

import (
	"context"
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/synclog"
	idgen "github.com/wicketpool/points-pipeline/internal/platform/id"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
)

const (
	RunLevelInfo  = "info"
	RunLevelWarn  = "warn"
	RunLevelError = "error"
)

// RunLogger writes the append-only audit trail for one pipeline run. Writes
// are best effort: a failed insert is logged and swallowed, it never stops
// the pipeline.
type RunLogger struct {
	repo   synclog.Repository
	logger *logging.Logger
	runID  string
	now    func() time.Time
}

func NewRunLogger(repo synclog.Repository, gen idgen.Generator, logger *logging.Logger) *RunLogger {
	if logger == nil {
		logger = logging.Default()
	}

	runID := ""
	if gen != nil {
		if id, err := gen.NewID(); err == nil {
			runID = id
		}
	}

	return &RunLogger{
		repo:   repo,
		logger: logger,
		runID:  runID,
		now:    time.Now,
	}
}

func (l *RunLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

func (l *RunLogger) Event(ctx context.Context, stage, level, message string, detail map[string]any) {
	if l == nil || l.repo == nil {
		return
	}

	entry := synclog.Entry{
		RunID:     l.runID,
		Stage:     stage,
		Level:     level,
		Message:   message,
		Detail:    detail,
		CreatedAt: l.now().UTC(),
	}
	if err := l.repo.Insert(ctx, entry); err != nil {
		l.logger.WarnContext(ctx, "run log write failed", "stage", stage, "message", message, "error", err)
	}
}
