package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wicketpool/points-pipeline/external/cricapi"
	"github.com/wicketpool/points-pipeline/external/cricmonks"
	"github.com/wicketpool/points-pipeline/external/notify"
	"github.com/wicketpool/points-pipeline/internal/config"
	"github.com/wicketpool/points-pipeline/internal/domain/points"
	cacherepo "github.com/wicketpool/points-pipeline/internal/infrastructure/repository/cache"
	"github.com/wicketpool/points-pipeline/internal/infrastructure/repository/postgres"
	basecache "github.com/wicketpool/points-pipeline/internal/platform/cache"
	idgen "github.com/wicketpool/points-pipeline/internal/platform/id"
	"github.com/wicketpool/points-pipeline/internal/platform/logging"
	"github.com/wicketpool/points-pipeline/internal/platform/resilience"
	"github.com/wicketpool/points-pipeline/internal/usecase"
)

// Runner owns the assembled pipeline and its database handle.
type Runner struct {
	Pipeline *usecase.PipelineService

	db     *sqlx.DB
	logger *logging.Logger
}

func NewRunner(cfg config.Config, logger *logging.Logger) (*Runner, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	matchRepo := postgres.NewMatchRepository(db)
	playerRepo := postgres.NewPlayerRepository(db)
	performanceRepo := postgres.NewPerformanceRepository(db)
	scoreRepo := postgres.NewScoreRepository(db)
	bonusRepo := postgres.NewBonusRepository(db)
	archiveRepo := postgres.NewArchiveRepository(db)
	rawDataRepo := postgres.NewRawDataRepository(db)
	syncLogRepo := postgres.NewSyncLogRepository(db)

	var pointsRepo points.Repository = postgres.NewPointsConfigRepository(db)
	if cfg.CacheEnabled {
		pointsRepo = cacherepo.NewPointsConfigRepository(pointsRepo, basecache.NewStore(cfg.CacheTTL))
	}

	var providers []usecase.ScorecardProvider
	if cfg.CricAPIEnabled {
		providers = append(providers, cricapi.NewClient(cricapi.ClientConfig{
			BaseURL:    cfg.CricAPIBaseURL,
			APIKey:     cfg.CricAPIKey,
			Timeout:    cfg.CricAPITimeout,
			MaxRetries: cfg.CricAPIMaxRetries,
			Logger:     logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.CricAPICircuitEnabled,
				FailureThreshold: cfg.CricAPICircuitFailureCount,
				OpenTimeout:      cfg.CricAPICircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.CricAPICircuitHalfOpenMaxReq,
			},
		}))
	}
	if cfg.CricmonksEnabled {
		providers = append(providers, cricmonks.NewClient(cricmonks.ClientConfig{
			BaseURL:    cfg.CricmonksBaseURL,
			Token:      cfg.CricmonksToken,
			Timeout:    cfg.CricmonksTimeout,
			MaxRetries: cfg.CricmonksMaxRetries,
			Logger:     logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.CricmonksCircuitEnabled,
				FailureThreshold: cfg.CricmonksCircuitFailureCount,
				OpenTimeout:      cfg.CricmonksCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.CricmonksCircuitHalfOpenMaxReq,
			},
		}))
	}
	if len(providers) == 0 {
		_ = db.Close()
		return nil, fmt.Errorf("no scorecard providers enabled")
	}
	registry := usecase.NewProviderRegistry(providers...)

	runLog := usecase.NewRunLogger(syncLogRepo, idgen.NewRandomGenerator(), logger)

	resolver := usecase.NewPlayerResolverService(playerRepo, registry, idgen.NewRandomGenerator(), logger)
	lifecycle := usecase.NewMatchLifecycleService(matchRepo, registry, runLog, logger, cfg.TournamentID, idgen.NewRandomGenerator())
	capture := usecase.NewScorecardCaptureService(
		matchRepo,
		performanceRepo,
		rawDataRepo,
		resolver,
		registry,
		runLog,
		logger,
		cfg.CaptureWorkers,
		cfg.MatchClaimTTL,
	)
	liveScores := usecase.NewLiveScoreService(
		matchRepo,
		performanceRepo,
		pointsRepo,
		scoreRepo,
		runLog,
		logger,
		cfg.LiveScoreConcurrency,
	)
	allocation := usecase.NewPointsAllocationService(
		matchRepo,
		performanceRepo,
		pointsRepo,
		scoreRepo,
		bonusRepo,
		archiveRepo,
		rawDataRepo,
		runLog,
		logger,
		cfg.MatchClaimTTL,
	)
	bonuses := usecase.NewBonusCorrectionService(
		bonusRepo,
		performanceRepo,
		pointsRepo,
		scoreRepo,
		runLog,
		logger,
	)

	var notifier usecase.RunNotifier
	if cfg.WebhookEnabled {
		publisher, err := notify.NewWebhookPublisher(notify.WebhookConfig{
			Endpoint:    cfg.WebhookEndpoint,
			BearerToken: cfg.WebhookToken,
			Timeout:     cfg.WebhookTimeout,
			MaxRetries:  cfg.WebhookRetries,
			Logger:      logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.WebhookCircuitEnabled,
				FailureThreshold: cfg.WebhookCircuitFailureCount,
				OpenTimeout:      cfg.WebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.WebhookCircuitHalfOpenMaxReq,
			},
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("build webhook publisher: %w", err)
		}
		notifier = publisher
	}

	pipeline := usecase.NewPipelineService(
		lifecycle,
		capture,
		liveScores,
		allocation,
		bonuses,
		notifier,
		runLog,
		logger,
	)

	logger.Info("pipeline assembled",
		"providers", registry.Names(),
		"cache_enabled", cfg.CacheEnabled,
		"webhook_enabled", cfg.WebhookEnabled,
	)

	return &Runner{
		Pipeline: pipeline,
		db:       db,
		logger:   logger,
	}, nil
}

func (r *Runner) Close() error {
	return r.db.Close()
}
