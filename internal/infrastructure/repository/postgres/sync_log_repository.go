package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/wicketpool/points-pipeline/internal/domain/synclog"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

type SyncLogRepository struct {
	db *sqlx.DB
}

func NewSyncLogRepository(db *sqlx.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

func (r *SyncLogRepository) Insert(ctx context.Context, entry synclog.Entry) error {
	var detail *string
	if len(entry.Detail) > 0 {
		encoded, err := sonic.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("encode sync log detail: %w", err)
		}
		text := string(encoded)
		detail = &text
	}

	insertModel := syncLogInsertModel{
		RunID:     entry.RunID,
		Stage:     entry.Stage,
		Level:     entry.Level,
		Message:   entry.Message,
		Detail:    detail,
		CreatedAt: entry.CreatedAt,
	}
	query, args, err := qb.InsertModel("sync_runs", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert sync log query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}
	return nil
}

type syncLogInsertModel struct {
	RunID     string    `db:"run_id"`
	Stage     string    `db:"stage"`
	Level     string    `db:"level"`
	Message   string    `db:"message"`
	Detail    *string   `db:"detail"`
	CreatedAt time.Time `db:"created_at"`
}
