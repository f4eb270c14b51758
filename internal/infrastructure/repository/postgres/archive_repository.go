package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/wicketpool/points-pipeline/internal/domain/archive"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

const uniqueViolationCode = "23505"

type ArchiveRepository struct {
	db *sqlx.DB
}

func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func (r *ArchiveRepository) Insert(ctx context.Context, snapshot archive.Snapshot) error {
	insertModel := archiveSnapshotInsertModel{
		MatchID:      snapshot.MatchID,
		SnapshotType: snapshot.SnapshotType,
		Provider:     snapshot.Provider,
		Payload:      snapshot.PayloadJSON,
		CreatedAt:    snapshot.CreatedAt,
	}
	query, args, err := qb.InsertModel("match_archives", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert archive snapshot query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return archive.ErrDuplicate
		}
		return fmt.Errorf("insert archive snapshot match=%s type=%s: %w", snapshot.MatchID, snapshot.SnapshotType, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}

type archiveSnapshotInsertModel struct {
	MatchID      string    `db:"match_id"`
	SnapshotType string    `db:"snapshot_type"`
	Provider     string    `db:"provider"`
	Payload      string    `db:"payload"`
	CreatedAt    time.Time `db:"created_at"`
}
