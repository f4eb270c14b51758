package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wicketpool/points-pipeline/internal/domain/match"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, id string) (match.Match, bool, error) {
	query, args, err := qb.Select("*").
		From("matches").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match: %w", err)
	}
	return matchToDomain(row), true, nil
}

func (r *MatchRepository) Create(ctx context.Context, item match.Match) (bool, error) {
	query, args, err := qb.InsertModel("matches", matchInsertFromDomain(item),
		"ON CONFLICT (provider, external_id) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("build create match query: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("create match external_id=%s: %w", item.ExternalID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create match rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *MatchRepository) ListTracked(ctx context.Context) ([]match.Match, error) {
	query, args, err := qb.Select("*").
		From("matches").
		Where(qb.Eq("completed_and_captured", false)).
		OrderBy("provider", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list tracked matches query: %w", err)
	}
	return r.list(ctx, query, args, "list tracked matches")
}

func (r *MatchRepository) ListForCapture(ctx context.Context) ([]match.Match, error) {
	query, args, err := qb.Select("*").
		From("matches").
		Where(
			qb.Expr("status <> ?", string(match.StatusNotStarted)),
			qb.Eq("completed_and_captured", false),
		).
		OrderBy("updated_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches for capture query: %w", err)
	}
	return r.list(ctx, query, args, "list matches for capture")
}

func (r *MatchRepository) ListForAllocation(ctx context.Context) ([]match.Match, error) {
	query, args, err := qb.Select("*").
		From("matches").
		Where(
			qb.Eq("status", string(match.StatusCompleted)),
			qb.Expr("points_status <> ?", string(match.PointsComplete)),
		).
		OrderBy("updated_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches for allocation query: %w", err)
	}
	return r.list(ctx, query, args, "list matches for allocation")
}

func (r *MatchRepository) ListLive(ctx context.Context) ([]match.Match, error) {
	query, args, err := qb.Select("*").
		From("matches").
		Where(
			qb.Eq("status", string(match.StatusLive)),
			qb.Eq("currently_live", true),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list live matches query: %w", err)
	}
	return r.list(ctx, query, args, "list live matches")
}

func (r *MatchRepository) list(ctx context.Context, query string, args []any, op string) ([]match.Match, error) {
	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchToDomain(row))
	}
	return out, nil
}

func (r *MatchRepository) UpdateState(ctx context.Context, id string, status match.Status, statusText string, currentlyLive bool) error {
	query, args, err := qb.Update("matches").
		Set("status", string(status)).
		Set("status_text", statusText).
		Set("currently_live", currentlyLive).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update match state query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update match state: %w", err)
	}
	return nil
}

func (r *MatchRepository) SetPointsStatus(ctx context.Context, id string, status match.PointsStatus) error {
	query, args, err := qb.Update("matches").
		Set("points_status", string(status)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set points status query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set points status: %w", err)
	}
	return nil
}

func (r *MatchRepository) MarkCaptured(ctx context.Context, id string) error {
	query, args, err := qb.Update("matches").
		Set("completed_and_captured", true).
		Set("currently_live", false).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark match captured query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark match captured: %w", err)
	}
	return nil
}

// Claim is the whole mutual exclusion story for match processing: a single
// conditional UPDATE, decided by rows affected. Stale leases older than ttl
// are stolen.
func (r *MatchRepository) Claim(ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (bool, error) {
	query, args, err := qb.Update("matches").
		Set("claimed_by", owner).
		Set("claimed_at", now).
		Where(
			qb.Eq("id", id),
			qb.Expr("(claimed_by IS NULL OR claimed_by = ? OR claimed_at < ?)", owner, now.Add(-ttl)),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build claim match query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("claim match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim match rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *MatchRepository) Release(ctx context.Context, id, owner string) error {
	query, args, err := qb.Update("matches").
		SetExpr("claimed_by", "NULL").
		SetExpr("claimed_at", "NULL").
		Where(
			qb.Eq("id", id),
			qb.Eq("claimed_by", owner),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build release match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("release match: %w", err)
	}
	return nil
}
