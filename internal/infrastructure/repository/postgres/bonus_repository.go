package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wicketpool/points-pipeline/internal/domain/bonus"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

type BonusRepository struct {
	db *sqlx.DB
}

func NewBonusRepository(db *sqlx.DB) *BonusRepository {
	return &BonusRepository{db: db}
}

// SeedPlaceholder inserts the empty per-match entry operators later fill in.
// The partial unique index on (match_id, player_id) WHERE NOT captured makes
// reseeding a no-op and keeps operator inserts from queueing the same
// correction twice.
func (r *BonusRepository) SeedPlaceholder(ctx context.Context, matchID string) error {
	query := `INSERT INTO bonus_corrections (match_id, player_id, player_of_the_match, hat_tricks, captured)
VALUES ($1, '', FALSE, 0, FALSE)
ON CONFLICT (match_id, player_id) WHERE NOT captured DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, matchID); err != nil {
		return fmt.Errorf("seed bonus placeholder: %w", err)
	}
	return nil
}

func (r *BonusRepository) ListPending(ctx context.Context) ([]bonus.Correction, error) {
	query, args, err := qb.Select("*").
		From("bonus_corrections").
		Where(
			qb.Eq("captured", false),
			qb.Expr("player_id <> ''"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list pending corrections query: %w", err)
	}

	var rows []bonusCorrectionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pending corrections: %w", err)
	}

	out := make([]bonus.Correction, 0, len(rows))
	for _, row := range rows {
		out = append(out, bonus.Correction{
			ID:               nullStringToInt64(row.ID),
			MatchID:          row.MatchID,
			PlayerID:         row.PlayerID,
			PlayerOfTheMatch: row.PlayerOfTheMatch,
			HatTricks:        row.HatTricks,
			Captured:         row.Captured,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		})
	}
	return out, nil
}

func (r *BonusRepository) MarkCaptured(ctx context.Context, id int64) error {
	query, args, err := qb.Update("bonus_corrections").
		Set("captured", true).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark correction captured query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark correction captured: %w", err)
	}
	return nil
}

type bonusCorrectionTableModel struct {
	// Scanned as text because bigserial values come back unparsed when
	// binary prepared results are disabled.
	ID               sql.NullString `db:"id"`
	MatchID          string         `db:"match_id"`
	PlayerID         string         `db:"player_id"`
	PlayerOfTheMatch bool           `db:"player_of_the_match"`
	HatTricks        int            `db:"hat_tricks"`
	Captured         bool           `db:"captured"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}
