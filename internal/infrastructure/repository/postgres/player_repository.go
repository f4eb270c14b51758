package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wicketpool/points-pipeline/internal/domain/player"
	qb "github.com/wicketpool/points-pipeline/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) GetByExternalID(ctx context.Context, tournamentID, provider, externalID string) (player.Player, bool, error) {
	query, args, err := qb.Select("*").
		From("players").
		Where(
			qb.Eq("tournament_id", tournamentID),
			qb.Eq("provider", provider),
			qb.Eq("external_id", externalID),
		).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build get player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
			return r.getByExternalIDLiteral(ctx, tournamentID, provider, externalID)
		}
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player: %w", err)
	}
	return playerToDomain(row), true, nil
}

// getByExternalIDLiteral retries the lookup with values inlined as literals
// for poolers that drop the unnamed prepared statement between parse and
// execute.
func (r *PlayerRepository) getByExternalIDLiteral(ctx context.Context, tournamentID, provider, externalID string) (player.Player, bool, error) {
	query := "SELECT * FROM players WHERE tournament_id = " + quoteLiteral(tournamentID) +
		" AND provider = " + quoteLiteral(provider) +
		" AND external_id = " + quoteLiteral(externalID)

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player literal fallback: %w", err)
	}
	return playerToDomain(row), true, nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, item player.Player) error {
	insertModel := playerInsertModel{
		ID:           item.ID,
		TournamentID: item.TournamentID,
		Provider:     item.Provider,
		ExternalID:   item.ExternalID,
		Name:         item.Name,
		Role:         item.Role,
		TeamName:     item.TeamName,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	query, args, err := qb.InsertModel("players", insertModel, `ON CONFLICT (tournament_id, provider, external_id)
DO UPDATE SET
    name = EXCLUDED.name,
    role = EXCLUDED.role,
    team_name = EXCLUDED.team_name,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert player query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert player external_id=%s: %w", item.ExternalID, err)
	}
	return nil
}

type playerInsertModel struct {
	ID           string    `db:"id"`
	TournamentID string    `db:"tournament_id"`
	Provider     string    `db:"provider"`
	ExternalID   string    `db:"external_id"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`
	TeamName     string    `db:"team_name"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
