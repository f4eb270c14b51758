package postgres

import (
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/player"
)

type playerTableModel struct {
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

func playerToDomain(row playerTableModel) player.Player {
	return player.Player{
		ID:           row.ID,
		TournamentID: row.TournamentID,
		Provider:     row.Provider,
		ExternalID:   row.ExternalID,
		Name:         row.Name,
		Role:         row.Role,
		TeamName:     row.TeamName,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
