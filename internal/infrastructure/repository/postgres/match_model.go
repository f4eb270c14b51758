package postgres

import (
	"time"

	"github.com/wicketpool/points-pipeline/internal/domain/match"
)

type matchTableModel struct {
	ID                   string     `db:"id"`
	TournamentID         string     `db:"tournament_id"`
	Provider             string     `db:"provider"`
	ExternalID           string     `db:"external_id"`
	Name                 string     `db:"name"`
	MatchType            string     `db:"match_type"`
	Status               string     `db:"status"`
	StatusText           string     `db:"status_text"`
	CurrentlyLive        bool       `db:"currently_live"`
	CompletedAndCaptured bool       `db:"completed_and_captured"`
	PointsStatus         string     `db:"points_status"`
	ClaimedBy            *string    `db:"claimed_by"`
	ClaimedAt            *time.Time `db:"claimed_at"`
	StartsAt             *time.Time `db:"starts_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

type matchInsertModel struct {
	ID            string     `db:"id"`
	TournamentID  string     `db:"tournament_id"`
	Provider      string     `db:"provider"`
	ExternalID    string     `db:"external_id"`
	Name          string     `db:"name"`
	MatchType     string     `db:"match_type"`
	Status        string     `db:"status"`
	StatusText    string     `db:"status_text"`
	CurrentlyLive bool       `db:"currently_live"`
	PointsStatus  string     `db:"points_status"`
	StartsAt      *time.Time `db:"starts_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func matchInsertFromDomain(item match.Match) matchInsertModel {
	return matchInsertModel{
		ID:            item.ID,
		TournamentID:  item.TournamentID,
		Provider:      item.Provider,
		ExternalID:    item.ExternalID,
		Name:          item.Name,
		MatchType:     item.MatchType,
		Status:        string(item.Status),
		StatusText:    item.StatusText,
		CurrentlyLive: item.CurrentlyLive,
		PointsStatus:  string(item.PointsStatus),
		StartsAt:      item.StartsAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

func matchToDomain(row matchTableModel) match.Match {
	out := match.Match{
		ID:                   row.ID,
		TournamentID:         row.TournamentID,
		Provider:             row.Provider,
		ExternalID:           row.ExternalID,
		Name:                 row.Name,
		MatchType:            row.MatchType,
		Status:               match.Status(row.Status),
		StatusText:           row.StatusText,
		CurrentlyLive:        row.CurrentlyLive,
		CompletedAndCaptured: row.CompletedAndCaptured,
		PointsStatus:         match.PointsStatus(row.PointsStatus),
		ClaimedAt:            row.ClaimedAt,
		StartsAt:             row.StartsAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if row.ClaimedBy != nil {
		out.ClaimedBy = *row.ClaimedBy
	}
	return out
}
