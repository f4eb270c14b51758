package player

import "time"

// Player is created lazily the first time a provider scorecard mentions an
// external id we have never seen. Name, role, and team follow upstream on
// every later sync when they differ.
type Player struct {
	ID           string
	TournamentID string
	Provider     string
	ExternalID   string
	Name         string
	Role         string
	TeamName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
