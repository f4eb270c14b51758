package bonus

import "time"

// Correction is the late-award entry attached to a finalized match. It is
// seeded empty at finalization, filled in by an operator, and consumed by the
// bonus poller exactly once: Captured flips false→true and never back.
type Correction struct {
	ID               int64
	MatchID          string
	PlayerID         string
	PlayerOfTheMatch bool
	HatTricks        int
	Captured         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
