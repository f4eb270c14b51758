package score

import "time"

// Generation separates the provisional live scores (rewritten on every live
// pass, deleted at finalization) from the committed final scores (written
// once, later touched only by bonus corrections).
type Generation string

const (
	GenerationLive  Generation = "live"
	GenerationFinal Generation = "final"
)

type Record struct {
	MatchID        string
	PlayerID       string
	Generation     Generation
	BattingPoints  int
	BowlingPoints  int
	FieldingPoints int
	BonusPoints    int
	TotalPoints    int
	ComputedAt     time.Time
}
