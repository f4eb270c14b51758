package performance

// Delta carries a partial update for one (match, player) row. Nil fields are
// left untouched on merge; set fields overwrite. Providers report each
// discipline separately, so a single sync pass usually fills only one group.
type Delta struct {
	PlayerName *string

	BattingRuns       *int
	BattingBallsFaced *int
	BattingSixes      *int
	BattingStrikeRate *float64
	DismissalText     *string

	BowlingOvers        *float64
	BowlingWickets      *int
	BowlingRunsConceded *int
	BowlingMaidens      *int
	BowlingNoBallsWides *int
	BowlingEconomy      *float64

	FieldingCatches   *int
	FieldingRunOuts   *int
	FieldingStumpings *int

	PlayerOfTheMatch *bool
	HatTricks        *int

	MatchStatus *string
}

// HasBatting reports whether the delta carries any batting figures.
func (d Delta) HasBatting() bool {
	return d.BattingRuns != nil || d.BattingBallsFaced != nil || d.BattingSixes != nil ||
		d.BattingStrikeRate != nil || d.DismissalText != nil
}

// HasBowling reports whether the delta carries any bowling figures.
func (d Delta) HasBowling() bool {
	return d.BowlingOvers != nil || d.BowlingWickets != nil || d.BowlingRunsConceded != nil ||
		d.BowlingMaidens != nil || d.BowlingNoBallsWides != nil || d.BowlingEconomy != nil
}

// HasFielding reports whether the delta carries any fielding figures.
func (d Delta) HasFielding() bool {
	return d.FieldingCatches != nil || d.FieldingRunOuts != nil || d.FieldingStumpings != nil
}

// Merge applies delta on top of existing and returns the combined record.
// Fields absent from the delta keep their existing values, so deltas touching
// disjoint field sets can be applied in any order with the same result.
func Merge(existing Record, delta Delta) Record {
	out := existing

	if delta.PlayerName != nil {
		out.PlayerName = *delta.PlayerName
	}

	if delta.BattingRuns != nil {
		out.BattingRuns = *delta.BattingRuns
	}
	if delta.BattingBallsFaced != nil {
		out.BattingBallsFaced = *delta.BattingBallsFaced
	}
	if delta.BattingSixes != nil {
		out.BattingSixes = *delta.BattingSixes
	}
	if delta.BattingStrikeRate != nil {
		out.BattingStrikeRate = *delta.BattingStrikeRate
	}
	if delta.DismissalText != nil {
		out.DismissalText = *delta.DismissalText
	}

	if delta.BowlingOvers != nil {
		out.BowlingOvers = *delta.BowlingOvers
	}
	if delta.BowlingWickets != nil {
		out.BowlingWickets = *delta.BowlingWickets
	}
	if delta.BowlingRunsConceded != nil {
		out.BowlingRunsConceded = *delta.BowlingRunsConceded
	}
	if delta.BowlingMaidens != nil {
		out.BowlingMaidens = *delta.BowlingMaidens
	}
	if delta.BowlingNoBallsWides != nil {
		out.BowlingNoBallsWides = *delta.BowlingNoBallsWides
	}
	if delta.BowlingEconomy != nil {
		out.BowlingEconomy = *delta.BowlingEconomy
	}

	if delta.FieldingCatches != nil {
		out.FieldingCatches = *delta.FieldingCatches
	}
	if delta.FieldingRunOuts != nil {
		out.FieldingRunOuts = *delta.FieldingRunOuts
	}
	if delta.FieldingStumpings != nil {
		out.FieldingStumpings = *delta.FieldingStumpings
	}

	if delta.PlayerOfTheMatch != nil {
		out.PlayerOfTheMatch = *delta.PlayerOfTheMatch
	}
	if delta.HatTricks != nil {
		out.HatTricks = *delta.HatTricks
	}

	if delta.MatchStatus != nil {
		out.MatchStatus = *delta.MatchStatus
	}

	return out
}
