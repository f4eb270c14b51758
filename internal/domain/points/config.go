package points

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// Config is the per-tournament scoring weight table. Weights are whole
// points; penalty weights (duck, slow strike rate, extras, high economy) are
// stored as negative values.
type Config struct {
	TournamentID string `validate:"required"`

	BattingRun      int
	BattingSix      int
	BattingDuck     int
	BattingFastRate int
	BattingSlowRate int
	Batting30       int `validate:"gte=0"`
	Batting50       int `validate:"gte=0"`
	Batting100      int `validate:"gte=0"`
	Batting200      int `validate:"gte=0"`

	BowlingWicket       int
	BowlingMaiden       int
	BowlingNoBallWide   int
	BowlingLowEconomy   int
	BowlingHighEconomy  int
	BowlingThreeWickets int `validate:"gte=0"`
	BowlingFiveWickets  int `validate:"gte=0"`

	FieldingCatch    int `validate:"gte=0"`
	FieldingRunOut   int `validate:"gte=0"`
	FieldingStumping int `validate:"gte=0"`

	BonusPlayerOfMatch int `validate:"gte=0"`
	BonusHatTrick      int `validate:"gte=0"`
}

type Repository interface {
	GetByTournament(ctx context.Context, tournamentID string) (Config, bool, error)
}

var configValidator = validator.New()

// Validate rejects weight tables that cannot produce sane scores, e.g. a
// manually corrected row with a negative milestone bonus.
func Validate(cfg Config) error {
	return configValidator.Struct(cfg)
}
