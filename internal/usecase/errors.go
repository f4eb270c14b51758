package usecase

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfigMissing: no usable points config for the tournament. The
	// tournament is skipped for the run, never the whole pipeline.
	ErrConfigMissing = errors.New("points config missing for tournament")
	// ErrUpstreamUnavailable: the provider answered with a non-success
	// response or did not answer. The affected match is retried next run.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
	// ErrPlayerUnresolvable: lookup and create both failed for one external
	// player id. Only that performance row is skipped.
	ErrPlayerUnresolvable = errors.New("player unresolvable")
)
