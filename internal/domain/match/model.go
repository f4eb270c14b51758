package match

import "time"

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusLive       Status = "live"
	StatusCompleted  Status = "completed"
)

type PointsStatus string

const (
	PointsNone       PointsStatus = "none"
	PointsProcessing PointsStatus = "processing"
	PointsComplete   PointsStatus = "complete"
	PointsFailed     PointsStatus = "failed"
)

// Match binds one fixture to exactly one provider for its lifetime. The
// convergence flags (CompletedAndCaptured, PointsStatus, per-row
// points_allocated) are the only retry bookkeeping the pipeline has.
type Match struct {
	ID                   string
	TournamentID         string
	Provider             string
	ExternalID           string
	Name                 string
	MatchType            string
	Status               Status
	StatusText           string
	CurrentlyLive        bool
	CompletedAndCaptured bool
	PointsStatus         PointsStatus
	ClaimedBy            string
	ClaimedAt            *time.Time
	StartsAt             *time.Time
	UpdatedAt            time.Time
}

func statusRank(s Status) int {
	switch s {
	case StatusLive:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

// NextStatus keeps lifecycle transitions monotonic: a completed match never
// reverts to live no matter what a later provider poll claims.
func NextStatus(current, reported Status) Status {
	if statusRank(reported) > statusRank(current) {
		return reported
	}
	return current
}
