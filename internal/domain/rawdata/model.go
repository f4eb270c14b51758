package rawdata

import "time"

// Payload is the latest raw scorecard fetched for a match. It stages the
// bytes the allocator later copies into the immutable archive.
type Payload struct {
	Provider    string
	MatchID     string
	PayloadJSON string
	PayloadHash string
	FetchedAt   time.Time
}
