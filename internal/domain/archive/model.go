package archive

import (
	"errors"
	"time"
)

// ErrDuplicate marks a re-archival attempt for a snapshot that already
// exists. Callers treat it as success.
var ErrDuplicate = errors.New("archive snapshot already exists")

const TypePostMatch = "post_match"

// Snapshot is an immutable copy of the raw provider payload taken when a
// match finalizes.
type Snapshot struct {
	MatchID      string
	SnapshotType string
	Provider     string
	PayloadJSON  string
	CreatedAt    time.Time
}
