package archive

import "context"

type Repository interface {
	// Insert appends a snapshot. A conflict on (match, snapshot type)
	// returns ErrDuplicate.
	Insert(ctx context.Context, snapshot Snapshot) error
}
