package synclog

import "context"

type Repository interface {
	Insert(ctx context.Context, entry Entry) error
}
