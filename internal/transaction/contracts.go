package transaction

import "context"

// RepositoryContract define transaction store responsibility.
type RepositoryContract interface {
	Insert(ctx context.Context, t *Transaction) (int64, error)
	UpdateByReference(ctx context.Context, reference string, u Update) (bool, error)
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	List(ctx context.Context, f ListFilter, page, perPage int) (*ListResult, error)
}
