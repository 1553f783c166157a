package transaction

import (
	"context"
	"sync"
	"time"
)

const DefaultCacheTTL = 10 * time.Minute

type cacheEntry struct {
	t       *Transaction
	expires time.Time
}

// inflight tracks the reads of one reference that are waiting on the store.
// It exists only while readers > 0.
type inflight struct {
	readers int
	version uint64
}

// CachedRepository is a read-through cache in front of GetByReference.
// Writes for a reference drop its entry; a read that raced a write is not
// stored.
type CachedRepository struct {
	next RepositoryContract
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	entries  map[string]cacheEntry
	inflight map[string]*inflight
}

func NewCachedRepository(next RepositoryContract, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRepository{
		next:     next,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
		inflight: make(map[string]*inflight),
	}
}

func (c *CachedRepository) Insert(ctx context.Context, t *Transaction) (int64, error) {
	id, err := c.next.Insert(ctx, t)
	if t != nil {
		c.Invalidate(t.Reference)
	}
	return id, err
}

func (c *CachedRepository) UpdateByReference(ctx context.Context, reference string, u Update) (bool, error) {
	ok, err := c.next.UpdateByReference(ctx, reference, u)
	c.Invalidate(reference)
	return ok, err
}

func (c *CachedRepository) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	c.mu.Lock()
	if e, ok := c.entries[reference]; ok {
		if c.now().Before(e.expires) {
			c.mu.Unlock()
			return e.t.clone(), nil
		}
		delete(c.entries, reference)
	}
	f, ok := c.inflight[reference]
	if !ok {
		f = &inflight{}
		c.inflight[reference] = f
	}
	f.readers++
	version := f.version
	c.mu.Unlock()

	t, err := c.next.GetByReference(ctx, reference)

	c.mu.Lock()
	defer c.mu.Unlock()
	f.readers--
	if f.readers == 0 {
		delete(c.inflight, reference)
	}
	if err != nil {
		return nil, err
	}
	if f.version == version {
		c.entries[reference] = cacheEntry{t: t.clone(), expires: c.now().Add(c.ttl)}
	}
	return t, nil
}

func (c *CachedRepository) List(ctx context.Context, f ListFilter, page, perPage int) (*ListResult, error) {
	return c.next.List(ctx, f, page, perPage)
}

func (c *CachedRepository) Invalidate(reference string) {
	c.mu.Lock()
	delete(c.entries, reference)
	if f, ok := c.inflight[reference]; ok {
		f.version++
	}
	c.mu.Unlock()
}

func (c *CachedRepository) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CachedRepository) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

var _ RepositoryContract = (*CachedRepository)(nil)
