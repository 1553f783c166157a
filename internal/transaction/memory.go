package transaction

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"novac/kit/db"
)

// InMemoryRepository is a process-local store with the same uniqueness and
// update rules as the SQL store.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[string]*Transaction
	now    func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		data: make(map[string]*Transaction),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Insert(ctx context.Context, t *Transaction) (int64, error) {
	if err := ValidateForInsert(t); err != nil {
		return 0, err
	}
	applyInsertDefaults(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[t.Reference]; ok {
		return 0, duplicate(t.Reference)
	}
	r.nextID++
	now := r.now()
	t.ID, t.CreatedAt, t.UpdatedAt = r.nextID, now, now
	r.data[t.Reference] = t.clone()
	return t.ID, nil
}

func (r *InMemoryRepository) UpdateByReference(ctx context.Context, reference string, u Update) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[reference]
	if !ok {
		return false, nil
	}
	t.Status = u.Status
	t.PaymentMethod = u.PaymentMethod
	t.UpdatedAt = r.now()
	return true, nil
}

func (r *InMemoryRepository) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.data[reference]
	if !ok {
		return nil, db.ErrNotFound
	}
	return t.clone(), nil
}

func (r *InMemoryRepository) List(ctx context.Context, f ListFilter, page, perPage int) (*ListResult, error) {
	f, page, perPage = NormalizeList(f, page, perPage)
	needle := strings.ToLower(f.Search)

	r.mu.RLock()
	matched := make([]*Transaction, 0, len(r.data))
	for _, t := range r.data {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if !f.CreatedBefore.IsZero() && !t.CreatedAt.Before(f.CreatedBefore) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.CustomerEmail), needle) &&
			!strings.Contains(strings.ToLower(t.CustomerName), needle) &&
			!strings.Contains(strings.ToLower(t.Reference), needle) {
			continue
		}
		matched = append(matched, t.clone())
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		c := compare(matched[i], matched[j], f.OrderBy)
		if c == 0 {
			c = cmpInt(matched[i].ID, matched[j].ID)
		}
		if f.Order == "ASC" {
			return c < 0
		}
		return c > 0
	})

	res := &ListResult{Items: []*Transaction{}, Total: int64(len(matched)), Page: page, PerPage: perPage}
	start := (page - 1) * perPage
	if start >= len(matched) {
		return res, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	res.Items = matched[start:end]
	return res, nil
}

func compare(a, b *Transaction, col string) int {
	switch col {
	case "amount":
		return a.Amount.Cmp(b.Amount)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var _ RepositoryContract = (*InMemoryRepository)(nil)
