package notes

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-process Repository for tests and dev runs.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Note
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*Note)}
}

func (r *MemoryRepository) Insert(ctx context.Context, n *Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.byID[n.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetOwned(ctx context.Context, userID, id string) (*Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Note{}
	for _, n := range r.byID {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, n *Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[n.ID]
	if !ok || old.UserID != n.UserID {
		return ErrNotFound
	}
	cp := *n
	r.byID[n.ID] = &cp
	return nil
}

func (r *MemoryRepository) DeleteOwned(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
