package conversion

import (
	"context"
	"sync"
)

// DefaultMaxRecords bounds a MemoryRepository unless WithMaxRecords says otherwise.
const DefaultMaxRecords = 10000

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// Records are lost on restart; result files on disk are not.
// Once the cap is reached, saving a new record evicts the terminal record
// that completed first. In-flight records are never evicted.
type MemoryRepository struct {
	mu          sync.RWMutex
	conversions map[string]*Conversion
	maxRecords  int
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithMaxRecords caps the number of stored records. Non-positive values
// keep the default.
func WithMaxRecords(n int) MemoryOption {
	return func(r *MemoryRepository) {
		if n > 0 {
			r.maxRecords = n
		}
	}
}

// NewMemoryRepository creates a new in-memory repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		conversions: make(map[string]*Conversion),
		maxRecords:  DefaultMaxRecords,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save stores a clone of c.
func (r *MemoryRepository) Save(_ context.Context, c *Conversion) error {
	clone := c.Clone()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conversions[clone.ID]; !exists && len(r.conversions) >= r.maxRecords {
		r.evictOldestLocked()
	}
	r.conversions[clone.ID] = clone
	return nil
}

func (r *MemoryRepository) evictOldestLocked() {
	var oldest *Conversion
	for _, c := range r.conversions {
		if !c.IsTerminal() {
			continue
		}
		if oldest == nil || c.CompletedAt.Before(oldest.CompletedAt) {
			oldest = c
		}
	}
	if oldest != nil {
		delete(r.conversions, oldest.ID)
	}
}

// Len returns the number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversions)
}

// FindByID returns a clone of the stored conversion.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Conversion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// List returns clones of all stored conversions.
func (r *MemoryRepository) List(_ context.Context) ([]*Conversion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Conversion, 0, len(r.conversions))
	for _, c := range r.conversions {
		result = append(result, c.Clone())
	}
	return result, nil
}

// Delete removes a conversion.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversions[id]; !ok {
		return ErrNotFound
	}
	delete(r.conversions, id)
	return nil
}
