package memory

import (
	"context"
	"slices"
	"time"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// SequenceRepository contadores en memoria. Reserve es atómico bajo el candado del Store.
type SequenceRepository struct {
	scope
}

// NewSequenceRepository crea el repositorio sobre el store.
func NewSequenceRepository(s *Store) *SequenceRepository {
	return &SequenceRepository{scope{s: s}}
}

func (r *SequenceRepository) Reserve(ctx context.Context, groupID string, year int, documentID string) (int64, error) {
	var n int64
	err := r.write(ctx, func() error {
		key := counterKey{groupID, year}
		c, ok := r.s.counters[key]
		if !ok {
			c = entity.SequenceCounter{GroupID: groupID, Year: year}
		}
		if existing, ok := c.NumberOf(documentID); ok {
			n = existing
			return nil
		}
		c.LastNumber++
		n = c.LastNumber
		c.Used = append(slices.Clone(c.Used), entity.SequenceEntry{DocumentID: documentID, Number: n})
		c.UpdatedAt = time.Now()
		r.s.counters[key] = c
		return nil
	})
	return n, err
}

func (r *SequenceRepository) Release(ctx context.Context, groupID string, year int, documentID string) error {
	return r.write(ctx, func() error {
		key := counterKey{groupID, year}
		c, ok := r.s.counters[key]
		if !ok {
			return nil
		}
		n, ok := c.NumberOf(documentID)
		if !ok {
			return nil
		}
		c.Used = slices.DeleteFunc(slices.Clone(c.Used), func(e entity.SequenceEntry) bool {
			return e.DocumentID == documentID
		})
		if c.LastNumber == n {
			c.LastNumber--
		}
		c.UpdatedAt = time.Now()
		r.s.counters[key] = c
		return nil
	})
}

func (r *SequenceRepository) Get(ctx context.Context, groupID string, year int) (*entity.SequenceCounter, error) {
	var out *entity.SequenceCounter
	err := r.read(ctx, func() {
		if c, ok := r.s.counters[counterKey{groupID, year}]; ok {
			c.Used = slices.Clone(c.Used)
			out = &c
		}
	})
	return out, err
}
