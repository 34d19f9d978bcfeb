package memory

import (
	"context"
	"sort"
	"sync"

	"alertcache/internal/domain"
)

// OwnershipStore is an in-memory implementation of store.OwnershipStore.
type OwnershipStore struct {
	mu sync.RWMutex

	// relations maps owner -> entity -> relation.
	relations map[string]map[domain.DataEntityID]domain.Relation
}

// NewOwnershipStore creates an empty ownership store.
func NewOwnershipStore() *OwnershipStore {
	return &OwnershipStore{
		relations: make(map[string]map[domain.DataEntityID]domain.Relation),
	}
}

// Assign links an entity to an owner.
func (s *OwnershipStore) Assign(ctx context.Context, o domain.Ownership) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entities := s.relations[o.Owner]
	if entities == nil {
		entities = make(map[domain.DataEntityID]domain.Relation)
		s.relations[o.Owner] = entities
	}
	entities[o.DataEntityID] = o.Relation
	return nil
}

// Unassign removes the link between an owner and an entity.
func (s *OwnershipStore) Unassign(ctx context.Context, owner string, id domain.DataEntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entities := s.relations[owner]
	delete(entities, id)
	if len(entities) == 0 {
		delete(s.relations, owner)
	}
	return nil
}

// Entities returns the sorted entities tied to owner by relation.
func (s *OwnershipStore) Entities(ctx context.Context, owner string, relation domain.Relation) ([]domain.DataEntityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.DataEntityID{}
	for id, rel := range s.relations[owner] {
		if rel == relation {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Close is a no-op.
func (s *OwnershipStore) Close() error {
	return nil
}
