// Package memory provides an in-process TermStore and EventTermStore. It is
// used by the CLI for dry runs and by tests; data does not survive restarts.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

// Store keeps nodes and event associations in maps guarded by one mutex.
type Store struct {
	mu     sync.RWMutex
	clock  clockwork.Clock
	nextID domain.NodeID
	nodes  map[domain.NodeID]domain.Node
	slugs  map[string]domain.NodeID
	events map[string][]domain.NodeID
}

// New creates an empty Store. A nil clock uses real time.
func New(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:  clock,
		nodes:  make(map[domain.NodeID]domain.Node),
		slugs:  make(map[string]domain.NodeID),
		events: make(map[string][]domain.NodeID),
	}
}

func (s *Store) FindBySlug(_ context.Context, slug string) (domain.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugs[slug]
	if !ok {
		return domain.Node{}, false, nil
	}
	return s.nodes[id], true, nil
}

func (s *Store) Create(_ context.Context, name, slug string, parent domain.NodeID, level domain.Level) (domain.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slugs[slug]; ok {
		return 0, fmt.Errorf("create %q: %w", slug, domain.ErrSlugExists)
	}

	s.nextID++
	now := s.clock.Now().UTC()
	s.nodes[s.nextID] = domain.Node{
		ID:        s.nextID,
		Name:      name,
		Slug:      slug,
		ParentID:  parent,
		Level:     level,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.slugs[slug] = s.nextID
	return s.nextID, nil
}

func (s *Store) UpdateParent(_ context.Context, id, parent domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("update parent of %d: %w", id, domain.ErrNotFound)
	}
	n.ParentID = parent
	n.UpdatedAt = s.clock.Now().UTC()
	s.nodes[id] = n
	return nil
}

func (s *Store) GetByID(_ context.Context, id domain.NodeID) (domain.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	return n, ok, nil
}

func (s *Store) ReplaceEventTerms(_ context.Context, eventID string, ids []domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("associate event %s with node %d: %w", eventID, id, domain.ErrNotFound)
		}
	}
	if len(ids) == 0 {
		delete(s.events, eventID)
		return nil
	}
	s.events[eventID] = slices.Clone(ids)
	return nil
}

func (s *Store) EventTerms(_ context.Context, eventID string) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.events[eventID]
	out := make([]domain.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Len returns the number of stored nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// CheckReadiness always succeeds; the store lives in process.
func (s *Store) CheckReadiness(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
