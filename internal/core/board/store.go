// Package board implements the presentation-state reconciliation engine:
// the in-memory entity snapshot, the autostart status resolver, the
// auto-grouping classifier, the optimistic mutation protocol and the card
// ordering / drag linearization logic.
package board

import (
	"sync"

	"github.com/dockboard/dockboard/internal/core/domain"
)

// Snapshot is one coherent view of everything the board renders. It is
// replaced wholesale on every refresh and patched optimistically in between;
// an optimistic patch racing a refresh loses to the refreshed snapshot.
type Snapshot struct {
	Containers       []domain.Container
	Groups           domain.Groups
	GroupAliases     domain.AliasMap
	ContainerAliases domain.AliasMap
	Autostart        domain.AutostartConfig
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Containers:       append([]domain.Container(nil), s.Containers...),
		Groups:           s.Groups.Clone(),
		GroupAliases:     s.GroupAliases.Clone(),
		ContainerAliases: s.ContainerAliases.Clone(),
		Autostart:        s.Autostart.Clone(),
	}
}

// Container looks up a container by id.
func (s Snapshot) Container(id string) (domain.Container, bool) {
	for _, c := range s.Containers {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Container{}, false
}

// EntityStore holds the current snapshot. Reads hand out deep copies and
// writes land unconditionally, so concurrent mutations interleave as
// last-writer-wins rather than blocking each other.
type EntityStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewEntityStore returns a store with an empty snapshot.
func NewEntityStore() *EntityStore {
	return &EntityStore{snap: Snapshot{
		Groups:           domain.Groups{},
		GroupAliases:     domain.AliasMap{},
		ContainerAliases: domain.AliasMap{},
	}}
}

// Snapshot returns a deep copy of the current state.
func (s *EntityStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Replace installs a whole new snapshot.
func (s *EntityStore) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// Update applies fn to the live snapshot under the write lock.
func (s *EntityStore) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
}
