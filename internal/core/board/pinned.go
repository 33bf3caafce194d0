package board

import (
	"sort"
	"sync"

	"github.com/dockboard/dockboard/internal/core/domain"
	"github.com/dockboard/dockboard/internal/core/ports"
)

// PinnedTracker keeps the client-local set of just-created, still-memberless
// groups. A name stays pinned only while the corresponding group exists and
// has zero members; Reconcile enforces that against every fresh snapshot.
// The set lives in client-local durable storage and is never sent to the
// backend stores.
type PinnedTracker struct {
	store ports.LocalStore

	mu    sync.Mutex
	names map[string]bool
}

// NewPinnedTracker loads the persisted pinned set. A load failure starts the
// tracker empty; the local set is advisory and rebuilt by use.
func NewPinnedTracker(store ports.LocalStore) *PinnedTracker {
	t := &PinnedTracker{store: store, names: make(map[string]bool)}
	if names, err := store.ReadPinned(); err == nil {
		for _, name := range names {
			t.names[name] = true
		}
	}
	return t
}

// Pin marks a freshly created empty group.
func (t *PinnedTracker) Pin(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.names[name] {
		return nil
	}
	t.names[name] = true
	return t.persistLocked()
}

// Unpin removes a name regardless of group state.
func (t *PinnedTracker) Unpin(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.names[name] {
		return nil
	}
	delete(t.names, name)
	return t.persistLocked()
}

// Contains reports whether the name is currently pinned.
func (t *PinnedTracker) Contains(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.names[name]
}

// Names returns the pinned names in sorted order.
func (t *PinnedTracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.names))
	for name := range t.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reconcile derives the valid subset of the local set from the latest
// authoritative group document: entries for groups that no longer exist or
// that gained members are dropped. The local set is never trusted alone.
func (t *PinnedTracker) Reconcile(groups domain.Groups) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := false
	for name := range t.names {
		members, exists := groups[name]
		if !exists || len(members) > 0 {
			delete(t.names, name)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return t.persistLocked()
}

func (t *PinnedTracker) persistLocked() error {
	names := make([]string, 0, len(t.names))
	for name := range t.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return t.store.WritePinned(names)
}
