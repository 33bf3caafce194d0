package board

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dockboard/dockboard/internal/core/domain"
)

// CardKind tags a rendered card as a group or a standalone container.
type CardKind string

const (
	KindGroup     CardKind = "group"
	KindContainer CardKind = "container"
)

// Card is one entry of the render list: a group or a standalone container,
// with its display label and optional explicit order.
type Card struct {
	Kind   CardKind    `json:"kind"`
	Key    string      `json:"key"` // group name or container id
	Label  string      `json:"label"`
	Order  *int        `json:"order,omitempty"`
	Pinned bool        `json:"pinned,omitempty"`
	Status interface{} `json:"status,omitempty"` // resolved autostart status, opaque to ordering
}

// Less is the total order over cards. Cards with an explicit order sort
// numerically and ahead of cards without one; unordered cards rank groups
// before containers, then compare labels case-insensitively, with the key as
// the deterministic tiebreak so re-renders never shuffle unrelated cards.
func Less(a, b Card) bool {
	switch {
	case a.Order != nil && b.Order != nil:
		if *a.Order != *b.Order {
			return *a.Order < *b.Order
		}
	case a.Order != nil:
		return true
	case b.Order != nil:
		return false
	default:
		if a.Kind != b.Kind {
			return a.Kind == KindGroup
		}
		la, lb := strings.ToLower(a.Label), strings.ToLower(b.Label)
		if la != lb {
			return la < lb
		}
	}
	return a.Key < b.Key
}

// SortCards sorts in place using the total card order.
func SortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool { return Less(cards[i], cards[j]) })
}

// OrderAssignment is one committed order value for a card's alias metadata.
type OrderAssignment struct {
	Kind  CardKind
	Key   string
	Order int
}

// DragList is the mutable ordered list behind a drag gesture. The gesture
// mutates the list; rendering is a pure projection of it, so the
// linearization logic needs no rendering surface. Pinned-empty groups are not
// part of the list: they are neither draggable nor drop targets and receive
// no order on commit.
type DragList struct {
	cards []Card
}

// NewDragList builds the draggable list from the currently visible cards,
// sorted into render order with pinned cards excluded.
func NewDragList(cards []Card) *DragList {
	eligible := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.Pinned {
			continue
		}
		eligible = append(eligible, c)
	}
	SortCards(eligible)
	return &DragList{cards: eligible}
}

// Cards returns the current top-to-bottom sequence.
func (d *DragList) Cards() []Card {
	return append([]Card(nil), d.cards...)
}

// Move relocates the dragged card immediately before or after the hovered
// card, depending on whether the pointer sits above the hovered card's
// vertical midpoint. It reports whether the list changed.
func (d *DragList) Move(dragKey, hoverKey string, above bool) bool {
	if dragKey == hoverKey {
		return false
	}
	from := d.index(dragKey)
	if from < 0 || d.index(hoverKey) < 0 {
		return false
	}

	dragged := d.cards[from]
	rest := append(append([]Card(nil), d.cards[:from]...), d.cards[from+1:]...)

	to := -1
	for i, c := range rest {
		if c.Key == hoverKey {
			to = i
			break
		}
	}
	if !above {
		to++
	}
	if to == from {
		return false
	}

	next := make([]Card, 0, len(d.cards))
	next = append(next, rest[:to]...)
	next = append(next, dragged)
	next = append(next, rest[to:]...)
	d.cards = next
	return true
}

// Reorder replaces the sequence with the given keys. Every key must identify
// a card in the list and every card must appear exactly once.
func (d *DragList) Reorder(keys []string) error {
	if len(keys) != len(d.cards) {
		return fmt.Errorf("sequence has %d entries, expected %d", len(keys), len(d.cards))
	}
	next := make([]Card, 0, len(d.cards))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			return fmt.Errorf("duplicate key %q in sequence", key)
		}
		seen[key] = true
		i := d.index(key)
		if i < 0 {
			return fmt.Errorf("unknown card %q in sequence", key)
		}
		next = append(next, d.cards[i])
	}
	d.cards = next
	return nil
}

// Commit reads the final top-to-bottom sequence and assigns each card a
// contiguous zero-based order equal to its position.
func (d *DragList) Commit() []OrderAssignment {
	assignments := make([]OrderAssignment, len(d.cards))
	for i, c := range d.cards {
		assignments[i] = OrderAssignment{Kind: c.Kind, Key: c.Key, Order: i}
	}
	return assignments
}

func (d *DragList) index(key string) int {
	for i, c := range d.cards {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// ApplyAssignments writes committed order values into the two alias maps,
// returning the touched container-alias entries for the partial merge call.
func ApplyAssignments(assignments []OrderAssignment, groupAliases, containerAliases domain.AliasMap) domain.AliasMap {
	touched := domain.AliasMap{}
	for _, a := range assignments {
		order := a.Order
		switch a.Kind {
		case KindGroup:
			alias := groupAliases[a.Key]
			alias.Order = &order
			groupAliases[a.Key] = alias
		case KindContainer:
			alias := containerAliases[a.Key]
			alias.Order = &order
			containerAliases[a.Key] = alias
			touched[a.Key] = alias
		}
	}
	return touched
}
