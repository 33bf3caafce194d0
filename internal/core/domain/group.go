package domain

import (
	"sort"
	"strings"
)

// Groups maps a group name to the set of member container ids.
// Membership order is irrelevant; it is kept sorted for stable persistence.
type Groups map[string][]string

// Clone returns a deep copy.
func (g Groups) Clone() Groups {
	if g == nil {
		return nil
	}
	out := make(Groups, len(g))
	for name, ids := range g {
		out[name] = append([]string(nil), ids...)
	}
	return out
}

// Names returns the group names in sorted order. Sorted iteration is what
// makes "first group containing a container" deterministic.
func (g Groups) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Containing returns the sorted names of all groups that contain id.
func (g Groups) Containing(id string) []string {
	var owners []string
	for _, name := range g.Names() {
		for _, member := range g[name] {
			if member == id {
				owners = append(owners, name)
				break
			}
		}
	}
	return owners
}

// Covered returns the set of container ids that belong to at least one group.
func (g Groups) Covered() map[string]bool {
	covered := make(map[string]bool)
	for _, ids := range g {
		for _, id := range ids {
			covered[id] = true
		}
	}
	return covered
}

// Sanitize trims names, drops empty ones and deduplicates memberships,
// mirroring the full-document replace semantics of the groups store.
func (g Groups) Sanitize() Groups {
	out := make(Groups, len(g))
	for name, ids := range g {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		seen := make(map[string]bool, len(ids))
		unique := make([]string, 0, len(ids))
		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			unique = append(unique, id)
		}
		sort.Strings(unique)
		out[name] = unique
	}
	return out
}

// Alias is optional presentation metadata attached to a group name or a
// container id. A nil Order is distinct from Order zero.
type Alias struct {
	Alias string `json:"alias,omitempty"`
	Icon  string `json:"icon,omitempty"`
	Order *int   `json:"order,omitempty"`
}

// Empty reports whether the alias carries no information at all.
func (a Alias) Empty() bool {
	return a.Alias == "" && a.Icon == "" && a.Order == nil
}

// AliasMap maps a group name or container id to its alias metadata.
type AliasMap map[string]Alias

// Clone returns a deep copy, including the order pointers.
func (m AliasMap) Clone() AliasMap {
	if m == nil {
		return nil
	}
	out := make(AliasMap, len(m))
	for key, alias := range m {
		if alias.Order != nil {
			order := *alias.Order
			alias.Order = &order
		}
		out[key] = alias
	}
	return out
}

// Sanitize trims keys and values and drops entries with nothing left.
func (m AliasMap) Sanitize() AliasMap {
	out := make(AliasMap, len(m))
	for key, alias := range m {
		key = strings.TrimSpace(key)
		alias.Alias = strings.TrimSpace(alias.Alias)
		alias.Icon = strings.TrimSpace(alias.Icon)
		if key == "" || alias.Empty() {
			continue
		}
		out[key] = alias
	}
	return out
}
