package domain

import "sort"

// AutostartConfig is the user-declared autostart intent: group names and
// container ids whose members should be kept running by the runtime. It is
// advisory; the authoritative reflection is each container's restart policy.
type AutostartConfig struct {
	Groups     []string `json:"groups"`
	Containers []string `json:"containers"`
}

// Clone returns a deep copy.
func (c AutostartConfig) Clone() AutostartConfig {
	return AutostartConfig{
		Groups:     append([]string(nil), c.Groups...),
		Containers: append([]string(nil), c.Containers...),
	}
}

// HasGroup reports whether the group is marked for autostart.
func (c AutostartConfig) HasGroup(name string) bool {
	for _, g := range c.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// HasContainer reports whether the container id is individually marked.
func (c AutostartConfig) HasContainer(id string) bool {
	for _, cid := range c.Containers {
		if cid == id {
			return true
		}
	}
	return false
}

// WithGroup returns a copy with the group added or removed.
func (c AutostartConfig) WithGroup(name string, enabled bool) AutostartConfig {
	out := c.Clone()
	out.Groups = toggle(out.Groups, name, enabled)
	return out
}

// WithContainer returns a copy with the container id added or removed.
func (c AutostartConfig) WithContainer(id string, enabled bool) AutostartConfig {
	out := c.Clone()
	out.Containers = toggle(out.Containers, id, enabled)
	return out
}

// Sanitize deduplicates and sorts both sets.
func (c AutostartConfig) Sanitize() AutostartConfig {
	return AutostartConfig{
		Groups:     dedupe(c.Groups),
		Containers: dedupe(c.Containers),
	}
}

func toggle(set []string, value string, present bool) []string {
	out := make([]string, 0, len(set)+1)
	for _, v := range set {
		if v != value {
			out = append(out, v)
		}
	}
	if present {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
