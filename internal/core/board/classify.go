package board

import (
	"sort"
	"strings"

	"github.com/dockboard/dockboard/internal/core/domain"
)

// ClassifyResult is the outcome of one auto-grouping pass.
type ClassifyResult struct {
	Groups  domain.Groups // updated group document (copy)
	Created []string      // groups that did not exist before
	Filled  []string      // existing groups whose membership actually grew
}

// Changed reports whether the pass produced anything worth persisting.
func (r ClassifyResult) Changed() bool {
	return len(r.Created) > 0 || len(r.Filled) > 0
}

// AutoGroup assigns ungrouped containers to implicit groups. Containers
// already covered by a group are left alone. Uncovered containers are
// bucketed by candidate key and only buckets with at least two members
// become groups; a single container sharing a key with nobody stays
// standalone. The pass is idempotent: running it again on its own output
// creates and fills nothing.
func AutoGroup(containers []domain.Container, groups domain.Groups) ClassifyResult {
	result := ClassifyResult{Groups: groups.Clone()}
	if result.Groups == nil {
		result.Groups = domain.Groups{}
	}

	covered := result.Groups.Covered()

	buckets := make(map[string][]string)
	for _, c := range containers {
		if covered[c.ID] {
			continue
		}
		key := candidateKey(c)
		if key == "" {
			continue
		}
		buckets[key] = append(buckets[key], c.ID)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		ids := buckets[key]
		if len(ids) < 2 {
			continue
		}
		existing, exists := result.Groups[key]
		if !exists {
			result.Groups[key] = dedupeSorted(ids)
			result.Created = append(result.Created, key)
			continue
		}
		merged := dedupeSorted(append(append([]string(nil), existing...), ids...))
		if len(merged) > len(existing) {
			result.Groups[key] = merged
			result.Filled = append(result.Filled, key)
		}
	}
	return result
}

// candidateKey computes the implicit group key for a container: the compose
// project label when present, otherwise the first dash/underscore-delimited
// segment of the name when the name has at least two segments, otherwise the
// full trimmed name.
func candidateKey(c domain.Container) string {
	if project := strings.TrimSpace(c.Project); project != "" {
		return project
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ""
	}
	segments := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(segments) >= 2 {
		return segments[0]
	}
	return name
}

func dedupeSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
