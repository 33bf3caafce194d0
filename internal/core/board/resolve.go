package board

import "github.com/dockboard/dockboard/internal/core/domain"

// Attribution labels for the autostart status of a container.
const (
	AttributionIndividual = "enabled-individually"
	AttributionGroup      = "enabled-group"
	AttributionRuntime    = "enabled-by-runtime"
	AttributionDisabled   = "disabled"
)

// AutostartStatus is the derived autostart view of one container.
type AutostartStatus struct {
	Enabled     bool   `json:"enabled"`
	Attribution string `json:"attribution"`
	Writable    bool   `json:"writable"`
}

// autoRestartPolicies are the runtime restart policies that mean the runtime
// itself keeps the container running.
var autoRestartPolicies = map[string]bool{
	domain.PolicyAlways:        true,
	domain.PolicyUnlessStopped: true,
}

// ResolveAutostart derives the autostart status of a container from the three
// authority sources: the individual autostart set, the autostart state of the
// groups containing it, and the container's live restart policy.
//
// Enabled is the logical OR of all three sources. The attribution label picks
// the highest-priority source only: individual, then group, then runtime
// policy. A container owned by at least one group is read-only at the
// container level; the owning group must be toggled instead.
func ResolveAutostart(c domain.Container, owningGroups []string, cfg domain.AutostartConfig) AutostartStatus {
	individual := cfg.HasContainer(c.ID)

	group := false
	for _, name := range owningGroups {
		if cfg.HasGroup(name) {
			group = true
			break
		}
	}

	runtime := autoRestartPolicies[c.RestartPolicy]

	status := AutostartStatus{
		Enabled:  individual || group || runtime,
		Writable: len(owningGroups) == 0,
	}

	switch {
	case individual:
		status.Attribution = AttributionIndividual
	case group:
		status.Attribution = AttributionGroup
	case runtime:
		status.Attribution = AttributionRuntime
	default:
		status.Attribution = AttributionDisabled
	}
	return status
}
