package board

import (
	"context"
	"fmt"
	"sort"

	"github.com/dockboard/dockboard/internal/core/domain"
	"github.com/dockboard/dockboard/internal/core/ports"
)

// DesiredPolicies computes the restart policy every grouped or individually
// enabled container should carry: unless-stopped when its group or itself is
// enabled, no for members of disabled groups. Individually enabled containers
// always win unless-stopped.
func DesiredPolicies(cfg domain.AutostartConfig, groups domain.Groups) map[string]string {
	desired := make(map[string]string)
	for _, name := range groups.Names() {
		policy := domain.PolicyNo
		if cfg.HasGroup(name) {
			policy = domain.PolicyUnlessStopped
		}
		for _, id := range groups[name] {
			desired[id] = policy
		}
	}
	for _, id := range cfg.Containers {
		desired[id] = domain.PolicyUnlessStopped
	}
	return desired
}

// SyncRestartPolicies pushes the desired policies to the runtime. Failures
// are collected as warnings; a single unreachable container must not block
// the rest of the fleet.
func SyncRestartPolicies(ctx context.Context, runtime ports.ContainerRuntime, cfg domain.AutostartConfig, groups domain.Groups) []string {
	desired := DesiredPolicies(cfg, groups)

	ids := make([]string, 0, len(desired))
	for id := range desired {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var warnings []string
	for _, id := range ids {
		if _, err := runtime.SetRestartPolicy(ctx, id, desired[id]); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", shortID(id), err))
		}
	}
	return warnings
}

// EnsureAutostartRunning starts every container covered by an enabled group
// or individually enabled. Start errors are collected as warnings; starting
// an already running container is a no-op.
func EnsureAutostartRunning(ctx context.Context, runtime ports.ContainerRuntime, cfg domain.AutostartConfig, groups domain.Groups) []string {
	wanted := make(map[string]bool)
	for _, name := range cfg.Groups {
		for _, id := range groups[name] {
			wanted[id] = true
		}
	}
	for _, id := range cfg.Containers {
		wanted[id] = true
	}

	ids := make([]string, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var warnings []string
	for _, id := range ids {
		if err := runtime.Run(ctx, id, domain.ActionStart); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", shortID(id), err))
		}
	}
	return warnings
}

// SaveAutostart replaces the autostart document, then re-syncs restart
// policies and ensures enabled containers run, mirroring the confirmed
// config. Returned warnings are advisory.
func (b *Board) SaveAutostart(ctx context.Context, cfg domain.AutostartConfig) (domain.AutostartConfig, []string, error) {
	saved, err := b.auto.Write(cfg.Sanitize())
	if err != nil {
		return domain.AutostartConfig{}, nil, fmt.Errorf("saving autostart config: %w", err)
	}
	b.store.Update(func(s *Snapshot) { s.Autostart = saved })

	groups := b.store.Snapshot().Groups
	warnings := SyncRestartPolicies(ctx, b.runtime, saved, groups)
	warnings = append(warnings, EnsureAutostartRunning(ctx, b.runtime, saved, groups)...)
	return saved, warnings, nil
}
