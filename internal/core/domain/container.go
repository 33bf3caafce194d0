package domain

// Container represents a container as reported by the runtime (Docker, Podman, etc.).
// Fields mirror the runtime's view; the engine never writes them back except to
// track a confirmed restart-policy change.
type Container struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	Command       string `json:"command"`
	State         string `json:"state"` // running, exited, etc.
	Status        string `json:"status"`
	Ports         string `json:"ports"`
	Project       string `json:"project,omitempty"` // compose project label, if any
	Icon          string `json:"icon,omitempty"`
	RestartPolicy string `json:"restart_policy"`
}

// Running reports whether the runtime considers the container running.
func (c Container) Running() bool {
	return c.State == "running"
}

// Action is a lifecycle operation executed by the runtime.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	ActionDelete  Action = "delete"
)

// Valid reports whether the action is one the runtime supports.
func (a Action) Valid() bool {
	switch a {
	case ActionStart, ActionStop, ActionRestart, ActionDelete:
		return true
	}
	return false
}

// Restart policies the runtime understands.
const (
	PolicyNo            = "no"
	PolicyAlways        = "always"
	PolicyUnlessStopped = "unless-stopped"
	PolicyOnFailure     = "on-failure"
)

// ValidRestartPolicy reports whether policy is an accepted restart policy name.
func ValidRestartPolicy(policy string) bool {
	switch policy {
	case PolicyNo, PolicyAlways, PolicyUnlessStopped, PolicyOnFailure:
		return true
	}
	return false
}

// ContainerUsage is a point-in-time resource sample for one container.
type ContainerUsage struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemUsedBytes  uint64  `json:"mem_used_bytes"`
	MemLimitBytes uint64  `json:"mem_limit_bytes"`
	MemPercent    float64 `json:"mem_percent"`
}

// ExportBundle is the reconstructed description of a container: a Dockerfile,
// an equivalent run script, the raw inspect document and optionally the
// exported root filesystem.
type ExportBundle struct {
	Label string
	Files map[string][]byte
}
