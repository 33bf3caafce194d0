package ports

import (
	"context"

	"github.com/dockboard/dockboard/internal/core/domain"
)

// ContainerRuntime defines the operations the engine needs from the container
// runtime. This interface allows us to switch between Docker, Podman, or
// Kubernetes without changing the business logic.
type ContainerRuntime interface {
	// List returns every container known to the runtime, stopped ones included.
	List(ctx context.Context) ([]domain.Container, error)

	// Run executes a lifecycle action (start, stop, restart, delete).
	Run(ctx context.Context, id string, action domain.Action) error

	// SetRestartPolicy updates a container's restart policy and returns the
	// policy the runtime confirmed.
	SetRestartPolicy(ctx context.Context, id, policy string) (string, error)

	// Export reconstructs a container as a Dockerfile, run script and inspect
	// document. With includeData the root filesystem tar is included.
	Export(ctx context.Context, id string, includeData bool) (*domain.ExportBundle, error)

	// Usage samples resource consumption for all running containers.
	Usage(ctx context.Context) ([]domain.ContainerUsage, error)

	// RecreateFromImage stops and removes a container, then creates and starts
	// a replacement with the same configuration but the given image tag.
	// Returns the new container id.
	RecreateFromImage(ctx context.Context, id, imageTag string) (string, error)

	// Create creates and starts a new container from an image already present
	// in the runtime. Returns the new container id.
	Create(ctx context.Context, name, image string, env, cmd []string) (string, error)
}
