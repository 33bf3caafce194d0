// Package docker implements ports.ContainerRuntime on the Docker Engine API.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"

	"github.com/dockboard/dockboard/internal/core/domain"
)

// Labels consulted for a container icon, in order of preference.
var iconLabels = []string{
	"org.opencontainers.image.icon",
	"io.casaos.app.icon",
	"icon",
	"org.opencontainers.image.logo",
}

const composeProjectLabel = "com.docker.compose.project"

// Adapter implements ports.ContainerRuntime using the Docker SDK.
type Adapter struct {
	cli *client.Client
	log *logrus.Entry
}

// NewAdapter creates a new Docker adapter instance.
func NewAdapter(log *logrus.Entry) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{cli: cli, log: log}, nil
}

// List returns every container, stopped ones included, with the metadata the
// board needs: compose project, icon label and live restart policy.
func (a *Adapter) List(ctx context.Context) ([]domain.Container, error) {
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	result := make([]domain.Container, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		policy := domain.PolicyNo
		if inspected, err := a.cli.ContainerInspect(ctx, c.ID); err == nil {
			if inspected.HostConfig != nil {
				if p := string(inspected.HostConfig.RestartPolicy.Name); p != "" {
					policy = p
				}
			}
		} else {
			a.log.WithError(err).WithField("container", name).Debug("inspect failed, assuming restart policy 'no'")
		}

		result = append(result, domain.Container{
			ID:            c.ID,
			Name:          name,
			Image:         c.Image,
			Command:       c.Command,
			State:         c.State,
			Status:        c.Status,
			Ports:         formatPorts(c.Ports),
			Project:       c.Labels[composeProjectLabel],
			Icon:          iconFromLabels(c.Labels),
			RestartPolicy: policy,
		})
	}
	return result, nil
}

// Run executes a lifecycle action on a container.
func (a *Adapter) Run(ctx context.Context, id string, action domain.Action) error {
	var err error
	switch action {
	case domain.ActionStart:
		err = a.cli.ContainerStart(ctx, id, types.ContainerStartOptions{})
	case domain.ActionStop:
		err = a.cli.ContainerStop(ctx, id, container.StopOptions{})
	case domain.ActionRestart:
		err = a.cli.ContainerRestart(ctx, id, container.StopOptions{})
	case domain.ActionDelete:
		err = a.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true})
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", action, shortID(id), err)
	}
	return nil
}

// SetRestartPolicy updates the restart policy and returns the policy the
// daemon confirmed, read back from inspect rather than assumed.
func (a *Adapter) SetRestartPolicy(ctx context.Context, id, policy string) (string, error) {
	if !domain.ValidRestartPolicy(policy) {
		return "", fmt.Errorf("invalid restart policy %q", policy)
	}
	_, err := a.cli.ContainerUpdate(ctx, id, container.UpdateConfig{
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyMode(policy)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to update restart policy for %s: %w", shortID(id), err)
	}

	inspected, err := a.cli.ContainerInspect(ctx, id)
	if err != nil || inspected.HostConfig == nil {
		// Update succeeded; fall back to the requested value.
		return policy, nil
	}
	confirmed := string(inspected.HostConfig.RestartPolicy.Name)
	if confirmed == "" {
		confirmed = domain.PolicyNo
	}
	return confirmed, nil
}

// Usage samples resource consumption of all running containers.
func (a *Adapter) Usage(ctx context.Context) ([]domain.ContainerUsage, error) {
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	usages := make([]domain.ContainerUsage, 0, len(containers))
	for _, c := range containers {
		stats, err := a.cli.ContainerStatsOneShot(ctx, c.ID)
		if err != nil {
			a.log.WithError(err).WithField("container", shortID(c.ID)).Debug("stats failed")
			continue
		}
		var v types.StatsJSON
		decodeErr := json.NewDecoder(stats.Body).Decode(&v)
		stats.Body.Close()
		if decodeErr != nil {
			continue
		}

		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		usage := domain.ContainerUsage{
			ID:            c.ID,
			Name:          name,
			CPUPercent:    cpuPercent(v),
			MemUsedBytes:  v.MemoryStats.Usage,
			MemLimitBytes: v.MemoryStats.Limit,
		}
		if usage.MemLimitBytes > 0 {
			usage.MemPercent = float64(usage.MemUsedBytes) / float64(usage.MemLimitBytes) * 100.0
		}
		usages = append(usages, usage)
	}

	sort.Slice(usages, func(i, j int) bool { return usages[i].CPUPercent > usages[j].CPUPercent })
	return usages, nil
}

// RecreateFromImage replaces a container with an identically configured one
// running the given image tag.
func (a *Adapter) RecreateFromImage(ctx context.Context, id, imageTag string) (string, error) {
	inspected, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to inspect container %s: %w", shortID(id), err)
	}
	name := strings.TrimPrefix(inspected.Name, "/")

	if err := a.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil && !client.IsErrNotFound(err) {
		a.log.WithError(err).WithField("container", name).Warn("stop before recreate failed")
	}
	if err := a.cli.ContainerRemove(ctx, id, types.ContainerRemoveOptions{Force: true}); err != nil && !client.IsErrNotFound(err) {
		return "", fmt.Errorf("failed to remove container %s: %w", shortID(id), err)
	}

	cfg := inspected.Config
	if cfg == nil {
		cfg = &container.Config{}
	}
	cfg.Image = imageTag

	resp, err := a.cli.ContainerCreate(ctx, cfg, inspected.HostConfig, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("failed to recreate container %s: %w", name, err)
	}
	if err := a.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return resp.ID, fmt.Errorf("failed to start recreated container %s: %w", name, err)
	}
	return resp.ID, nil
}

// Create creates and starts a container from an image. The image is pulled
// when possible; locally built images are not in any registry, so a pull
// failure only means the create must succeed from the local store.
func (a *Adapter) Create(ctx context.Context, name, image string, env, cmd []string) (string, error) {
	if reader, err := a.cli.ImagePull(ctx, image, types.ImagePullOptions{}); err != nil {
		a.log.WithError(err).WithField("image", image).Debug("pull failed, using local image")
	} else {
		io.Copy(io.Discard, reader)
		reader.Close()
	}

	cfg := &container.Config{Image: image, Env: env, Cmd: cmd}
	resp, err := a.cli.ContainerCreate(ctx, cfg, nil, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", name, err)
	}
	if err := a.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return resp.ID, fmt.Errorf("failed to start container %s: %w", name, err)
	}
	a.log.WithFields(logrus.Fields{"container": name, "image": image}).Info("container created")
	return resp.ID, nil
}

// cpuPercent follows the docker CLI calculation: usage delta over system
// delta, scaled by online CPUs.
func cpuPercent(v types.StatsJSON) float64 {
	cpuDelta := float64(v.CPUStats.CPUUsage.TotalUsage) - float64(v.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(v.CPUStats.SystemUsage) - float64(v.PreCPUStats.SystemUsage)
	if cpuDelta <= 0 || systemDelta <= 0 {
		return 0
	}
	cpus := float64(v.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(v.CPUStats.CPUUsage.PercpuUsage))
	}
	if cpus == 0 {
		cpus = 1
	}
	return cpuDelta / systemDelta * cpus * 100.0
}

func formatPorts(ports []types.Port) string {
	if len(ports) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.PublicPort > 0 {
			host := p.IP
			if host == "" {
				host = "0.0.0.0"
			}
			parts = append(parts, fmt.Sprintf("%s:%d->%d/%s", host, p.PublicPort, p.PrivatePort, p.Type))
		} else {
			parts = append(parts, fmt.Sprintf("%d/%s", p.PrivatePort, p.Type))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func iconFromLabels(labels map[string]string) string {
	for _, key := range iconLabels {
		if v := labels[key]; v != "" {
			return v
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
