package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/go-connections/nat"

	"github.com/dockboard/dockboard/internal/core/domain"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SafeFilename reduces text to a filesystem-safe label.
func SafeFilename(text, fallback string) string {
	cleaned := strings.Trim(unsafeFilename.ReplaceAllString(text, "-"), "-._")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// Export reconstructs a container as a Dockerfile, an equivalent run script
// and the raw inspect document. With includeData the exported root
// filesystem tar is included; an export failure there becomes a log file in
// the bundle instead of failing the whole export.
func (a *Adapter) Export(ctx context.Context, id string, includeData bool) (*domain.ExportBundle, error) {
	inspected, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", shortID(id), err)
	}

	label := SafeFilename(strings.TrimPrefix(inspected.Name, "/"), shortID(id))

	inspectJSON, err := json.MarshalIndent(inspected, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode inspect document: %w", err)
	}

	bundle := &domain.ExportBundle{
		Label: label,
		Files: map[string][]byte{
			"Dockerfile":   []byte(DockerfileFromInspect(inspected)),
			"run.sh":       []byte(runScript(RunArgsFromInspect(inspected))),
			"inspect.json": inspectJSON,
		},
	}

	if includeData {
		reader, err := a.cli.ContainerExport(ctx, id)
		if err != nil {
			bundle.Files["data-export.log"] = []byte(fmt.Sprintf("filesystem export failed: %v\n", err))
			return bundle, nil
		}
		defer reader.Close()
		rootfs, err := io.ReadAll(reader)
		if err != nil {
			bundle.Files["data-export.log"] = []byte(fmt.Sprintf("filesystem export failed: %v\n", err))
			return bundle, nil
		}
		bundle.Files["rootfs.tar"] = rootfs
	}
	return bundle, nil
}

// DockerfileFromInspect reconstructs an approximate Dockerfile from a
// container's configuration.
func DockerfileFromInspect(data types.ContainerJSON) string {
	var lines []string

	image := "scratch"
	if data.Config != nil && data.Config.Image != "" {
		image = data.Config.Image
	}
	lines = append(lines, "FROM "+image)

	if data.Config != nil {
		for _, env := range data.Config.Env {
			lines = append(lines, "ENV "+env)
		}
		if data.Config.WorkingDir != "" {
			lines = append(lines, "WORKDIR "+data.Config.WorkingDir)
		}
		ports := make([]string, 0, len(data.Config.ExposedPorts))
		for port := range data.Config.ExposedPorts {
			ports = append(ports, string(port))
		}
		sort.Strings(ports)
		for _, port := range ports {
			lines = append(lines, "EXPOSE "+port)
		}
	}

	for _, mount := range data.Mounts {
		if mount.Destination != "" {
			lines = append(lines, "VOLUME "+mount.Destination)
		}
	}

	if data.Config != nil {
		if len(data.Config.Entrypoint) > 0 {
			if encoded, err := json.Marshal([]string(data.Config.Entrypoint)); err == nil {
				lines = append(lines, "ENTRYPOINT "+string(encoded))
			}
		}
		if len(data.Config.Cmd) > 0 {
			if encoded, err := json.Marshal([]string(data.Config.Cmd)); err == nil {
				lines = append(lines, "CMD "+string(encoded))
			}
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

// RunArgsFromInspect reconstructs `docker run` arguments that approximate the
// container's configuration.
func RunArgsFromInspect(data types.ContainerJSON) []string {
	name := strings.TrimPrefix(data.Name, "/")
	args := []string{"run", "-d", "--name", name}

	if data.HostConfig != nil {
		if policy := string(data.HostConfig.RestartPolicy.Name); policy != "" && policy != domain.PolicyNo {
			args = append(args, "--restart", policy)
		}
		if mode := string(data.HostConfig.NetworkMode); mode != "" && mode != "default" && mode != "bridge" {
			args = append(args, "--network", mode)
		}
		for _, bind := range data.HostConfig.Binds {
			args = append(args, "-v", bind)
		}
		args = append(args, portArgs(data.HostConfig.PortBindings)...)
	}

	if data.Config != nil {
		for _, env := range data.Config.Env {
			args = append(args, "-e", env)
		}
		if data.Config.WorkingDir != "" {
			args = append(args, "-w", data.Config.WorkingDir)
		}
		if data.Config.User != "" {
			args = append(args, "-u", data.Config.User)
		}
	}

	image := ""
	if data.Config != nil {
		image = data.Config.Image
	}
	if image == "" {
		image = data.Image
	}
	args = append(args, image)

	if data.Config != nil {
		args = append(args, data.Config.Entrypoint...)
		args = append(args, data.Config.Cmd...)
	}
	return args
}

func portArgs(bindings nat.PortMap) []string {
	ports := make([]string, 0, len(bindings))
	for port := range bindings {
		ports = append(ports, string(port))
	}
	sort.Strings(ports)

	var args []string
	for _, port := range ports {
		for _, binding := range bindings[nat.Port(port)] {
			if binding.HostPort == "" {
				continue
			}
			if binding.HostIP != "" && binding.HostIP != "0.0.0.0" {
				args = append(args, "-p", fmt.Sprintf("%s:%s:%s", binding.HostIP, binding.HostPort, port))
			} else {
				args = append(args, "-p", fmt.Sprintf("%s:%s", binding.HostPort, port))
			}
		}
	}
	return args
}

func runScript(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return "#!/usr/bin/env bash\nset -euo pipefail\n\ndocker " + strings.Join(quoted, " ") + "\n"
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

func shellQuote(arg string) string {
	if arg != "" && shellSafe.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
