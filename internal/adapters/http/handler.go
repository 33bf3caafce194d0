// Package http exposes the board and the container runtime over a Fiber API.
package http

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/dockboard/dockboard/internal/core/board"
	"github.com/dockboard/dockboard/internal/core/domain"
	"github.com/dockboard/dockboard/internal/core/ports"
)

type ContainerHandler struct {
	board          *board.Board
	runtime        ports.ContainerRuntime
	builder        ports.BuilderService
	dockerfilesDir string
	log            *logrus.Entry
}

func NewContainerHandler(b *board.Board, runtime ports.ContainerRuntime, builder ports.BuilderService, dockerfilesDir string, log *logrus.Entry) *ContainerHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ContainerHandler{board: b, runtime: runtime, builder: builder, dockerfilesDir: dockerfilesDir, log: log}
}

// containerView is one container as rendered in the list response, with alias
// metadata and the derived autostart status attached.
type containerView struct {
	domain.Container
	Alias     string                 `json:"alias,omitempty"`
	IconFile  string                 `json:"icon_file,omitempty"`
	Autostart *board.AutostartStatus `json:"autostart,omitempty"`
}

// ListContainers refreshes the snapshot from the runtime and returns every
// container with its alias and resolved autostart status.
func (h *ContainerHandler) ListContainers(c *fiber.Ctx) error {
	if err := h.board.Refresh(c.Context(), c.QueryBool("refresh")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	snap := h.board.Snapshot()

	views := make([]containerView, 0, len(snap.Containers))
	for _, ct := range snap.Containers {
		view := containerView{Container: ct}
		if alias, ok := snap.ContainerAliases[ct.ID]; ok {
			view.Alias = alias.Alias
			view.IconFile = alias.Icon
		}
		status := board.ResolveAutostart(ct, snap.Groups.Containing(ct.ID), snap.Autostart)
		view.Autostart = &status
		views = append(views, view)
	}
	return c.JSON(fiber.Map{
		"containers": views,
		"groups":     snap.Groups,
	})
}

type ActionRequest struct {
	Action string `json:"action"`
}

// ContainerAction runs a lifecycle action and refreshes the snapshot.
func (h *ContainerHandler) ContainerAction(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Container ID is required",
		})
	}
	var req ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	action := domain.Action(req.Action)
	if !action.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("unknown action %q", req.Action),
		})
	}

	if err := h.runtime.Run(c.Context(), id, action); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := h.board.Refresh(c.Context(), false); err != nil {
		h.log.WithError(err).Warn("refresh after action failed")
	}
	return c.JSON(fiber.Map{"status": "ok", "action": string(action)})
}

type RestartPolicyRequest struct {
	Policy string `json:"policy"`
}

// SetRestartPolicy updates one container's restart policy directly, outside
// the autostart config. Returns the policy the runtime confirmed.
func (h *ContainerHandler) SetRestartPolicy(c *fiber.Ctx) error {
	id := c.Params("id")
	var req RestartPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if !domain.ValidRestartPolicy(req.Policy) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid restart policy %q", req.Policy),
		})
	}

	confirmed, err := h.runtime.SetRestartPolicy(c.Context(), id, req.Policy)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := h.board.Refresh(c.Context(), false); err != nil {
		h.log.WithError(err).Warn("refresh after policy update failed")
	}
	return c.JSON(fiber.Map{"policy": confirmed})
}

// ExportContainer streams one container as a zip: Dockerfile, run script,
// inspect document and optionally the root filesystem.
func (h *ContainerHandler) ExportContainer(c *fiber.Ctx) error {
	id := c.Params("id")
	includeData := c.QueryBool("data")

	bundle, err := h.runtime.Export(c.Context(), id, includeData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	buf, err := zipBundles(map[string]*domain.ExportBundle{"": bundle})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return sendZip(c, bundle.Label+".zip", buf)
}

// ExportGroup streams every member of a group as one zip, each member under
// its own directory. A member export failure becomes a log entry in the zip
// instead of failing the whole download.
func (h *ContainerHandler) ExportGroup(c *fiber.Ctx) error {
	name := c.Params("name")
	includeData := c.QueryBool("data")

	snap := h.board.Snapshot()
	members, ok := snap.Groups[name]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("group %q not found", name),
		})
	}
	if len(members) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "group has no members",
		})
	}

	bundles := make(map[string]*domain.ExportBundle, len(members))
	for _, id := range members {
		bundle, err := h.runtime.Export(c.Context(), id, includeData)
		if err != nil {
			h.log.WithError(err).WithField("container", id).Warn("group export: member failed")
			bundles[id[:min(12, len(id))]] = &domain.ExportBundle{
				Label: id[:min(12, len(id))],
				Files: map[string][]byte{"export-error.log": []byte(err.Error() + "\n")},
			}
			continue
		}
		bundles[bundle.Label] = bundle
	}

	buf, err := zipBundles(bundles)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return sendZip(c, name+".zip", buf)
}

// GetDockerfile returns the cached Dockerfile for a container, reconstructing
// it from the container's configuration on first access.
func (h *ContainerHandler) GetDockerfile(c *fiber.Ctx) error {
	id := c.Params("id")
	snap := h.board.Snapshot()
	ct, ok := snap.Container(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "container not found",
		})
	}

	path := h.dockerfilePath(ct.Name)
	if data, err := os.ReadFile(path); err == nil {
		return c.JSON(fiber.Map{"dockerfile": string(data), "cached": true})
	}

	bundle, err := h.runtime.Export(c.Context(), id, false)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	content := bundle.Files["Dockerfile"]
	if err := h.writeDockerfile(ct.Name, content); err != nil {
		h.log.WithError(err).Warn("caching dockerfile failed")
	}
	return c.JSON(fiber.Map{"dockerfile": string(content), "cached": false})
}

type DockerfileRequest struct {
	Dockerfile string `json:"dockerfile"`
}

// SaveDockerfile stores an edited Dockerfile, rebuilds the image and recreates
// the container on the new image with its configuration preserved.
func (h *ContainerHandler) SaveDockerfile(c *fiber.Ctx) error {
	id := c.Params("id")
	var req DockerfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Dockerfile) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Dockerfile content is required",
		})
	}

	snap := h.board.Snapshot()
	ct, ok := snap.Container(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "container not found",
		})
	}

	if err := h.writeDockerfile(ct.Name, []byte(req.Dockerfile)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	tag := "dockboard/" + sanitizeTag(ct.Name) + ":latest"
	if _, err := h.builder.BuildDir(c.Context(), filepath.Dir(h.dockerfilePath(ct.Name)), tag); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Build failed: " + err.Error(),
		})
	}

	newID, err := h.runtime.RecreateFromImage(c.Context(), id, tag)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := h.board.Refresh(c.Context(), false); err != nil {
		h.log.WithError(err).Warn("refresh after recreate failed")
	}
	return c.JSON(fiber.Map{"id": newID, "image": tag})
}

type CreateContainerRequest struct {
	Name    string   `json:"name"`
	Image   string   `json:"image"`
	Env     []string `json:"env"`
	Command []string `json:"command"`
}

// CreateContainer starts a new container from an existing image.
func (h *ContainerHandler) CreateContainer(c *fiber.Ctx) error {
	var req CreateContainerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Image == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name and image are required",
		})
	}

	id, err := h.runtime.Create(c.Context(), req.Name, req.Image, req.Env, req.Command)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := h.board.Refresh(c.Context(), false); err != nil {
		h.log.WithError(err).Warn("refresh after create failed")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id, "image": req.Image})
}

type CreateFromDockerfileRequest struct {
	Name       string   `json:"name"`
	Dockerfile string   `json:"dockerfile"`
	Env        []string `json:"env"`
	Command    []string `json:"command"`
}

// CreateFromDockerfile builds an image from a submitted Dockerfile and starts
// a new container on it.
func (h *ContainerHandler) CreateFromDockerfile(c *fiber.Ctx) error {
	var req CreateFromDockerfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.Dockerfile) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name and Dockerfile content are required",
		})
	}

	if err := h.writeDockerfile(req.Name, []byte(req.Dockerfile)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	tag := "dockboard/" + sanitizeTag(req.Name) + ":latest"
	if _, err := h.builder.BuildDir(c.Context(), filepath.Dir(h.dockerfilePath(req.Name)), tag); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Build failed: " + err.Error(),
		})
	}

	id, err := h.runtime.Create(c.Context(), req.Name, tag, req.Env, req.Command)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := h.board.Refresh(c.Context(), false); err != nil {
		h.log.WithError(err).Warn("refresh after create failed")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id, "image": tag})
}

type CreateFromRepoRequest struct {
	RepoURL string `json:"repo_url"`
	Name    string `json:"name"`
	Image   string `json:"image"`
}

// CreateFromRepo clones a git repository, builds its Dockerfile and starts a
// container on the resulting image. The build is synchronous.
func (h *ContainerHandler) CreateFromRepo(c *fiber.Ctx) error {
	var req CreateFromRepoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.RepoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Repo URL is required",
		})
	}
	if req.Name == "" {
		req.Name = sanitizeTag(strings.TrimSuffix(filepath.Base(req.RepoURL), ".git"))
	}
	if req.Image == "" {
		req.Image = "dockboard/" + sanitizeTag(req.Name) + ":latest"
	}

	if _, err := h.builder.BuildImage(c.Context(), req.RepoURL, req.Image); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Build failed: " + err.Error(),
		})
	}

	id, err := h.runtime.Create(c.Context(), req.Name, req.Image, nil, nil)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := h.board.Refresh(c.Context(), false); err != nil {
		h.log.WithError(err).Warn("refresh after create failed")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id, "image": req.Image})
}

func (h *ContainerHandler) dockerfilePath(name string) string {
	return filepath.Join(h.dockerfilesDir, sanitizeTag(name), "Dockerfile")
}

func (h *ContainerHandler) writeDockerfile(name string, content []byte) error {
	path := h.dockerfilePath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dockerfile dir: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing dockerfile: %w", err)
	}
	return nil
}

// sanitizeTag reduces a name to the characters docker accepts in image tags
// and directory names.
func sanitizeTag(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	cleaned := strings.Trim(b.String(), "-._")
	if cleaned == "" {
		return "container"
	}
	return cleaned
}

// zipBundles packs export bundles into one zip. The map key becomes the
// directory prefix; an empty key puts the files at the zip root.
func zipBundles(bundles map[string]*domain.ExportBundle) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for prefix, bundle := range bundles {
		for name, content := range bundle.Files {
			entry := name
			if prefix != "" {
				entry = prefix + "/" + name
			}
			w, err := zw.Create(entry)
			if err != nil {
				zw.Close()
				return nil, fmt.Errorf("creating zip entry %s: %w", entry, err)
			}
			if _, err := w.Write(content); err != nil {
				zw.Close()
				return nil, fmt.Errorf("writing zip entry %s: %w", entry, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing zip: %w", err)
	}
	return buf, nil
}

func sendZip(c *fiber.Ctx, filename string, buf *bytes.Buffer) error {
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
