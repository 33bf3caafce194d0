package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/dockboard/dockboard/internal/core/board"
	"github.com/dockboard/dockboard/internal/core/domain"
	"github.com/dockboard/dockboard/internal/core/ports"
)

// BoardHandler exposes the card board: rendering, filters, organize mode,
// drag ordering, groups, aliases and autostart.
type BoardHandler struct {
	board *board.Board
	log   *logrus.Entry
}

func NewBoardHandler(b *board.Board, log *logrus.Entry) *BoardHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &BoardHandler{board: b, log: log}
}

// mutationResponse renders an optimistic mutation result. Confirmed and
// partial mutations answer 200 so the client keeps the applied state; a
// rollback answers with the error that reverted it.
func mutationResponse(c *fiber.Ctx, result board.MutationResult) error {
	switch result.Outcome {
	case board.OutcomeConfirmed:
		return c.JSON(fiber.Map{"outcome": result.Outcome.String()})
	case board.OutcomePartial:
		warnings := make([]string, 0, len(result.SecondaryErrs))
		for _, err := range result.SecondaryErrs {
			warnings = append(warnings, err.Error())
		}
		return c.JSON(fiber.Map{"outcome": result.Outcome.String(), "warnings": warnings})
	default:
		status := fiber.StatusInternalServerError
		if errors.Is(result.Err, board.ErrBusy) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"outcome": result.Outcome.String(),
			"error":   result.Err.Error(),
		})
	}
}

func mutationError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	if errors.Is(err, ports.ErrNotFound) {
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// GetBoard returns the rendered card list and the current view state.
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"cards":    h.board.Cards(),
		"organize": h.board.OrganizeMode(),
	})
}

// RefreshBoard re-reads the runtime and the stores on user request and
// returns the fresh card list.
func (h *BoardHandler) RefreshBoard(c *fiber.Ctx) error {
	if err := h.board.Refresh(c.Context(), true); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"cards":    h.board.Cards(),
		"organize": h.board.OrganizeMode(),
	})
}

type OrganizeRequest struct {
	Enabled bool `json:"enabled"`
}

// SetOrganize toggles organize mode. Enabling it clears both filters.
func (h *BoardHandler) SetOrganize(c *fiber.Ctx) error {
	var req OrganizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	h.board.SetOrganizeMode(req.Enabled)
	return c.JSON(fiber.Map{"organize": req.Enabled})
}

type FilterRequest struct {
	Text        *string `json:"text"`
	RunningOnly *bool   `json:"running_only"`
}

// SetFilter updates the text and running-only filters. Filters are ignored
// while organize mode is active.
func (h *BoardHandler) SetFilter(c *fiber.Ctx) error {
	var req FilterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text != nil {
		h.board.SetFilter(*req.Text)
	}
	if req.RunningOnly != nil {
		h.board.SetRunningOnly(*req.RunningOnly)
	}
	return c.JSON(fiber.Map{"cards": h.board.Cards()})
}

type DragStartRequest struct {
	Key string `json:"key"`
}

// DragStart begins a drag gesture on one card.
func (h *BoardHandler) DragStart(c *fiber.Ctx) error {
	var req DragStartRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Card key is required",
		})
	}
	if err := h.board.BeginDrag(req.Key); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "dragging", "key": req.Key})
}

type DragOverRequest struct {
	Key   string `json:"key"`
	Above bool   `json:"above"`
}

// DragOver relocates the dragged card relative to the hovered card.
func (h *BoardHandler) DragOver(c *fiber.Ctx) error {
	var req DragOverRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Card key is required",
		})
	}
	if err := h.board.DragOver(req.Key, req.Above); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

// DragEnd commits the final sequence of the active drag.
func (h *BoardHandler) DragEnd(c *fiber.Ctx) error {
	result, err := h.board.EndDrag(c.Context())
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

type OrderRequest struct {
	Sequence []string `json:"sequence"`
}

// CommitOrder applies an explicit top-to-bottom card sequence.
func (h *BoardHandler) CommitOrder(c *fiber.Ctx) error {
	var req OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	result, err := h.board.CommitOrder(c.Context(), req.Sequence)
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

// ListGroups returns the group document with alias metadata.
func (h *BoardHandler) ListGroups(c *fiber.Ctx) error {
	snap := h.board.Snapshot()
	return c.JSON(fiber.Map{
		"groups":  snap.Groups,
		"aliases": snap.GroupAliases,
	})
}

type SaveGroupsRequest struct {
	Groups  domain.Groups   `json:"groups"`
	Aliases domain.AliasMap `json:"aliases"`
}

// SaveGroups replaces the whole group document, the save the organize UI
// issues.
func (h *BoardHandler) SaveGroups(c *fiber.Ctx) error {
	var req SaveGroupsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	result, err := h.board.SaveGroups(c.Context(), req.Groups, req.Aliases)
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

// CreateGroup creates an empty group, pinned so it stays visible until
// populated.
func (h *BoardHandler) CreateGroup(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	result, err := h.board.CreateGroup(c.Context(), req.Name)
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

// DeleteGroup removes a group and its alias metadata.
func (h *BoardHandler) DeleteGroup(c *fiber.Ctx) error {
	result, err := h.board.DeleteGroup(c.Context(), c.Params("name"))
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

type GroupMembersRequest struct {
	Containers []string `json:"containers"`
}

// SetGroupMembers replaces a group's membership set.
func (h *BoardHandler) SetGroupMembers(c *fiber.Ctx) error {
	var req GroupMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	result, err := h.board.SetGroupMembers(c.Context(), c.Params("name"), req.Containers)
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

// SetGroupAlias updates a group's alias metadata.
func (h *BoardHandler) SetGroupAlias(c *fiber.Ctx) error {
	var alias domain.Alias
	if err := c.BodyParser(&alias); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	result, err := h.board.SetGroupAlias(c.Context(), c.Params("name"), alias)
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

// ListContainerAliases returns the container alias document.
func (h *BoardHandler) ListContainerAliases(c *fiber.Ctx) error {
	return c.JSON(h.board.Snapshot().ContainerAliases)
}

// SetContainerAlias updates a container's alias metadata.
func (h *BoardHandler) SetContainerAlias(c *fiber.Ctx) error {
	var alias domain.Alias
	if err := c.BodyParser(&alias); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	result, err := h.board.SetContainerAlias(c.Context(), c.Params("id"), alias)
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

type AutostartToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// SetGroupAutostart toggles group autostart, fanning the restart-policy
// update out to every member.
func (h *BoardHandler) SetGroupAutostart(c *fiber.Ctx) error {
	var req AutostartToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	result, err := h.board.SetGroupAutostart(c.Context(), c.Params("name"), req.Enabled)
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

// SetContainerAutostart toggles the individual autostart flag of an
// ungrouped container.
func (h *BoardHandler) SetContainerAutostart(c *fiber.Ctx) error {
	var req AutostartToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	result, err := h.board.SetContainerAutostart(c.Context(), c.Params("id"), req.Enabled)
	if err != nil {
		return mutationError(c, err)
	}
	return mutationResponse(c, result)
}

// GetContainerAutostart returns the derived autostart status of one
// container.
func (h *BoardHandler) GetContainerAutostart(c *fiber.Ctx) error {
	status, err := h.board.Resolve(c.Params("id"))
	if err != nil {
		return mutationError(c, err)
	}
	return c.JSON(status)
}

// GetAutostart returns the declared autostart configuration.
func (h *BoardHandler) GetAutostart(c *fiber.Ctx) error {
	return c.JSON(h.board.Snapshot().Autostart)
}

// SaveAutostart replaces the autostart configuration, re-syncs restart
// policies and starts enabled containers. Warnings are advisory.
func (h *BoardHandler) SaveAutostart(c *fiber.Ctx) error {
	var cfg domain.AutostartConfig
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	saved, warnings, err := h.board.SaveAutostart(c.Context(), cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	resp := fiber.Map{"autostart": saved}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	return c.JSON(resp)
}
