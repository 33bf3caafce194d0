package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/dockboard/dockboard/internal/adapters/system"
	"github.com/dockboard/dockboard/internal/core/ports"
)

// SystemHandler serves host and container resource usage for the dashboard
// widgets.
type SystemHandler struct {
	collector *system.Collector
	runtime   ports.ContainerRuntime
	log       *logrus.Entry
}

func NewSystemHandler(collector *system.Collector, runtime ports.ContainerRuntime, log *logrus.Entry) *SystemHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SystemHandler{collector: collector, runtime: runtime, log: log}
}

// Stats returns a host resource snapshot.
func (h *SystemHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.collector.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(stats)
}

// Top lists the heaviest consumers: host processes by default, running
// containers with mode=containers.
func (h *SystemHandler) Top(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 10 {
		limit = 10
	}

	if c.Query("mode") == "containers" {
		usages, err := h.runtime.Usage(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if limit > 0 && len(usages) > limit {
			usages = usages[:limit]
		}
		return c.JSON(fiber.Map{"containers": usages})
	}

	procs, err := h.collector.TopProcesses(c.Context(), c.Query("sort", "cpu"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"processes": procs})
}
