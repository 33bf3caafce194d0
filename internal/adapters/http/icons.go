package http

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const maxIconBytes = 5 << 20

var allowedIconExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
	".ico":  true,
}

// IconHandler stores uploaded card icons under a content-addressed filename,
// so re-uploading the same image is idempotent.
type IconHandler struct {
	dir string
	log *logrus.Entry
}

func NewIconHandler(dir string, log *logrus.Entry) *IconHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &IconHandler{dir: dir, log: log}
}

// Upload accepts a multipart image and returns the stored filename for use
// in alias metadata.
func (h *IconHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Icon file is required",
		})
	}
	if header.Size > maxIconBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "Icon exceeds the 5 MiB limit",
		})
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedIconExts[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported icon type " + ext,
		})
	}

	file, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxIconBytes+1))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if len(content) > maxIconBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "Icon exceeds the 5 MiB limit",
		})
	}

	sum := md5.Sum(content)
	name := hex.EncodeToString(sum[:])[:12] + ext

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	path := filepath.Join(h.dir, name)
	if _, err := os.Stat(path); err != nil {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.log.WithField("icon", name).Info("icon stored")
	}
	return c.JSON(fiber.Map{"file": name})
}
