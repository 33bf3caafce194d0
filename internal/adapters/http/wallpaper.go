package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	bingArchiveURL = "https://www.bing.com/HPImageArchive.aspx?format=js&idx=0&n=1&mkt=%s"
	bingBaseURL    = "https://www.bing.com"
	wallpaperTTL   = 6 * time.Hour
)

var marketPattern = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)

// Wallpaper is the daily background image metadata served to the dashboard.
type Wallpaper struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Copyright string `json:"copyright,omitempty"`
	Market    string `json:"market"`
}

type cachedWallpaper struct {
	wallpaper Wallpaper
	fetchedAt time.Time
}

// WallpaperHandler fetches the Bing image-of-the-day and caches it per
// market. A failed upstream fetch serves the stale entry when one exists.
type WallpaperHandler struct {
	client *http.Client
	log    *logrus.Entry

	mu    sync.Mutex
	cache map[string]cachedWallpaper
}

func NewWallpaperHandler(log *logrus.Entry) *WallpaperHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &WallpaperHandler{
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
		cache:  make(map[string]cachedWallpaper),
	}
}

// Get returns the wallpaper for the requested market, default en-US.
func (h *WallpaperHandler) Get(c *fiber.Ctx) error {
	market := c.Query("market", "en-US")
	if !marketPattern.MatchString(market) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid market %q", market),
		})
	}

	h.mu.Lock()
	entry, ok := h.cache[market]
	h.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < wallpaperTTL {
		return c.JSON(entry.wallpaper)
	}

	wallpaper, err := h.fetch(c.Context(), market)
	if err != nil {
		if ok {
			h.log.WithError(err).WithField("market", market).Warn("wallpaper fetch failed, serving stale entry")
			return c.JSON(entry.wallpaper)
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.mu.Lock()
	h.cache[market] = cachedWallpaper{wallpaper: wallpaper, fetchedAt: time.Now()}
	h.mu.Unlock()
	return c.JSON(wallpaper)
}

func (h *WallpaperHandler) fetch(ctx context.Context, market string) (Wallpaper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(bingArchiveURL, market), nil)
	if err != nil {
		return Wallpaper{}, fmt.Errorf("building wallpaper request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Wallpaper{}, fmt.Errorf("fetching wallpaper: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Wallpaper{}, fmt.Errorf("wallpaper upstream answered %s", resp.Status)
	}

	var payload struct {
		Images []struct {
			URL       string `json:"url"`
			Title     string `json:"title"`
			Copyright string `json:"copyright"`
		} `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Wallpaper{}, fmt.Errorf("decoding wallpaper response: %w", err)
	}
	if len(payload.Images) == 0 {
		return Wallpaper{}, fmt.Errorf("wallpaper upstream returned no images")
	}

	img := payload.Images[0]
	return Wallpaper{
		URL:       bingBaseURL + img.URL,
		Title:     img.Title,
		Copyright: img.Copyright,
		Market:    market,
	}, nil
}
