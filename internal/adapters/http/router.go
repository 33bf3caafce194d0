package http

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Containers *ContainerHandler
	Board      *BoardHandler
	System     *SystemHandler
	Icons      *IconHandler
	Wallpaper  *WallpaperHandler
}

// StaticConfig describes the frontend assets the server hosts.
type StaticConfig struct {
	StaticDir string
	IndexFile string
	IconsDir  string
}

// RegisterRoutes mounts the API and the static frontend on the app.
func RegisterRoutes(app *fiber.App, h Handlers, static StaticConfig) {
	api := app.Group("/api")

	api.Get("/containers", h.Containers.ListContainers)
	api.Post("/containers", h.Containers.CreateContainer)
	api.Post("/containers/from-dockerfile", h.Containers.CreateFromDockerfile)
	api.Post("/containers/from-repo", h.Containers.CreateFromRepo)
	api.Post("/containers/:id/action", h.Containers.ContainerAction)
	api.Post("/containers/:id/restart-policy", h.Containers.SetRestartPolicy)
	api.Get("/containers/:id/export", h.Containers.ExportContainer)
	api.Get("/containers/:id/dockerfile", h.Containers.GetDockerfile)
	api.Post("/containers/:id/dockerfile", h.Containers.SaveDockerfile)
	api.Get("/containers/:id/autostart", h.Board.GetContainerAutostart)
	api.Post("/containers/:id/autostart", h.Board.SetContainerAutostart)
	api.Post("/containers/:id/alias", h.Board.SetContainerAlias)

	api.Get("/container-aliases", h.Board.ListContainerAliases)

	api.Get("/board", h.Board.GetBoard)
	api.Post("/board/refresh", h.Board.RefreshBoard)
	api.Post("/board/organize", h.Board.SetOrganize)
	api.Post("/board/filter", h.Board.SetFilter)
	api.Post("/board/order", h.Board.CommitOrder)
	api.Post("/board/drag/start", h.Board.DragStart)
	api.Post("/board/drag/over", h.Board.DragOver)
	api.Post("/board/drag/end", h.Board.DragEnd)

	api.Get("/groups", h.Board.ListGroups)
	api.Post("/groups", h.Board.SaveGroups)
	api.Post("/groups/create", h.Board.CreateGroup)
	api.Delete("/groups/:name", h.Board.DeleteGroup)
	api.Put("/groups/:name/members", h.Board.SetGroupMembers)
	api.Post("/groups/:name/alias", h.Board.SetGroupAlias)
	api.Post("/groups/:name/autostart", h.Board.SetGroupAutostart)
	api.Get("/groups/:name/export", h.Containers.ExportGroup)

	api.Get("/autostart", h.Board.GetAutostart)
	api.Post("/autostart", h.Board.SaveAutostart)

	api.Get("/system/stats", h.System.Stats)
	api.Get("/system/top", h.System.Top)

	api.Post("/icons", h.Icons.Upload)
	api.Get("/wallpaper", h.Wallpaper.Get)

	app.Static("/icons", static.IconsDir)
	app.Static("/", static.StaticDir)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(static.StaticDir, static.IndexFile))
	})
}
