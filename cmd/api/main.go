package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/dockboard/dockboard/internal/adapters/builder"
	"github.com/dockboard/dockboard/internal/adapters/docker"
	httpapi "github.com/dockboard/dockboard/internal/adapters/http"
	"github.com/dockboard/dockboard/internal/adapters/store"
	"github.com/dockboard/dockboard/internal/adapters/system"
	"github.com/dockboard/dockboard/internal/config"
	"github.com/dockboard/dockboard/internal/core/board"
)

// logNotifier surfaces board notifications in the server log.
type logNotifier struct {
	log *logrus.Entry
}

func (n logNotifier) Info(msg string)  { n.log.Info(msg) }
func (n logNotifier) Error(msg string) { n.log.Error(msg) }

func main() {
	configFile := flag.String("config", os.Getenv("DOCKBOARD_CONFIG"), "path to config file")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.WithError(err).Fatal("loading configuration failed")
	}
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	groups, err := store.NewGroupStore(cfg.GroupsFile())
	if err != nil {
		log.WithError(err).Fatal("opening group store failed")
	}
	groupAliases, err := store.NewAliasStore(cfg.GroupAliasesFile())
	if err != nil {
		log.WithError(err).Fatal("opening group alias store failed")
	}
	containerAliases, err := store.NewAliasStore(cfg.ContainerAliasesFile())
	if err != nil {
		log.WithError(err).Fatal("opening container alias store failed")
	}
	autostart, err := store.NewAutostartStore(cfg.AutostartFile())
	if err != nil {
		log.WithError(err).Fatal("opening autostart store failed")
	}
	local, err := store.NewLocalStore(cfg.PinnedGroupsFile())
	if err != nil {
		log.WithError(err).Fatal("opening pinned group store failed")
	}

	runtime, err := docker.NewAdapter(logrus.NewEntry(log).WithField("component", "docker"))
	if err != nil {
		log.WithError(err).Fatal("initializing docker adapter failed")
	}
	imageBuilder, err := builder.NewAdapter(logrus.NewEntry(log).WithField("component", "builder"))
	if err != nil {
		log.WithError(err).Fatal("initializing builder failed")
	}

	b := board.New(board.Deps{
		Runtime:          runtime,
		Groups:           groups,
		GroupAliases:     groupAliases,
		ContainerAliases: containerAliases,
		Autostart:        autostart,
		Local:            local,
		Notifier:         logNotifier{log: logrus.NewEntry(log).WithField("component", "board")},
		Log:              logrus.NewEntry(log).WithField("component", "board"),
	})

	bootCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DockerTimeout)*time.Second)
	if err := b.Refresh(bootCtx, false); err != nil {
		log.WithError(err).Warn("initial refresh failed, starting with an empty snapshot")
	} else {
		snap := b.Snapshot()
		for _, w := range board.SyncRestartPolicies(bootCtx, runtime, snap.Autostart, snap.Groups) {
			log.WithField("warning", w).Warn("restart policy sync")
		}
		for _, w := range board.EnsureAutostartRunning(bootCtx, runtime, snap.Autostart, snap.Groups) {
			log.WithField("warning", w).Warn("autostart run")
		}
	}
	cancel()

	handlers := httpapi.Handlers{
		Containers: httpapi.NewContainerHandler(b, runtime, imageBuilder, cfg.DockerfilesDir, logrus.NewEntry(log).WithField("component", "http")),
		Board:      httpapi.NewBoardHandler(b, logrus.NewEntry(log).WithField("component", "http")),
		System:     httpapi.NewSystemHandler(system.NewCollector(), runtime, logrus.NewEntry(log).WithField("component", "http")),
		Icons:      httpapi.NewIconHandler(cfg.IconsDir, logrus.NewEntry(log).WithField("component", "http")),
		Wallpaper:  httpapi.NewWallpaperHandler(logrus.NewEntry(log).WithField("component", "http")),
	}

	app := fiber.New(fiber.Config{
		AppName:     "dockboard",
		ReadTimeout: time.Duration(cfg.DockerTimeout) * time.Second,
		BodyLimit:   64 << 20,
	})
	httpapi.RegisterRoutes(app, handlers, httpapi.StaticConfig{
		StaticDir: cfg.StaticDir,
		IndexFile: cfg.IndexFile,
		IconsDir:  cfg.IconsDir,
	})

	go func() {
		log.WithField("addr", cfg.Addr()).Info("server starting")
		if err := app.Listen(cfg.Addr()); err != nil {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
