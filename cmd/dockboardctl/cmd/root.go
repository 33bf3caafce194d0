// Package cmd implements the dockboardctl command line interface.
package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dockboard/dockboard/internal/adapters/docker"
	"github.com/dockboard/dockboard/internal/adapters/store"
	"github.com/dockboard/dockboard/internal/config"
	"github.com/dockboard/dockboard/internal/core/domain"
	"github.com/dockboard/dockboard/internal/core/ports"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "dockboardctl",
	Short: "CLI for the dockboard container dashboard",
	Long:  `dockboardctl inspects and maintains the dockboard state directly: container status, autostart policy sync and startup of enabled containers.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default uses DOCKBOARD_* env and built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// IsJSONOutput reports whether JSON output is requested.
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// env bundles the adapters the subcommands work with.
type env struct {
	cfg     config.Config
	runtime ports.ContainerRuntime
	groups  ports.GroupStore
	auto    ports.AutostartStore
}

func newEnv() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logrus.SetLevel(logrus.WarnLevel)
	runtime, err := docker.NewAdapter(logrus.NewEntry(logrus.StandardLogger()))
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}
	groups, err := store.NewGroupStore(cfg.GroupsFile())
	if err != nil {
		return nil, fmt.Errorf("opening group store: %w", err)
	}
	auto, err := store.NewAutostartStore(cfg.AutostartFile())
	if err != nil {
		return nil, fmt.Errorf("opening autostart store: %w", err)
	}
	return &env{cfg: cfg, runtime: runtime, groups: groups, auto: auto}, nil
}

func (e *env) state() (domain.AutostartConfig, domain.Groups, error) {
	auto, err := e.auto.Read()
	if err != nil {
		return domain.AutostartConfig{}, nil, fmt.Errorf("reading autostart config: %w", err)
	}
	groups, err := e.groups.Read()
	if err != nil {
		return domain.AutostartConfig{}, nil, fmt.Errorf("reading groups: %w", err)
	}
	return auto, groups, nil
}
