package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dockboard/dockboard/internal/core/board"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Maintain the declared autostart configuration",
}

var autostartSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push declared restart policies to the runtime and start enabled containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		auto, groups, err := e.state()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(e.cfg.DockerTimeout)*time.Second)
		defer cancel()

		warnings := board.SyncRestartPolicies(ctx, e.runtime, auto, groups)
		warnings = append(warnings, board.EnsureAutostartRunning(ctx, e.runtime, auto, groups)...)

		for _, w := range warnings {
			fmt.Println("warning:", w)
		}
		if len(warnings) == 0 {
			fmt.Println("autostart state in sync")
		}
		return nil
	},
}

var autostartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the declared autostart configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		auto, _, err := e.state()
		if err != nil {
			return err
		}
		if len(auto.Groups) == 0 && len(auto.Containers) == 0 {
			fmt.Println("autostart configuration is empty")
			return nil
		}
		for _, name := range auto.Groups {
			fmt.Println("group:", name)
		}
		for _, id := range auto.Containers {
			fmt.Println("container:", id)
		}
		return nil
	},
}

func init() {
	autostartCmd.AddCommand(autostartSyncCmd)
	autostartCmd.AddCommand(autostartShowCmd)
	rootCmd.AddCommand(autostartCmd)
}
