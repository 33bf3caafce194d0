package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dockboard/dockboard/internal/core/board"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List containers with their autostart status",
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
		containers, err := e.runtime.List(ctx)
		if err != nil {
			return fmt.Errorf("listing containers: %w", err)
		}

		type row struct {
			Name        string `json:"name"`
			State       string `json:"state"`
			Policy      string `json:"restart_policy"`
			Group       string `json:"group,omitempty"`
			Autostart   bool   `json:"autostart"`
			Attribution string `json:"attribution"`
		}
		rows := make([]row, 0, len(containers))
		for _, c := range containers {
			owners := groups.Containing(c.ID)
			status := board.ResolveAutostart(c, owners, auto)
			group := ""
			if len(owners) > 0 {
				group = owners[0]
			}
			rows = append(rows, row{
				Name:        c.Name,
				State:       c.State,
				Policy:      c.RestartPolicy,
				Group:       group,
				Autostart:   status.Enabled,
				Attribution: status.Attribution,
			})
		}

		if IsJSONOutput() {
			output, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(output))
			return nil
		}

		if len(rows) == 0 {
			fmt.Println("No containers found")
			return nil
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Name", "State", "Policy", "Group", "Autostart", "Attribution")
		for _, r := range rows {
			enabled := "no"
			if r.Autostart {
				enabled = "yes"
			}
			table.Append([]string{r.Name, r.State, r.Policy, r.Group, enabled, r.Attribution})
		}
		return table.Render()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
