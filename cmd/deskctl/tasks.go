package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newTasksCmd(api *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and kill running instances",
	}

	cmd.AddCommand(newTasksListCmd(api))
	cmd.AddCommand(newTasksKillCmd(api))

	return cmd
}

func newTasksListCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List running instances in launch order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var listing struct {
				Tasks []struct {
					AppID      string    `json:"app_id"`
					TaskID     string    `json:"task_id"`
					State      string    `json:"state"`
					Foreground bool      `json:"foreground"`
					LaunchedAt time.Time `json:"launched_at"`
				} `json:"tasks"`
			}
			if err := api.get("/tasks", &listing); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tAPP\tSTATE\tFG\tUPTIME")
			for _, t := range listing.Tasks {
				fg := ""
				if t.Foreground {
					fg = "*"
				}
				uptime := time.Since(t.LaunchedAt).Round(time.Second)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.TaskID, t.AppID, t.State, fg, uptime)
			}
			return w.Flush()
		},
	}
}

func newTasksKillCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "kill <task-id>",
		Short: "Terminate a running instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.del("/tasks/"+args[0], nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "killed %s\n", args[0])
			return nil
		},
	}
}
