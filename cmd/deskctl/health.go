package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check kernel health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var health struct {
				Status        string  `json:"status"`
				Version       string  `json:"version"`
				UptimeSeconds float64 `json:"uptime_seconds"`
				FS            struct {
					Nodes       int `json:"nodes"`
					Files       int `json:"files"`
					Directories int `json:"directories"`
				} `json:"fs"`
				Tasks struct {
					Total   int `json:"total"`
					Running int `json:"running"`
				} `json:"tasks"`
				Windows struct {
					Open int `json:"open"`
				} `json:"windows"`
				Apps struct {
					Registered int `json:"registered"`
					Running    int `json:"running"`
				} `json:"apps"`
			}
			if err := api.get("/health", &health); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			uptime := time.Duration(health.UptimeSeconds * float64(time.Second)).Round(time.Second)
			fmt.Fprintf(out, "status:   %s\n", health.Status)
			fmt.Fprintf(out, "version:  %s\n", health.Version)
			fmt.Fprintf(out, "uptime:   %s\n", uptime)
			fmt.Fprintf(out, "apps:     %d registered, %d running\n", health.Apps.Registered, health.Apps.Running)
			fmt.Fprintf(out, "tasks:    %d total, %d running\n", health.Tasks.Total, health.Tasks.Running)
			fmt.Fprintf(out, "windows:  %d open\n", health.Windows.Open)
			fmt.Fprintf(out, "fs:       %d nodes (%d files, %d directories)\n", health.FS.Nodes, health.FS.Files, health.FS.Directories)
			return nil
		},
	}
}
