package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:9898"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "deskctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:           "deskctl",
		Short:         "Control a running macos98 kernel",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&server, "server", "s", envOr("DESKCTL_SERVER", defaultServer), "kernel address")

	api := newClient(&server)
	root.AddCommand(newHealthCmd(api))
	root.AddCommand(newAppsCmd(api))
	root.AddCommand(newTasksCmd(api))
	root.AddCommand(newWindowsCmd(api))
	root.AddCommand(newFSCmd(api))

	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
