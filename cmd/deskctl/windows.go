package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newWindowsCmd(api *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Inspect desktop windows",
	}

	cmd.AddCommand(newWindowsListCmd(api))

	return cmd
}

func newWindowsListCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List windows back to front",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var listing struct {
				Windows []struct {
					ID     string `json:"id"`
					AppID  string `json:"app_id"`
					Title  string `json:"title"`
					State  string `json:"state"`
					Bounds struct {
						X      int `json:"x"`
						Y      int `json:"y"`
						Width  int `json:"width"`
						Height int `json:"height"`
					} `json:"bounds"`
					Focused bool `json:"focused"`
				} `json:"windows"`
			}
			if err := api.get("/windows", &listing); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAPP\tTITLE\tSTATE\tBOUNDS\tFOCUS")
			for _, win := range listing.Windows {
				focus := ""
				if win.Focused {
					focus = "*"
				}
				bounds := fmt.Sprintf("%dx%d@%d,%d", win.Bounds.Width, win.Bounds.Height, win.Bounds.X, win.Bounds.Y)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", win.ID, win.AppID, win.Title, win.State, bounds, focus)
			}
			return w.Flush()
		},
	}
}
