package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAppsCmd(api *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Manage installed applications",
	}

	cmd.AddCommand(newAppsListCmd(api))
	cmd.AddCommand(newAppsLaunchCmd(api))
	cmd.AddCommand(newAppsInstallCmd(api))
	cmd.AddCommand(newAppsRemoveCmd(api))

	return cmd
}

func newAppsListCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the application catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var listing struct {
				Apps []struct {
					ID       string `json:"id"`
					Name     string `json:"name"`
					Version  string `json:"version"`
					Category string `json:"category"`
				} `json:"apps"`
			}
			if err := api.get("/apps", &listing); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tVERSION\tCATEGORY")
			for _, a := range listing.Apps {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Version, a.Category)
			}
			return w.Flush()
		},
	}
}

func newAppsLaunchCmd(api *client) *cobra.Command {
	var openPath string

	cmd := &cobra.Command{
		Use:   "launch <app-id>",
		Short: "Launch an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{}
			if openPath != "" {
				body["open_path"] = openPath
			}

			var running struct {
				AppID  string `json:"app_id"`
				TaskID string `json:"task_id"`
			}
			if err := api.post("/apps/"+args[0]+"/launch", body, &running); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "launched %s as %s\n", running.AppID, running.TaskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&openPath, "open", "", "file for the new instance to open")

	return cmd
}

func newAppsInstallCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "install <manifest.json | url>",
		Short: "Install an app from a local bundle or a remote origin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				AppID string `json:"app_id"`
			}

			src := args[0]
			if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
				if err := api.post("/apps/install/url", map[string]string{"url": src}, &result); err != nil {
					return err
				}
			} else {
				bundle, err := readBundle(src)
				if err != nil {
					return err
				}
				if err := api.post("/apps/install", bundle, &result); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", result.AppID)
			return nil
		},
	}
}

// readBundle loads a local manifest and the entry script it names,
// resolved relative to the manifest's directory.
func readBundle(manifestPath string) (map[string]interface{}, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}

	var manifest map[string]interface{}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestPath, err)
	}

	bundle := map[string]interface{}{"manifest": manifest}
	if entry, ok := manifest["entry"].(string); ok && entry != "" {
		script, err := os.ReadFile(filepath.Join(filepath.Dir(manifestPath), entry))
		if err != nil {
			return nil, err
		}
		bundle["entry"] = string(script)
	}
	return bundle, nil
}

func newAppsRemoveCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <app-id>",
		Short: "Uninstall an application, terminating its instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				AppID      string `json:"app_id"`
				Terminated int    `json:"terminated"`
			}
			if err := api.del("/apps/"+args[0], &result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%d instances terminated)\n", result.AppID, result.Terminated)
			return nil
		},
	}
}
