package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newFSCmd(api *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fs",
		Short: "Read and write the virtual file system",
	}

	cmd.AddCommand(newFSListCmd(api))
	cmd.AddCommand(newFSCatCmd(api))
	cmd.AddCommand(newFSWriteCmd(api))
	cmd.AddCommand(newFSMkdirCmd(api))
	cmd.AddCommand(newFSRemoveCmd(api))
	cmd.AddCommand(newFSMoveCmd(api))
	cmd.AddCommand(newFSCopyCmd(api))

	return cmd
}

func newFSListCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := "/"
			if len(args) == 1 {
				p = args[0]
			}

			var listing struct {
				Entries []struct {
					Type      string    `json:"type"`
					Name      string    `json:"name"`
					Size      int64     `json:"size"`
					MimeType  string    `json:"mime_type"`
					UpdatedAt time.Time `json:"updated_at"`
				} `json:"entries"`
			}
			if err := api.get("/fs/ls"+absolute(p), &listing); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tSIZE\tMODIFIED\tNAME")
			for _, e := range listing.Entries {
				name := e.Name
				if e.Type == "directory" {
					name += "/"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Type, e.Size, e.UpdatedAt.Format("2006-01-02 15:04"), name)
			}
			return w.Flush()
		},
	}
}

func newFSCatCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file's contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := api.getRaw("/fs/read" + absolute(args[0]))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
}

func newFSWriteCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "write <path>",
		Short: "Write stdin to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}

			var node struct {
				Path string `json:"path"`
				Size int64  `json:"size"`
			}
			if err := api.put("/fs/write"+absolute(args[0]), data, &node); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", node.Size, node.Path)
			return nil
		},
	}
}

func newFSMkdirCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory, with parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return api.post("/fs/mkdir"+absolute(args[0]), nil, nil)
		},
	}
}

func newFSRemoveCmd(api *client) *cobra.Command {
	var dir bool

	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file, or an empty directory with -d",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			route := "/fs/rm"
			if dir {
				route = "/fs/rmdir"
			}
			return api.del(route+absolute(args[0]), nil)
		},
	}
	cmd.Flags().BoolVarP(&dir, "dir", "d", false, "remove an empty directory")

	return cmd
}

func newFSMoveCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Rename or move a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"from": absolute(args[0]), "to": absolute(args[1])}
			return api.post("/fs/mv", body, nil)
		},
	}
}

func newFSCopyCmd(api *client) *cobra.Command {
	return &cobra.Command{
		Use:   "cp <from> <to>",
		Short: "Copy a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"from": absolute(args[0]), "to": absolute(args[1])}
			return api.post("/fs/cp", body, nil)
		},
	}
}

// absolute leaves rooted paths alone and roots bare ones, so
// "Documents/todo.txt" works the way "/Documents/todo.txt" does.
func absolute(p string) string {
	if len(p) > 0 && p[0] == '/' {
		return p
	}
	return "/" + p
}
