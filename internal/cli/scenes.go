package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halfgrid/scenecore/internal/library"
)

// SceneListEntry is the JSON shape of one listed scene.
type SceneListEntry struct {
	Name         string `json:"name"`
	ResourceType string `json:"resource_type"`
	Revision     int64  `json:"revision"`
	SavedAt      string `json:"saved_at"`
}

// NewScenesCommand creates the scenes command.
func NewScenesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "scenes",
		Short:         "List saved scenes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenes(rootOpts, cmd)
		},
	}
}

func runScenes(opts *RootOptions, cmd *cobra.Command) error {
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	lib, err := library.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "open library", err)
	}
	defer lib.Close()

	entries, err := lib.List(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "list scenes", err)
	}

	if opts.Format == "json" {
		out := make([]SceneListEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, SceneListEntry{
				Name:         e.Name,
				ResourceType: e.ResourceType,
				Revision:     e.Revision,
				SavedAt:      e.SavedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		return f.Success(out)
	}

	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "no scenes")
		return nil
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%-24s %-8s rev %d  %s\n", e.Name, e.ResourceType, e.Revision, e.SavedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprint(f.Writer, b.String())
	return nil
}
