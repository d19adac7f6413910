package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halfgrid/scenecore/internal/library"
)

// SceneDetail is the JSON shape of a shown scene.
type SceneDetail struct {
	Name         string          `json:"name"`
	ResourceType string          `json:"resource_type"`
	Revision     int64           `json:"revision"`
	Entities     json.RawMessage `json:"entities"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <name>",
		Short:         "Print a saved scene's serialized form",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, name string, cmd *cobra.Command) error {
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	lib, err := library.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "open library", err)
	}
	defer lib.Close()

	entry, body, err := lib.Get(cmd.Context(), name)
	if errors.Is(err, library.ErrNotFound) {
		return WrapExitError(ExitFailure, fmt.Sprintf("scene %q not found", name), err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "get scene", err)
	}

	if opts.Format == "json" {
		return f.Success(SceneDetail{
			Name:         entry.Name,
			ResourceType: entry.ResourceType,
			Revision:     entry.Revision,
			Entities:     json.RawMessage(body),
		})
	}

	f.VerboseLog("scene %s (type %s, rev %d)", entry.Name, entry.ResourceType, entry.Revision)
	fmt.Fprintln(f.Writer, body)
	return nil
}
