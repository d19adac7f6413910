package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/halfgrid/scenecore/internal/library"
	"github.com/halfgrid/scenecore/internal/scene"
)

// NewNewCommand creates the new command.
func NewNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "new <name>",
		Short:         "Create an empty scene",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			lib, err := library.Open(rootOpts.DB)
			if err != nil {
				return WrapExitError(ExitCommandError, "open library", err)
			}
			defer lib.Close()

			if err := lib.Save(cmd.Context(), args[0], scene.NewScene()); err != nil {
				return WrapExitError(ExitFailure, "save scene", err)
			}
			return f.Success(fmt.Sprintf("created %s", args[0]))
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a saved scene",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			lib, err := library.Open(rootOpts.DB)
			if err != nil {
				return WrapExitError(ExitCommandError, "open library", err)
			}
			defer lib.Close()

			err = lib.Delete(cmd.Context(), args[0])
			if errors.Is(err, library.ErrNotFound) {
				return WrapExitError(ExitFailure, fmt.Sprintf("scene %q not found", args[0]), err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "delete scene", err)
			}
			return f.Success(fmt.Sprintf("deleted %s", args[0]))
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "export <name> <file>",
		Short:         "Write a scene's serialized form to a file",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			lib, err := library.Open(rootOpts.DB)
			if err != nil {
				return WrapExitError(ExitCommandError, "open library", err)
			}
			defer lib.Close()

			_, body, err := lib.Get(cmd.Context(), args[0])
			if errors.Is(err, library.ErrNotFound) {
				return WrapExitError(ExitFailure, fmt.Sprintf("scene %q not found", args[0]), err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "get scene", err)
			}

			if err := os.WriteFile(args[1], append([]byte(body), '\n'), 0644); err != nil {
				return WrapExitError(ExitFailure, "write export", err)
			}
			return f.Success(fmt.Sprintf("exported %s to %s", args[0], args[1]))
		},
	}
}
