package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halfgrid/scenecore/internal/entity"
	"github.com/halfgrid/scenecore/internal/library"
	"github.com/halfgrid/scenecore/internal/scene"
	"github.com/halfgrid/scenecore/internal/value"
)

// newIDPrefix marks edit-file ids that should be replaced with a freshly
// generated entity id. "new:door" and "new:window" in one file get distinct
// ids; the label only exists so the file can reference nothing twice.
const newIDPrefix = "new:"

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	var reverseOut string

	cmd := &cobra.Command{
		Use:   "apply <name> <edit.json>",
		Short: "Apply an edit map to a saved scene",
		Long: `Apply an edit map to a saved scene and save the result.

The edit file is a JSON object mapping entity ids to either null (remove
the entity) or a partial component state to deep-merge. Ids prefixed with
"new:" are replaced by freshly generated ids.

With --reverse-out, the reverse edit is written to a file; applying that
file afterwards restores the scene's prior state.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, args[0], args[1], reverseOut, cmd)
		},
	}

	cmd.Flags().StringVar(&reverseOut, "reverse-out", "", "write the reverse edit to this file")
	return cmd
}

func runApply(opts *RootOptions, name, editPath, reverseOut string, cmd *cobra.Command) error {
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := readEditFile(editPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "read edit file", err)
	}

	lib, err := library.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "open library", err)
	}
	defer lib.Close()

	resource, err := lib.Load(cmd.Context(), name)
	if errors.Is(err, library.ErrNotFound) {
		return WrapExitError(ExitFailure, fmt.Sprintf("scene %q not found", name), err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "load scene", err)
	}
	current, ok := resource.(*scene.Scene)
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("resource %q is %s, not a scene", name, resource.ResourceType()))
	}

	reverse := current.CreateReverseEdit(m)
	next := current.ApplyEdit(m)
	f.VerboseLog("applied %d entity edits; scene now holds %d entities", len(m), next.Count())

	if err := lib.Save(cmd.Context(), name, next); err != nil {
		return WrapExitError(ExitFailure, "save scene", err)
	}

	if reverseOut != "" {
		if err := writeEditFile(reverseOut, reverse); err != nil {
			return WrapExitError(ExitFailure, "write reverse edit", err)
		}
	}
	return f.Success(fmt.Sprintf("applied %d edits to %s", len(m), name))
}

// readEditFile parses an edit file and rewrites "new:" placeholder ids.
func readEditFile(path string) (scene.EditMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoded, err := value.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	obj, ok := decoded.(value.Object)
	if !ok {
		return nil, fmt.Errorf("edit file must hold a JSON object, got %T", decoded)
	}

	m := make(scene.EditMap, len(obj))
	fresh := map[string]string{}
	for id, partial := range obj {
		if strings.HasPrefix(id, newIDPrefix) {
			label := id
			if _, exists := fresh[label]; !exists {
				fresh[label] = entity.NewID()
			}
			id = fresh[label]
		}
		if value.IsNull(partial) {
			m[id] = nil
			continue
		}
		state, ok := partial.(value.Object)
		if !ok {
			return nil, fmt.Errorf("entity %q: edit must be null or an object, got %T", id, partial)
		}
		m[id] = state
	}
	return m, nil
}

// writeEditFile serializes an edit map deterministically.
func writeEditFile(path string, m scene.EditMap) error {
	obj := make(value.Object, len(m))
	for id, partial := range m {
		if partial == nil {
			obj[id] = value.Null{}
		} else {
			obj[id] = partial
		}
	}
	data, err := value.MarshalDeterministic(obj)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
