package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadEditFile(t *testing.T) {
	path := writeTempFile(t, "edit.json", `{
		"a": {"x": 1},
		"b": null
	}`)

	m, err := readEditFile(path)
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.NotNil(t, m["a"])
	assert.Nil(t, m["b"])
}

func TestReadEditFileNewPlaceholders(t *testing.T) {
	path := writeTempFile(t, "edit.json", `{
		"new:door": {"kind": "door"},
		"new:window": {"kind": "window"}
	}`)

	m, err := readEditFile(path)
	require.NoError(t, err)
	require.Len(t, m, 2)
	for id := range m {
		assert.False(t, strings.HasPrefix(id, "new:"))
	}
}

func TestReadEditFileRejectsNonObject(t *testing.T) {
	_, err := readEditFile(writeTempFile(t, "edit.json", `[1, 2]`))
	assert.Error(t, err)

	_, err = readEditFile(writeTempFile(t, "edit.json", `{"a": 42}`))
	assert.Error(t, err)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := WrapExitError(ExitFailure, "load scene", errors.New("boom"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "load scene: boom", wrapped.Error())
}

func TestOutputFormatterJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success("saved"))
	assert.JSONEq(t, `{"status":"ok","data":"saved"}`, buf.String())

	buf.Reset()
	require.NoError(t, f.Error("not_found", "scene missing"))
	assert.JSONEq(t, `{"status":"error","error":{"code":"not_found","message":"scene missing"}}`, buf.String())
}

func TestOutputFormatterVerboseGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("loaded %d entities", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 entities\n", errOut.String())
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "scenes"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
