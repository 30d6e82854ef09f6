package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const noteDoc = `
name: Note
attrs:
  table: notes
fields:
  - name: id
    type: uuid
    attrs: {id: true}
  - name: body
    type: string
    attrs: {field: [create, update, response]}
`

const tagDoc = `
name: Tag
attrs:
  table: tags
fields:
  - name: id
    type: int64
    attrs: {id: true, auto: true}
  - name: label
    type: string
    attrs: {field: [create, response]}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// noEnv is an environment lookup without variables.
func noEnv(string) (string, bool) { return "", false }

// env returns a lookup over vars.
func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}
