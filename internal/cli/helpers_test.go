package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const animalsCatalog = `album:
  id: 1
  name: Animals
  sets:
    - id: 1
      name: Birds
      cards:
        - {id: 1, name: Eagle}
        - {id: 2, name: Cormorant}
        - {id: 3, name: Sparrow}
        - {id: 4, name: Raven}
    - id: 2
      name: Fish
      cards:
        - {id: 5, name: Salmon}
        - {id: 6, name: Mullet}
        - {id: 7, name: Bream}
        - {id: 8, name: Marline}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeCatalog writes the two-set animals catalog into a temp dir.
func writeCatalog(t *testing.T) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "animals.yaml", animalsCatalog)
}

// execute runs cmd with args and returns stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// typedResponse is CLIResponse with a concrete payload type.
type typedResponse[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
	RunID  string    `json:"run_id"`
}

func decodeResponse[T any](t *testing.T, out string) typedResponse[T] {
	t.Helper()
	var resp typedResponse[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}
