package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardbook/internal/store"
)

const passingScenario = `name: one_set
description: "Finishing the birds set announces it once"
catalog_file: catalogs/animals.yaml
steps:
  - assign: {user: 1, card: 1}
  - assign: {user: 1, card: 2}
  - assign: {user: 1, card: 3}
  - assign:
      user: 1
      card: 4
      expect:
        - {kind: SET_FINISHED, set: 1}
assertions:
  - {type: event_count, kind: SET_FINISHED, user: 1, count: 1}
  - {type: owns, user: 1, card: 4}
`

const failingScenario = `name: wrong_count
description: "One card does not finish a four-card set"
catalog_file: catalogs/animals.yaml
steps:
  - assign: {user: 1, card: 1}
assertions:
  - {type: event_count, kind: SET_FINISHED, user: 1, count: 1}
`

// scenarioDir writes the given scenarios with the animals catalog in a
// subdirectory, where it is not mistaken for a scenario.
func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "catalogs/animals.yaml", animalsCatalog)
	for name, content := range scenarios {
		writeFile(t, dir, name, content)
	}
	return dir
}

func TestTestCommandPasses(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"one_set.scenario.yml": passingScenario})

	rootOpts := &RootOptions{Format: "json"}
	out, err := execute(NewTestCommand(rootOpts), dir, "--filter", "one_*")
	require.NoError(t, err)

	resp := decodeResponse[TestResult](t, out)
	require.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "one_set", resp.Data.Scenarios[0].Name)
	assert.Equal(t, goldenMissing, resp.Data.Scenarios[0].Golden)
}

func TestTestCommandFails(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"a_pass.yaml": passingScenario,
		"b_fail.yaml": failingScenario,
	})

	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(NewTestCommand(rootOpts), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ one_set")
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"one_set.yaml": passingScenario})

	rootOpts := &RootOptions{Format: "json"}
	out, err := execute(NewTestCommand(rootOpts), dir, "--update")
	require.NoError(t, err)
	assert.Equal(t, goldenUpdated, decodeResponse[TestResult](t, out).Data.Scenarios[0].Golden)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "one_set.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name": "one_set"`)

	rootOpts = &RootOptions{Format: "json"}
	out, err = execute(NewTestCommand(rootOpts), dir)
	require.NoError(t, err)
	assert.Equal(t, goldenMatched, decodeResponse[TestResult](t, out).Data.Scenarios[0].Golden)

	// A stale golden file fails the scenario even though assertions pass.
	writeFile(t, dir, "golden/one_set.golden", "{}\n")
	rootOpts = &RootOptions{Format: "json"}
	out, err = execute(NewTestCommand(rootOpts), dir)
	require.Error(t, err)
	sr := decodeResponse[TestResult](t, out).Data.Scenarios[0]
	assert.False(t, sr.Pass)
	assert.Contains(t, sr.Errors[0], "golden")
}

func TestTestCommandNoScenarios(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	out, err := execute(NewTestCommand(rootOpts), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	_, err := execute(NewTestCommand(rootOpts), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandLoadError(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\nsteps: 3\n"})

	rootOpts := &RootOptions{Format: "json"}
	out, err := execute(NewTestCommand(rootOpts), dir)
	require.Error(t, err)

	sr := decodeResponse[TestResult](t, out).Data.Scenarios[0]
	assert.Equal(t, "broken.yaml", sr.Name)
	assert.Contains(t, sr.Errors[0], "failed to load scenario")
}

func TestTestCommandJournal(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"one_set.yaml": passingScenario})
	dbPath := filepath.Join(t.TempDir(), "test.db")

	rootOpts := &RootOptions{Format: "json", RunIDs: store.NewFixedGenerator("t-1")}
	_, err := execute(NewTestCommand(rootOpts), dir, "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "test:one_set", runs[0].Label)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "x.golden"), goldenFilePath(filepath.Join("s", "x.yaml")))
}
