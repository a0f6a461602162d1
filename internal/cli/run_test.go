package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/reflow/internal/scenario"
)

const sumScenario = `
name: sum
description: one computed field
fields: {a: 1, b: 2}
computed:
  c: {op: sum, of: [a, b]}
watch: [{field: c}]
steps: [{set: {a: 5}}]
`

const failingScenario = `
name: failing
description: a computed field raises
fields: {price: 3, qty: 2}
computed:
  total: {op: product, of: [price, qty]}
steps: [{set: {price: free}}]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun(t *testing.T) {
	t.Run("text output", func(t *testing.T) {
		out, err := execute(t, "run", writeFile(t, "sum.yaml", sumScenario))
		require.NoError(t, err)

		assert.Equal(t, "scenario sum\n"+
			"step 0 [model] c = 3\n"+
			"step 1 [model] c: 3 -> 7\n"+
			"final a=5 b=2 c=7\n", out)
	})

	t.Run("json output", func(t *testing.T) {
		out, err := execute(t, "--format", "json", "run", writeFile(t, "sum.yaml", sumScenario))
		require.NoError(t, err)

		var res scenario.Result
		require.NoError(t, json.Unmarshal([]byte(out), &res))

		assert.Equal(t, "sum", res.Scenario)
		require.Len(t, res.Trace, 2)
		assert.True(t, res.Trace[0].Initial)
		assert.Equal(t, "3", res.Trace[1].Old)
		assert.Equal(t, "7", res.Final["c"])
	})

	t.Run("several files", func(t *testing.T) {
		path := writeFile(t, "sum.yaml", sumScenario)

		out, err := execute(t, "run", path, path)
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(out, "scenario sum\n"))
	})

	t.Run("missing file is a command error", func(t *testing.T) {
		_, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "failed to load scenario")
	})

	t.Run("raised errors fail the run", func(t *testing.T) {
		out, err := execute(t, "run", writeFile(t, "failing.yaml", failingScenario))
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, err.Error(), "1 of 1 scenarios raised errors")

		assert.Contains(t, out, "step 1 [error]")
		assert.Contains(t, out, `"free" is not a number`)
	})

	t.Run("config phases", func(t *testing.T) {
		path := writeFile(t, "render.yaml", `
name: render
description: watched in a configured phase
fields: {a: 1}
watch: [{field: a, phase: render}]
steps: [{set: {a: 2}}]
`)

		_, err := execute(t, "run", path)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), `unknown phase "render"`)

		cfg := writeFile(t, "reflow.yaml", "phases: [model, view, render]\nlog_level: warn\n")

		out, err := execute(t, "-c", cfg, "run", path)
		require.NoError(t, err)
		assert.Contains(t, out, "step 1 [render] a: 1 -> 2")
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := writeFile(t, "reflow.yaml", "phases: []\n")

		_, err := execute(t, "-c", cfg, "run", writeFile(t, "sum.yaml", sumScenario))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "failed to load config")
	})

	t.Run("requires an argument", func(t *testing.T) {
		_, err := execute(t, "run")
		assert.Error(t, err)
	})
}
