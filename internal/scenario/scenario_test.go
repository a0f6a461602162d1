package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
name: minimal
description: one field
fields:
  a: 1
steps:
  - set:
      a: 2
`

func TestParse(t *testing.T) {
	t.Run("minimal scenario", func(t *testing.T) {
		s, err := Parse([]byte(minimal))
		require.NoError(t, err)

		assert.Equal(t, "minimal", s.Name)
		assert.Equal(t, map[string]any{"a": 1}, s.Fields)
		require.Len(t, s.Steps, 1)
		assert.Equal(t, map[string]any{"a": 2}, s.Steps[0].Set)
	})

	t.Run("nested fields decode as maps", func(t *testing.T) {
		s, err := Parse([]byte(`
name: nested
description: nested field
fields:
  user:
    name: ann
steps:
  - set:
      user.name: bob
`))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "ann"}, s.Fields["user"])
	})

	t.Run("load from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "minimal.yaml")
		require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "minimal", s.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read scenario file")
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		_, err := Parse([]byte(minimal + "assertions: []\n"))
		assert.ErrorContains(t, err, "failed to parse YAML")
	})

	invalid := map[string]string{
		"name is required": `
description: d
fields: {a: 1}
steps: [{set: {a: 2}}]
`,
		"description is required": `
name: n
fields: {a: 1}
steps: [{set: {a: 2}}]
`,
		"steps list is required": `
name: n
description: d
fields: {a: 1}
`,
		"unknown op": `
name: n
description: d
fields: {a: 1}
computed:
  b: {op: avg, of: [a]}
steps: [{set: {a: 2}}]
`,
		"of list is required": `
name: n
description: d
fields: {a: 1}
computed:
  b: {op: sum}
steps: [{set: {a: 2}}]
`,
		`unknown field "z"`: `
name: n
description: d
fields: {a: 1}
computed:
  b: {op: sum, of: [z]}
steps: [{set: {a: 2}}]
`,
		"already declared as a field": `
name: n
description: d
fields: {a: 1}
computed:
  a: {op: sum, of: [a]}
steps: [{set: {a: 2}}]
`,
		`unknown phase "render"`: `
name: n
description: d
phases: [model, view]
fields: {a: 1}
watch: [{field: a, phase: render}]
steps: [{set: {a: 2}}]
`,
		"set or close is required": `
name: n
description: d
fields: {a: 1}
steps: [{}]
`,
		"requires": `
name: n
description: d
requires: "not a constraint"
fields: {a: 1}
steps: [{set: {a: 2}}]
`,
	}

	for want, content := range invalid {
		t.Run("invalid: "+want, func(t *testing.T) {
			_, err := Parse([]byte(content))
			require.Error(t, err)
			assert.ErrorContains(t, err, "invalid scenario")
			assert.ErrorContains(t, err, want)
		})
	}
}

func TestCheck(t *testing.T) {
	s := &Scenario{Name: "n", Requires: ">= 0.2.0, < 1.0.0"}

	assert.NoError(t, s.Check("0.2.1"))
	assert.ErrorContains(t, s.Check("0.1.0"), "requires reflow")
	assert.ErrorContains(t, s.Check("1.0.0"), "requires reflow")
	assert.ErrorContains(t, s.Check("banana"), "version")

	assert.NoError(t, (&Scenario{}).Check("banana"))
}
