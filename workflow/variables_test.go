package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheKoma-X/AgentBridge/types"
)

func TestVariables_LiteralPassthrough(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()

	resolved, err := r.ResolveInputs(map[string]any{
		"s": "plain",
		"n": 42,
		"b": true,
		"l": []any{1, 2},
	}, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "plain", resolved["s"])
	assert.Equal(t, 42, resolved["n"])
	assert.Equal(t, true, resolved["b"])
	assert.Equal(t, []any{1, 2}, resolved["l"])
}

func TestVariables_WholeTokenPreservesType(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()
	store := map[string]any{
		"x":       5,
		"flag":    true,
		"items":   []any{"a", "b"},
		"obj":     map[string]any{"k": "v"},
		"t0.rows": 3.5,
	}

	resolved, err := r.ResolveInputs(map[string]any{
		"num":  "${x}",
		"bool": "${flag}",
		"list": "${items}",
		"map":  "${obj}",
		"out":  "${t0.rows}",
	}, store)
	require.NoError(t, err)
	assert.Equal(t, 5, resolved["num"])
	assert.Equal(t, true, resolved["bool"])
	assert.Equal(t, []any{"a", "b"}, resolved["list"])
	assert.Equal(t, map[string]any{"k": "v"}, resolved["map"])
	assert.Equal(t, 3.5, resolved["out"])
}

func TestVariables_EmbeddedTokensConcatenate(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()
	store := map[string]any{"x": 5, "name": "bridge"}

	resolved, err := r.ResolveInputs(map[string]any{
		"msg":   "v=${x}",
		"multi": "${name}-${x}",
	}, store)
	require.NoError(t, err)
	assert.Equal(t, "v=5", resolved["msg"])
	assert.Equal(t, "bridge-5", resolved["multi"])
}

func TestVariables_EmbeddedCompositeUsesJSON(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()
	store := map[string]any{"items": []any{"a", "b"}}

	resolved, err := r.ResolveInputs(map[string]any{"msg": "got ${items}"}, store)
	require.NoError(t, err)
	assert.Equal(t, `got ["a","b"]`, resolved["msg"])
}

func TestVariables_TaskOutputReference(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()
	store := map[string]any{"T0.cleaned": "X"}

	resolved, err := r.ResolveInputs(map[string]any{"data": "${T0.cleaned}"}, store)
	require.NoError(t, err)
	assert.Equal(t, "X", resolved["data"])
}

func TestVariables_MissingReference(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()

	_, err := r.ResolveInputs(map[string]any{"data": "${nope}"}, map[string]any{})
	require.Error(t, err)
	assert.True(t, types.IsResolutionError(err))

	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "nope", terr.Reference)
}

func TestVariables_MissingReferenceEmbedded(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()

	_, err := r.ResolveInputs(map[string]any{"msg": "a=${a} b=${b}"}, map[string]any{"a": 1})
	require.Error(t, err)
	assert.True(t, types.IsResolutionError(err))
	assert.Contains(t, err.Error(), "${b}")
}

func TestVariables_NestedStructuresResolved(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()
	store := map[string]any{"x": 7}

	resolved, err := r.ResolveInputs(map[string]any{
		"cfg": map[string]any{
			"depth": "${x}",
			"list":  []any{"${x}", "lit"},
		},
	}, store)
	require.NoError(t, err)
	cfg := resolved["cfg"].(map[string]any)
	assert.Equal(t, 7, cfg["depth"])
	assert.Equal(t, []any{7, "lit"}, cfg["list"])
}

func TestVariables_EmptyInputs(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()
	resolved, err := r.ResolveInputs(nil, map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestVariables_NoNesting(t *testing.T) {
	t.Parallel()
	r := NewVariableResolver()
	store := map[string]any{"a": "x", "x": "deep"}

	// Nested tokens are not supported; the malformed inner reference has no
	// store entry and resolution fails.
	_, err := r.ResolveInputs(map[string]any{"v": "${${a}}"}, store)
	require.Error(t, err)
	assert.True(t, types.IsResolutionError(err))
}
