package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/TheKoma-X/AgentBridge/types"
)

// keyGen draws variable store keys that are valid inside a template token:
// non-empty, no brace or dollar characters.
func keyGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-zA-Z_][a-zA-Z0-9_.]{0,20}`)
}

func TestProperty_WholeTokenPreservesValueAndType(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		r := NewVariableResolver()
		key := keyGen().Draw(rt, "key")

		var value any
		switch rapid.IntRange(0, 3).Draw(rt, "kind") {
		case 0:
			value = rapid.Int().Draw(rt, "int_value")
		case 1:
			value = rapid.Float64Range(-1e9, 1e9).Draw(rt, "float_value")
		case 2:
			value = rapid.Bool().Draw(rt, "bool_value")
		default:
			value = rapid.String().Draw(rt, "string_value")
		}

		store := map[string]any{key: value}
		resolved, err := r.ResolveInputs(map[string]any{"v": "${" + key + "}"}, store)
		require.NoError(rt, err)
		assert.Equal(rt, value, resolved["v"])
	})
}

func TestProperty_LiteralStringsPassThroughUnchanged(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		r := NewVariableResolver()
		literal := rapid.String().Filter(func(s string) bool {
			return !strings.Contains(s, "${")
		}).Draw(rt, "literal")

		resolved, err := r.ResolveInputs(map[string]any{"v": literal}, map[string]any{"x": 1})
		require.NoError(rt, err)
		assert.Equal(rt, literal, resolved["v"])
	})
}

func TestProperty_EmbeddedTokenConcatenatesStringForm(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		r := NewVariableResolver()
		key := keyGen().Draw(rt, "key")
		value := rapid.String().Draw(rt, "value")
		prefix := rapid.StringMatching(`[a-z ]{1,10}`).Draw(rt, "prefix")
		suffix := rapid.StringMatching(`[a-z ]{1,10}`).Draw(rt, "suffix")

		store := map[string]any{key: value}
		resolved, err := r.ResolveInputs(
			map[string]any{"v": prefix + "${" + key + "}" + suffix}, store)
		require.NoError(rt, err)
		assert.Equal(rt, prefix+value+suffix, resolved["v"])
	})
}

func TestProperty_UnknownReferenceAlwaysFailsResolution(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		r := NewVariableResolver()
		key := keyGen().Draw(rt, "key")

		// The store holds a different key, so the reference cannot resolve.
		store := map[string]any{key + "_present": 1}
		_, err := r.ResolveInputs(map[string]any{"v": "${" + key + "}"}, store)
		require.Error(rt, err)
		assert.True(rt, types.IsResolutionError(err))
	})
}
