package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/TheKoma-X/AgentBridge/types"
)

// templatePattern matches ${name} and ${task_id.output_name} references.
// Nesting is not supported.
var templatePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// VariableResolver turns a task's raw inputs into concrete values for
// dispatch by resolving ${...} references against a snapshot of the
// execution's variable store. Resolution is pure and performs no I/O.
type VariableResolver struct{}

// NewVariableResolver creates a variable resolver.
func NewVariableResolver() *VariableResolver {
	return &VariableResolver{}
}

// ResolveInputs resolves every input value against the store snapshot.
// Strings consisting of exactly one template token are replaced by the
// referenced value with its type preserved; tokens embedded in longer strings
// are coerced to text and concatenated. Maps and slices are resolved
// recursively. A reference with no matching store entry fails with a
// RESOLUTION_ERROR naming the reference.
func (r *VariableResolver) ResolveInputs(inputs map[string]any, store map[string]any) (map[string]any, error) {
	if len(inputs) == 0 {
		return map[string]any{}, nil
	}
	resolved := make(map[string]any, len(inputs))
	for key, value := range inputs {
		v, err := r.resolveValue(value, store)
		if err != nil {
			return nil, err
		}
		resolved[key] = v
	}
	return resolved, nil
}

func (r *VariableResolver) resolveValue(value any, store map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return r.resolveString(v, store)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			rv, err := r.resolveValue(elem, store)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			rv, err := r.resolveValue(elem, store)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return value, nil
	}
}

func (r *VariableResolver) resolveString(s string, store map[string]any) (any, error) {
	// Whole-string token: preserve the referenced value's type.
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		inner := s[2 : len(s)-1]
		if !strings.Contains(inner, "${") && !strings.Contains(inner, "}") {
			value, ok := store[inner]
			if !ok {
				return nil, types.NewResolutionError(inner)
			}
			return value, nil
		}
	}

	// Embedded tokens: resolve each and splice in its text form.
	var resolveErr error
	result := templatePattern.ReplaceAllStringFunc(s, func(match string) string {
		if resolveErr != nil {
			return match
		}
		ref := match[2 : len(match)-1]
		value, ok := store[ref]
		if !ok {
			resolveErr = types.NewResolutionError(ref)
			return match
		}
		return stringify(value)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return result, nil
}

// stringify renders a resolved value for splicing into a template string.
// Composite values use their JSON form so embedded references stay readable.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
