package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheKoma-X/AgentBridge/types"
)

func pipelineDef(t *testing.T) *WorkflowDefinition {
	t.Helper()
	def, err := NewBuilder("wf-wire", "wire format").
		Description("serialization fixture").
		Variable("source", "s3://bucket/raw").
		Task("extract", "langgraph", "pull").
		Input("from", "${source}").
		Outputs("rows").
		Retry(2, 1500*time.Millisecond).
		Timeout(30 * time.Second).Done().
		Task("load", "crewai", "push").
		DependsOn("extract").
		Input("rows", "${extract.rows}").Done().
		Build()
	require.NoError(t, err)
	return def
}

func TestDefinition_JSONRoundTrip(t *testing.T) {
	t.Parallel()
	def := pipelineDef(t)

	jsonStr, err := def.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, jsonStr, `"retry_delay": 1.5`)
	assert.Contains(t, jsonStr, `"timeout": 30`)

	got, err := DefinitionFromJSON(jsonStr)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)
	assert.Equal(t, def.Description, got.Description)
	assert.Equal(t, "s3://bucket/raw", got.Variables["source"])

	require.Len(t, got.Tasks, 2)
	extract := got.Tasks[0]
	assert.Equal(t, 1500*time.Millisecond, extract.RetryDelay)
	assert.Equal(t, 30*time.Second, extract.Timeout)
	assert.Equal(t, 2, extract.RetryAttempts)
	assert.Equal(t, []string{"extract"}, got.Tasks[1].Dependencies)
}

func TestDefinition_YAMLRoundTrip(t *testing.T) {
	t.Parallel()
	def := pipelineDef(t)

	yamlStr, err := def.ToYAML()
	require.NoError(t, err)

	got, err := DefinitionFromYAML(yamlStr)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, 1500*time.Millisecond, got.Tasks[0].RetryDelay)
	assert.Equal(t, "${extract.rows}", got.Tasks[1].Inputs["rows"])
}

func TestDefinitionFromYAML_HandWritten(t *testing.T) {
	t.Parallel()
	const doc = `
id: wf-yaml
name: hand written
tasks:
  - framework: langgraph
    operation: clean
    outputs: [cleaned]
  - framework: crewai
    operation: analyze
    dependencies: [task_0]
    inputs:
      data: ${task_0.cleaned}
    retry_attempts: 1
    retry_delay: 0.5
`
	def, err := DefinitionFromYAML(doc)
	require.NoError(t, err)
	require.Len(t, def.Tasks, 2)
	// Missing task ids are filled in from declaration position.
	assert.Equal(t, "task_0", def.Tasks[0].ID)
	assert.Equal(t, "task_1", def.Tasks[1].ID)
	assert.Equal(t, 500*time.Millisecond, def.Tasks[1].RetryDelay)
}

func TestDefinitionFromJSON_Invalid(t *testing.T) {
	t.Parallel()

	_, err := DefinitionFromJSON("{not json")
	require.Error(t, err)

	// Well-formed JSON with a broken graph fails validation.
	_, err = DefinitionFromJSON(`{
		"id": "wf-bad",
		"name": "bad",
		"tasks": [
			{"id": "a", "framework": "m", "operation": "op", "dependencies": ["b"]},
			{"id": "b", "framework": "m", "operation": "op", "dependencies": ["a"]}
		]
	}`)
	require.Error(t, err)
	assert.True(t, types.IsDefinitionError(err))
}

func TestDefinition_FileRoundTrip(t *testing.T) {
	t.Parallel()
	def := pipelineDef(t)
	dir := t.TempDir()

	for _, name := range []string{"def.json", "def.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, def.SaveToFile(path))

		got, err := LoadDefinitionFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, def.ID, got.ID)
		assert.Len(t, got.Tasks, 2)
	}
}

func TestSaveToFile_JSONExtensionMatching(t *testing.T) {
	t.Parallel()
	def := pipelineDef(t)
	dir := t.TempDir()

	// Uppercase extensions and a bare ".json" name still select JSON output.
	for _, name := range []string{"def.JSON", ".json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, def.SaveToFile(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "{"), "expected JSON output for %s", name)

		got, err := LoadDefinitionFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, def.ID, got.ID)
	}

	// Anything else is written as YAML.
	path := filepath.Join(dir, "def.jsonnet")
	require.NoError(t, def.SaveToFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(data), "{"))
}

func TestLoadDefinitionFromFile_Missing(t *testing.T) {
	t.Parallel()
	_, err := LoadDefinitionFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read definition file")
}
