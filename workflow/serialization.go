package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// definitionDoc is the wire form of a WorkflowDefinition. Durations are
// expressed in seconds to match the cross-language workflow format.
type definitionDoc struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Tasks       []taskDoc      `json:"tasks" yaml:"tasks"`
	Variables   map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type taskDoc struct {
	ID            string         `json:"id,omitempty" yaml:"id,omitempty"`
	Framework     string         `json:"framework" yaml:"framework"`
	Operation     string         `json:"operation" yaml:"operation"`
	Inputs        map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs       []string       `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Dependencies  []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	RetryAttempts int            `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
	RetryDelay    float64        `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty"`
	Timeout       float64        `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func toDoc(def *WorkflowDefinition) definitionDoc {
	doc := definitionDoc{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Variables:   def.Variables,
		Metadata:    def.Metadata,
		Tasks:       make([]taskDoc, 0, len(def.Tasks)),
	}
	for _, t := range def.Tasks {
		doc.Tasks = append(doc.Tasks, taskDoc{
			ID:            t.ID,
			Framework:     t.Framework,
			Operation:     t.Operation,
			Inputs:        t.Inputs,
			Outputs:       t.Outputs,
			Dependencies:  t.Dependencies,
			RetryAttempts: t.RetryAttempts,
			RetryDelay:    t.RetryDelay.Seconds(),
			Timeout:       t.Timeout.Seconds(),
		})
	}
	return doc
}

func fromDoc(doc definitionDoc) *WorkflowDefinition {
	def := &WorkflowDefinition{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Variables:   doc.Variables,
		Metadata:    doc.Metadata,
		Tasks:       make([]*TaskDefinition, 0, len(doc.Tasks)),
	}
	for _, t := range doc.Tasks {
		def.Tasks = append(def.Tasks, &TaskDefinition{
			ID:            t.ID,
			Framework:     t.Framework,
			Operation:     t.Operation,
			Inputs:        t.Inputs,
			Outputs:       t.Outputs,
			Dependencies:  t.Dependencies,
			RetryAttempts: t.RetryAttempts,
			RetryDelay:    time.Duration(t.RetryDelay * float64(time.Second)),
			Timeout:       time.Duration(t.Timeout * float64(time.Second)),
		})
	}
	return def
}

// ToJSON serializes a WorkflowDefinition to indented JSON.
func (d *WorkflowDefinition) ToJSON() (string, error) {
	data, err := json.MarshalIndent(toDoc(d), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal definition to JSON: %w", err)
	}
	return string(data), nil
}

// ToYAML serializes a WorkflowDefinition to YAML.
func (d *WorkflowDefinition) ToYAML() (string, error) {
	data, err := yaml.Marshal(toDoc(d))
	if err != nil {
		return "", fmt.Errorf("marshal definition to YAML: %w", err)
	}
	return string(data), nil
}

// DefinitionFromJSON parses and validates a WorkflowDefinition from JSON.
func DefinitionFromJSON(jsonStr string) (*WorkflowDefinition, error) {
	var doc definitionDoc
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal definition from JSON: %w", err)
	}
	def := fromDoc(doc)
	if err := NewDependencyResolver().Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}

// DefinitionFromYAML parses and validates a WorkflowDefinition from YAML.
func DefinitionFromYAML(yamlStr string) (*WorkflowDefinition, error) {
	var doc definitionDoc
	if err := yaml.Unmarshal([]byte(yamlStr), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal definition from YAML: %w", err)
	}
	def := fromDoc(doc)
	if err := NewDependencyResolver().Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}

// LoadDefinitionFromFile loads a WorkflowDefinition from a JSON or YAML file,
// chosen by file extension (.json vs anything else).
func LoadDefinitionFromFile(filename string) (*WorkflowDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read definition file: %w", err)
	}
	if isJSONFile(filename) {
		return DefinitionFromJSON(string(data))
	}
	return DefinitionFromYAML(string(data))
}

// SaveToFile writes the definition to a JSON or YAML file, chosen by file
// extension.
func (d *WorkflowDefinition) SaveToFile(filename string) error {
	var out string
	var err error
	if isJSONFile(filename) {
		out, err = d.ToJSON()
	} else {
		out, err = d.ToYAML()
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write definition file: %w", err)
	}
	return nil
}

func isJSONFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}
