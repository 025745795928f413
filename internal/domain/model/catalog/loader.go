package catalog

import (
	_ "embed"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/vhm24/taskflow/internal/domain/model"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// fieldSpecYAML is the on-disk form of a FieldSpec
type fieldSpecYAML struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Optional bool     `yaml:"optional"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	MinLen   *int     `yaml:"minLen"`
	MaxLen   *int     `yaml:"maxLen"`
	Choices  []string `yaml:"choices"`
}

// stepYAML is the on-disk form of a StepTemplate; order is the 1-based
// position in the list
type stepYAML struct {
	Name     string          `yaml:"name"`
	Prompt   string          `yaml:"prompt"`
	Optional bool            `yaml:"optional"`
	Fields   []fieldSpecYAML `yaml:"fields"`
}

type catalogYAML struct {
	TaskTypes map[string][]stepYAML `yaml:"taskTypes"`
}

// Load reads and validates a step catalog from a YAML file
func Load(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadDefault builds the catalog shipped with the binary
func LoadDefault() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
}

// Parse builds a catalog from raw YAML
func Parse(data []byte) (*Catalog, error) {
	var raw catalogYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if len(raw.TaskTypes) == 0 {
		return nil, fmt.Errorf("catalog declares no task types")
	}

	steps := make(map[model.TaskType][]*StepTemplate, len(raw.TaskTypes))
	for name, list := range raw.TaskTypes {
		taskType := model.TaskType(name)
		if !taskType.IsValid() {
			return nil, fmt.Errorf("unknown task type %q", name)
		}
		templates := make([]*StepTemplate, 0, len(list))
		for i, s := range list {
			fields := make([]FieldSpec, 0, len(s.Fields))
			for _, f := range s.Fields {
				fields = append(fields, FieldSpec{
					Name:     f.Name,
					Type:     model.FieldType(f.Type),
					Optional: f.Optional,
					Min:      f.Min,
					Max:      f.Max,
					MinLen:   f.MinLen,
					MaxLen:   f.MaxLen,
					Choices:  f.Choices,
				})
			}
			st, err := NewStepTemplate(taskType, i+1, s.Name, s.Prompt, fields, s.Optional)
			if err != nil {
				return nil, fmt.Errorf("task type %s: %w", name, err)
			}
			templates = append(templates, st)
		}
		steps[taskType] = templates
	}
	return New(steps)
}
