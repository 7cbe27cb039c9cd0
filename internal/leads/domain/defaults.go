package domain

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// StageTemplate seeds one stage of a new studio's pipeline.
type StageTemplate struct {
	Slug  string `yaml:"slug"`
	Name  string `yaml:"name"`
	Order int    `yaml:"order"`
}

// DefaultTemplates returns the built-in stage templates per pipeline. Stages
// without an explicit order are numbered by position, starting at 1.
func DefaultTemplates() (map[PipelineKind][]StageTemplate, error) {
	return ParseTemplates(defaultsYAML)
}

// ParseTemplates decodes stage templates keyed by pipeline kind and checks
// they form valid pipelines.
func ParseTemplates(data []byte) (map[PipelineKind][]StageTemplate, error) {
	var raw map[PipelineKind][]StageTemplate
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode stage templates: %w", err)
	}

	for kind, templates := range raw {
		stages := make([]Stage, 0, len(templates))
		for i := range templates {
			if templates[i].Order == 0 {
				templates[i].Order = i + 1
			}
			stages = append(stages, Stage{Slug: templates[i].Slug, Name: templates[i].Name, Order: templates[i].Order, ID: stageKey(kind, i)})
		}
		if _, err := NewPipeline(kind, stages); err != nil {
			return nil, fmt.Errorf("%s stage templates: %w", kind, err)
		}
		raw[kind] = templates
	}
	return raw, nil
}

// stageKey gives template stages distinct placeholder ids for validation.
func stageKey(kind PipelineKind, i int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", kind, i)))
}
