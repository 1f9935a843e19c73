package config

import (
	"fmt"
	"os"

	"github.com/prepside/gmat-backend/internal/model"
	"gopkg.in/yaml.v3"
)

// BreakSeconds is the length of the optional inter-section break.
const BreakSeconds = 600

// DefaultSections returns the GMAT Focus Edition section definitions:
// 21 Quant, 23 Verbal, and 20 Data Insights questions at 45 minutes each.
func DefaultSections() map[model.SectionName]model.SectionConfig {
	return map[model.SectionName]model.SectionConfig{
		model.SectionQuant: {
			Name:             model.SectionQuant,
			QuestionCount:    21,
			TimeLimitMinutes: 45,
			QuestionTypes:    []string{string(model.QuestionTypeProblemSolving)},
			Categories:       []string{"Quantitative Reasoning"},
		},
		model.SectionVerbal: {
			Name:             model.SectionVerbal,
			QuestionCount:    23,
			TimeLimitMinutes: 45,
			QuestionTypes: []string{
				string(model.QuestionTypeReadingComprehension),
				string(model.QuestionTypeCriticalReasoning),
			},
			Categories: []string{"Verbal Reasoning"},
		},
		model.SectionData: {
			Name:             model.SectionData,
			QuestionCount:    20,
			TimeLimitMinutes: 45,
			QuestionTypes: []string{
				string(model.QuestionTypeDataSufficiency),
				string(model.QuestionTypeTwoPartAnalysis),
				string(model.QuestionTypeMultiSourceReasoning),
				string(model.QuestionTypeTableAnalysis),
				string(model.QuestionTypeGraphicsInterpretation),
			},
			Categories: []string{"Data Insights"},
		},
	}
}

type sectionsFile struct {
	Sections []model.SectionConfig `yaml:"sections"`
}

// LoadSections returns the section definitions, overridden by the YAML file
// at path when non-empty. Overrides replace whole sections by name; sections
// absent from the file keep their defaults.
func LoadSections(path string) (map[model.SectionName]model.SectionConfig, error) {
	sections := DefaultSections()
	if path == "" {
		return sections, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sections file: %w", err)
	}

	var parsed sectionsFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse sections file: %w", err)
	}

	for _, sc := range parsed.Sections {
		if !sc.Name.Valid() {
			return nil, fmt.Errorf("unknown section name %q", sc.Name)
		}
		if sc.QuestionCount <= 0 || sc.TimeLimitMinutes <= 0 {
			return nil, fmt.Errorf("section %q: question count and time limit must be positive", sc.Name)
		}
		sections[sc.Name] = sc
	}

	return sections, nil
}
