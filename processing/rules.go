package processing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownFormType is reported when no rule matches the extracted text.
const UnknownFormType = "Unknown"

//go:embed rules.yaml
var defaultRules []byte

type FormRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Required []string `yaml:"required"`
}

// Rules drive classification, field parsing and required-field checks.
type Rules struct {
	FormTypes []FormRule          `yaml:"form_types"`
	Fields    map[string][]string `yaml:"fields"`
}

func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads rules from path, or the embedded defaults when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading form rules: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing form rules: %w", err)
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	rules.normalize()
	return &rules, nil
}

func (r *Rules) validate() error {
	if len(r.FormTypes) == 0 {
		return errors.New("form rules define no form types")
	}
	seen := make(map[string]bool, len(r.FormTypes))
	for _, ft := range r.FormTypes {
		if strings.TrimSpace(ft.Name) == "" {
			return errors.New("form type without a name")
		}
		if seen[ft.Name] {
			return fmt.Errorf("duplicate form type %q", ft.Name)
		}
		seen[ft.Name] = true
	}
	return nil
}

func (r *Rules) normalize() {
	for i := range r.FormTypes {
		for j, kw := range r.FormTypes[i].Keywords {
			r.FormTypes[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	for field, aliases := range r.Fields {
		for j, alias := range aliases {
			aliases[j] = strings.ToLower(strings.TrimSpace(alias))
		}
		r.Fields[field] = aliases
	}
}

// Required returns the required fields of a form type, nil when it is unknown.
func (r *Rules) Required(formType string) []string {
	for _, ft := range r.FormTypes {
		if ft.Name == formType {
			return ft.Required
		}
	}
	return nil
}
