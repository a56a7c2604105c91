package processing

import (
	"bufio"
	"strings"
)

// ParseFields picks "Label: value" lines out of text and maps labels to
// field keys through the configured aliases. The first non-empty value wins.
func (r *Rules) ParseFields(text string) map[string]string {
	byAlias := make(map[string]string)
	for field, aliases := range r.Fields {
		for _, alias := range aliases {
			byAlias[alias] = field
		}
	}

	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		label, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		field, known := byAlias[strings.ToLower(strings.TrimSpace(label))]
		value = strings.TrimSpace(value)
		if !known || value == "" {
			continue
		}
		if _, set := fields[field]; !set {
			fields[field] = value
		}
	}
	return fields
}
