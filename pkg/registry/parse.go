package registry

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

var fenceLanguages = map[string]bool{"yaml": true, "yml": true, "json": true}

// Parse decodes registry content. content is either a YAML/JSON document or a
// markdown document whose first ```yaml or ```json block holds the registry.
// Unknown fields are rejected. The result is structurally validated.
func Parse(content string) (Registry, error) {
	payload := extractFenced(content)
	if strings.TrimSpace(payload) == "" {
		return Registry{}, &ValidationError{Problems: []string{"registry content is empty"}}
	}

	var reg Registry
	dec := yaml.NewDecoder(strings.NewReader(payload))
	dec.KnownFields(true)
	if err := dec.Decode(&reg); err != nil {
		if errors.Is(err, io.EOF) {
			return Registry{}, &ValidationError{Problems: []string{"registry content is empty"}}
		}
		return Registry{}, &ValidationError{Problems: []string{fmt.Sprintf("malformed registry content: %v", err)}}
	}

	if err := Validate(reg); err != nil {
		return Registry{}, err
	}
	return reg, nil
}

// extractFenced returns the body of the first yaml/json fenced block, or the
// content unchanged when there is none.
func extractFenced(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			continue
		}
		lang := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
		if !fenceLanguages[lang] {
			continue
		}
		var body []string
		for _, l := range lines[i+1:] {
			if strings.TrimSpace(l) == "```" {
				return strings.Join(body, "\n")
			}
			body = append(body, l)
		}
		// Unterminated fence: take the rest.
		return strings.Join(body, "\n")
	}
	return content
}

// Validate checks the registry structure. It does not check model id
// uniqueness; see CheckUniqueModelIDs.
func Validate(reg Registry) error {
	var problems []string

	if len(reg.Providers) == 0 {
		problems = append(problems, "no providers defined")
	}

	providers := make(map[string]bool, len(reg.Providers))
	for i, p := range reg.Providers {
		switch {
		case p.ID == "":
			problems = append(problems, fmt.Sprintf("providers[%d]: missing id", i))
		case providers[p.ID]:
			problems = append(problems, fmt.Sprintf("providers[%d]: duplicate provider id %q", i, p.ID))
		default:
			providers[p.ID] = true
		}
		if p.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("providers[%d]: missing displayName", i))
		}
	}

	for i, m := range reg.Models {
		if m.ID == "" {
			problems = append(problems, fmt.Sprintf("models[%d]: missing id", i))
		}
		if m.ProviderID == "" {
			problems = append(problems, fmt.Sprintf("models[%d]: missing providerId", i))
		} else if !providers[m.ProviderID] {
			problems = append(problems, fmt.Sprintf("models[%d]: unknown provider %q", i, m.ProviderID))
		}
		if m.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("models[%d]: missing displayName", i))
		}
		if !m.Status.Valid() {
			problems = append(problems, fmt.Sprintf("models[%d]: invalid status %q", i, m.Status))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// CheckUniqueModelIDs fails on the first model id claimed twice, regardless
// of provider.
func CheckUniqueModelIDs(reg Registry) error {
	owners := make(map[string]string, len(reg.Models))
	for _, m := range reg.Models {
		if first, ok := owners[m.ID]; ok {
			return duplicateModel(m.ID, first, m.ProviderID)
		}
		owners[m.ID] = m.ProviderID
	}
	return nil
}
