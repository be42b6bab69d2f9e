// Package manifest provides YAML manifest parsing for agentcheck profiles.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klubi/agentcheck/pkg/apis/v1alpha1"
	"gopkg.in/yaml.v3"
)

// ParseFile reads a YAML file at the given path and parses every
// AgentProfile it contains. Multi-document YAML (separated by ---) is
// supported.
func ParseFile(path string) ([]*v1alpha1.AgentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file %s: %w", path, err)
	}
	return ParseBytes(data)
}

// ParseBytes parses raw YAML bytes into AgentProfiles.
func ParseBytes(data []byte) ([]*v1alpha1.AgentProfile, error) {
	var profiles []*v1alpha1.AgentProfile

	decoder := yaml.NewDecoder(bytes.NewReader(data))

	for {
		var node yaml.Node
		if err := decoder.Decode(&node); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decoding yaml document: %w", err)
		}

		// Skip empty documents.
		if node.Kind == 0 {
			continue
		}

		// First pass: extract TypeMeta to determine the Kind.
		var meta v1alpha1.TypeMeta
		if err := node.Decode(&meta); err != nil {
			return nil, fmt.Errorf("decoding type meta: %w", err)
		}
		if meta.Kind == "" && meta.APIVersion == "" {
			continue
		}
		if meta.Kind != v1alpha1.KindAgentProfile {
			return nil, fmt.Errorf("unknown resource kind: %q", meta.Kind)
		}

		// Second pass: decode the full profile.
		var p v1alpha1.AgentProfile
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("decoding AgentProfile: %w", err)
		}

		setDefaults(&p)

		if err := Validate(&p); err != nil {
			return nil, err
		}

		profiles = append(profiles, &p)
	}

	return profiles, nil
}

// setDefaults fills in the APIVersion and list separators left empty.
func setDefaults(p *v1alpha1.AgentProfile) {
	if p.APIVersion == "" {
		p.APIVersion = v1alpha1.APIVersion
	}
	for i := range p.Spec.Header.Fields {
		f := &p.Spec.Header.Fields[i]
		if len(f.Contains) > 0 && f.ListSeparator == "" {
			f.ListSeparator = v1alpha1.DefaultListSeparator
		}
	}
}

// Validate checks that required fields are set on the profile.
func Validate(p *v1alpha1.AgentProfile) error {
	if p.Metadata.Name == "" {
		return fmt.Errorf("validation failed: AgentProfile name must not be empty")
	}
	if p.Spec.AgentPath == "" {
		return fmt.Errorf("validation failed: AgentProfile %s: agentPath must not be empty", p.Metadata.Name)
	}
	for i, f := range p.Spec.Header.Fields {
		if f.Key == "" {
			return fmt.Errorf("validation failed: AgentProfile %s: header field %d has no key", p.Metadata.Name, i)
		}
		if f.MinLength < 0 {
			return fmt.Errorf("validation failed: AgentProfile %s: field %s: minLength must not be negative", p.Metadata.Name, f.Key)
		}
		for _, group := range f.Keywords {
			if len(group) == 0 {
				return fmt.Errorf("validation failed: AgentProfile %s: field %s: empty keyword group", p.Metadata.Name, f.Key)
			}
		}
	}
	seen := make(map[string]bool, len(p.Spec.Body))
	for i, r := range p.Spec.Body {
		if r.Name == "" {
			return fmt.Errorf("validation failed: AgentProfile %s: body rule %d has no name", p.Metadata.Name, i)
		}
		if seen[r.Name] {
			return fmt.Errorf("validation failed: AgentProfile %s: duplicate body rule %q", p.Metadata.Name, r.Name)
		}
		seen[r.Name] = true
		if len(r.AnyOf) == 0 {
			return fmt.Errorf("validation failed: AgentProfile %s: body rule %s: anyOf must not be empty", p.Metadata.Name, r.Name)
		}
	}
	return nil
}
