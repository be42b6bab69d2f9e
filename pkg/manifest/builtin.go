package manifest

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// DefaultProfile names the profile used when none is requested.
const DefaultProfile = "backend-engineer"

//go:embed profiles/*.yaml
var builtinFS embed.FS

var (
	builtinOnce     sync.Once
	builtinProfiles map[string]*v1alpha1.AgentProfile
	builtinErr      error
)

func loadBuiltins() {
	builtinProfiles = make(map[string]*v1alpha1.AgentProfile)

	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		builtinErr = err
		return
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("profiles", e.Name()))
		if err != nil {
			builtinErr = err
			return
		}
		profiles, err := ParseBytes(data)
		if err != nil {
			builtinErr = fmt.Errorf("built-in profile %s: %w", e.Name(), err)
			return
		}
		for _, p := range profiles {
			builtinProfiles[p.Metadata.Name] = p
		}
	}
}

// Lookup returns a copy of the built-in profile with the given name.
func Lookup(name string) (*v1alpha1.AgentProfile, error) {
	builtinOnce.Do(loadBuiltins)
	if builtinErr != nil {
		return nil, builtinErr
	}
	p, ok := builtinProfiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return clone(p), nil
}

// Default returns the built-in backend-engineer profile.
func Default() *v1alpha1.AgentProfile {
	p, err := Lookup(DefaultProfile)
	if err != nil {
		panic(fmt.Sprintf("manifest: default profile unavailable: %v", err))
	}
	return p
}

// Builtins returns every built-in profile sorted by name.
func Builtins() ([]*v1alpha1.AgentProfile, error) {
	builtinOnce.Do(loadBuiltins)
	if builtinErr != nil {
		return nil, builtinErr
	}
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*v1alpha1.AgentProfile, 0, len(names))
	for _, name := range names {
		out = append(out, clone(builtinProfiles[name]))
	}
	return out, nil
}

// clone copies p deeply enough that callers may rewrite paths and rules.
func clone(p *v1alpha1.AgentProfile) *v1alpha1.AgentProfile {
	c := *p
	c.Spec.Header.RequiredKeys = append([]string(nil), p.Spec.Header.RequiredKeys...)

	c.Spec.Header.Fields = make([]v1alpha1.FieldRule, len(p.Spec.Header.Fields))
	for i, f := range p.Spec.Header.Fields {
		f.Contains = append([]string(nil), f.Contains...)
		groups := make([][]string, len(f.Keywords))
		for j, g := range f.Keywords {
			groups[j] = append([]string(nil), g...)
		}
		f.Keywords = groups
		c.Spec.Header.Fields[i] = f
	}

	c.Spec.Body = make([]v1alpha1.BodyRule, len(p.Spec.Body))
	for i, r := range p.Spec.Body {
		r.AnyOf = append([]string(nil), r.AnyOf...)
		c.Spec.Body[i] = r
	}
	return &c
}
