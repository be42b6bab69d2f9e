// Package checker turns an AgentProfile rule table into named checks and
// evaluates them against a document snapshot.
package checker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/klubi/agentcheck/pkg/apis/v1alpha1"
	"github.com/klubi/agentcheck/pkg/frontmatter"
)

// excerptLen bounds how much of a field value is echoed in failure messages.
const excerptLen = 100

// Check is one named pass/fail predicate over a Snapshot. Fn returns nil on
// success and a *CheckError otherwise.
type Check struct {
	Name string
	Fn   func(s *Snapshot) error
}

// Build expands a profile into its ordered list of checks.
func Build(p *v1alpha1.AgentProfile) []Check {
	checks := []Check{
		{Name: "agent-file-exists", Fn: agentExists},
	}
	if p.Spec.TemplatePath != "" {
		checks = append(checks,
			Check{Name: "template-file-exists", Fn: templateExists},
			Check{Name: "files-identical", Fn: filesIdentical},
		)
	}
	checks = append(checks,
		Check{Name: "header-present", Fn: headerPresent},
		Check{Name: "header-non-empty", Fn: headerNonEmpty},
	)

	for _, key := range p.Spec.Header.RequiredKeys {
		checks = append(checks, Check{
			Name: "field-present/" + key,
			Fn:   fieldPresent(key),
		})
	}

	for _, f := range p.Spec.Header.Fields {
		checks = append(checks, fieldChecks(f)...)
	}

	for _, r := range p.Spec.Body {
		checks = append(checks, Check{
			Name: "body/" + r.Name,
			Fn:   bodyContains(r),
		})
	}
	return checks
}

// Evaluate runs every check against s. A failing check never prevents the
// others from running.
func Evaluate(checks []Check, s *Snapshot) []v1alpha1.CheckResult {
	results := make([]v1alpha1.CheckResult, 0, len(checks))
	for _, c := range checks {
		results = append(results, evaluate(c, s))
	}
	return results
}

func evaluate(c Check, s *Snapshot) v1alpha1.CheckResult {
	res := v1alpha1.CheckResult{Name: c.Name, Passed: true}
	if err := c.Fn(s); err != nil {
		res.Passed = false
		res.Message = err.Error()
		res.Category = categoryOf(err)
		if res.Category == "" {
			res.Category = v1alpha1.CategoryMismatch
		}
	}
	return res
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func agentExists(s *Snapshot) error {
	if s.AgentErr != nil {
		return missing("agent file not found at %s: %v", s.AgentPath, s.AgentErr)
	}
	return nil
}

func templateExists(s *Snapshot) error {
	if s.TemplateErr != nil {
		return missing("template file not found at %s: %v", s.TemplatePath, s.TemplateErr)
	}
	return nil
}

func filesIdentical(s *Snapshot) error {
	if s.AgentErr != nil || s.TemplateErr != nil {
		return missing("cannot compare agent file (%s) and template file (%s): both must be readable", s.AgentPath, s.TemplatePath)
	}
	if s.Agent != s.Template {
		return mismatch("agent file (%s) and template file (%s) should be identical; the template is the authoritative source", s.AgentPath, s.TemplatePath)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Header structure
// ---------------------------------------------------------------------------

func headerPresent(s *Snapshot) error {
	if s.AgentErr != nil {
		return missing("agent file unreadable: %v", s.AgentErr)
	}
	if !frontmatter.HasOpenMarker(s.Agent) {
		return missing("agent file must start with header delimiter '---\\n'")
	}
	if !frontmatter.HasCloseMarker(s.Agent) {
		return missing("agent file must have a closing header delimiter '\\n---\\n'")
	}
	if s.HeaderErr != nil {
		return missing("%v", s.HeaderErr)
	}
	return nil
}

func headerNonEmpty(s *Snapshot) error {
	if s.HeaderErr != nil {
		return missing("header unavailable: %v", s.HeaderErr)
	}
	if len(s.Header) == 0 {
		return mismatch("header should have at least one field")
	}
	return nil
}

func fieldPresent(key string) func(*Snapshot) error {
	return func(s *Snapshot) error {
		_, err := s.field(key)
		return err
	}
}

// ---------------------------------------------------------------------------
// Header fields
// ---------------------------------------------------------------------------

func fieldChecks(f v1alpha1.FieldRule) []Check {
	var checks []Check

	if f.Equals != "" {
		checks = append(checks, Check{
			Name: "field-equals/" + f.Key,
			Fn:   fieldEquals(f.Key, f.Equals),
		})
	}
	if f.MinLength > 0 {
		checks = append(checks, Check{
			Name: "field-min-length/" + f.Key,
			Fn:   fieldMinLength(f.Key, f.MinLength),
		})
	}
	for _, group := range f.Keywords {
		checks = append(checks, Check{
			Name: "field-keyword/" + f.Key + "/" + strings.Join(group, "|"),
			Fn:   fieldKeyword(f.Key, group),
		})
	}
	sep := f.ListSeparator
	if sep == "" {
		sep = v1alpha1.DefaultListSeparator
	}
	for _, item := range f.Contains {
		checks = append(checks, Check{
			Name: "field-contains/" + f.Key + "/" + item,
			Fn:   fieldContains(f.Key, sep, item),
		})
	}
	return checks
}

func fieldEquals(key, want string) func(*Snapshot) error {
	return func(s *Snapshot) error {
		got, err := s.field(key)
		if err != nil {
			return err
		}
		if got != want {
			return mismatch("field '%s' should be '%s', got '%s'", key, want, got)
		}
		return nil
	}
}

func fieldMinLength(key string, min int) func(*Snapshot) error {
	return func(s *Snapshot) error {
		got, err := s.field(key)
		if err != nil {
			return err
		}
		if n := utf8.RuneCountInString(got); n < min {
			return mismatch("field '%s' should be substantial (>%d chars), got %d chars", key, min-1, n)
		}
		return nil
	}
}

func fieldKeyword(key string, anyOf []string) func(*Snapshot) error {
	return func(s *Snapshot) error {
		got, err := s.field(key)
		if err != nil {
			return err
		}
		if containsAny(got, anyOf, true) {
			return nil
		}
		return mismatch("field '%s' should mention %s; current value: %s", key, quoteAlternatives(anyOf), excerpt(got))
	}
}

func fieldContains(key, sep, item string) func(*Snapshot) error {
	return func(s *Snapshot) error {
		if _, err := s.field(key); err != nil {
			return err
		}
		entries := s.Header.List(key, sep)
		for _, e := range entries {
			if e == item {
				return nil
			}
		}
		return mismatch("field '%s' must include '%s'; available: %s", key, item, strings.Join(entries, sep))
	}
}

// ---------------------------------------------------------------------------
// Body
// ---------------------------------------------------------------------------

func bodyContains(r v1alpha1.BodyRule) func(*Snapshot) error {
	return func(s *Snapshot) error {
		if s.HeaderErr != nil {
			return missing("body unavailable: %v", s.HeaderErr)
		}
		if containsAny(s.Body, r.AnyOf, r.IgnoreCase) {
			return nil
		}
		msg := r.Message
		if msg == "" {
			msg = "body should contain " + quoteAlternatives(r.AnyOf)
		}
		return mismatch("%s", msg)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func containsAny(text string, needles []string, ignoreCase bool) bool {
	if ignoreCase {
		text = strings.ToLower(text)
	}
	for _, n := range needles {
		if ignoreCase {
			n = strings.ToLower(n)
		}
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func quoteAlternatives(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("'%s'", it)
	}
	return strings.Join(quoted, " or ")
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptLen {
		return s
	}
	r := []rune(s)
	return string(r[:excerptLen]) + "..."
}
