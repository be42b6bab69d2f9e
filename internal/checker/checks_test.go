package checker

import (
	"strings"
	"testing"

	"github.com/klubi/agentcheck/pkg/apis/v1alpha1"
	"github.com/klubi/agentcheck/pkg/manifest"
)

const validHeader = "---\n" +
	"name: backend-engineer\n" +
	"description: Handles backend API and database work in Python for web services.\n" +
	"tools: Read, Write, Edit, Glob, Grep, Bash\n" +
	"color: green\n" +
	"---\n"

const validBody = `
# Backend Engineer

## Core Technologies
Python, FastAPI, PostgreSQL.

## Implementation Standards
Validate input. Follow security guidance. Use type hints.

## Testing Approach
pytest.

## Code Quality Checklist
- [ ] Tests pass
`

const validDoc = validHeader + validBody

// resultsByName indexes results for lookup in assertions.
func resultsByName(results []v1alpha1.CheckResult) map[string]v1alpha1.CheckResult {
	m := make(map[string]v1alpha1.CheckResult, len(results))
	for _, r := range results {
		m[r.Name] = r
	}
	return m
}

func evaluateDefault(agent, template string) map[string]v1alpha1.CheckResult {
	snap := NewSnapshot("agent.md", agent, "template.md", template)
	return resultsByName(Evaluate(Build(manifest.Default()), snap))
}

func TestValidDocumentPasses(t *testing.T) {
	results := evaluateDefault(validDoc, validDoc)
	if len(results) == 0 {
		t.Fatal("expected checks to run")
	}
	for name, r := range results {
		if !r.Passed {
			t.Errorf("check %s failed: %s", name, r.Message)
		}
	}
}

func TestBuildNames(t *testing.T) {
	checks := Build(manifest.Default())
	names := make(map[string]bool, len(checks))
	for _, c := range checks {
		if names[c.Name] {
			t.Errorf("duplicate check name %s", c.Name)
		}
		names[c.Name] = true
	}

	for _, want := range []string{
		"agent-file-exists",
		"template-file-exists",
		"files-identical",
		"header-present",
		"header-non-empty",
		"field-present/name",
		"field-present/description",
		"field-present/tools",
		"field-present/color",
		"field-equals/name",
		"field-equals/color",
		"field-min-length/description",
		"field-keyword/description/backend",
		"field-keyword/description/api",
		"field-keyword/description/database|db",
		"field-keyword/description/python",
		"field-contains/tools/Read",
		"field-contains/tools/Bash",
		"body/core-technologies-section",
		"body/checkbox-items",
		"body/mentions-type-hints",
	} {
		if !names[want] {
			t.Errorf("expected check %s to be built", want)
		}
	}
}

func TestBuildWithoutTemplate(t *testing.T) {
	p := manifest.Default()
	p.Spec.TemplatePath = ""
	for _, c := range Build(p) {
		if c.Name == "template-file-exists" || c.Name == "files-identical" {
			t.Errorf("unexpected check %s without a template path", c.Name)
		}
	}
}

func TestFieldFailures(t *testing.T) {
	tests := []struct {
		name         string
		replace      [2]string
		check        string
		wantCategory v1alpha1.FailureCategory
		wantMsg      string
	}{
		{
			name:         "wrong name",
			replace:      [2]string{"name: backend-engineer", "name: frontend-engineer"},
			check:        "field-equals/name",
			wantCategory: v1alpha1.CategoryMismatch,
			wantMsg:      "should be 'backend-engineer', got 'frontend-engineer'",
		},
		{
			name:         "wrong color",
			replace:      [2]string{"color: green", "color: blue"},
			check:        "field-equals/color",
			wantCategory: v1alpha1.CategoryMismatch,
			wantMsg:      "got 'blue'",
		},
		{
			name:         "missing color",
			replace:      [2]string{"color: green\n", ""},
			check:        "field-present/color",
			wantCategory: v1alpha1.CategoryMissing,
			wantMsg:      "'color' field",
		},
		{
			name:         "short description",
			replace:      [2]string{"description: Handles backend API and database work in Python for web services.", "description: backend api db python"},
			check:        "field-min-length/description",
			wantCategory: v1alpha1.CategoryMismatch,
			wantMsg:      "got 21 chars",
		},
		{
			name:         "description without database",
			replace:      [2]string{"and database work", "and storage work"},
			check:        "field-keyword/description/database|db",
			wantCategory: v1alpha1.CategoryMismatch,
			wantMsg:      "'database' or 'db'",
		},
		{
			name:         "missing tool",
			replace:      [2]string{"Grep, Bash", "Bash"},
			check:        "field-contains/tools/Grep",
			wantCategory: v1alpha1.CategoryMismatch,
			wantMsg:      "must include 'Grep'; available: Read, Write, Edit, Glob, Bash",
		},
		{
			name:         "tools with wrong separator",
			replace:      [2]string{"Read, Write, Edit, Glob, Grep, Bash", "Read,Write,Edit,Glob,Grep,Bash"},
			check:        "field-contains/tools/Write",
			wantCategory: v1alpha1.CategoryMismatch,
			wantMsg:      "must include 'Write'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validDoc, tt.replace[0], tt.replace[1], 1)
			if doc == validDoc {
				t.Fatalf("replacement %q did not apply", tt.replace[0])
			}
			results := evaluateDefault(doc, doc)

			r, ok := results[tt.check]
			if !ok {
				t.Fatalf("check %s not found", tt.check)
			}
			if r.Passed {
				t.Fatalf("expected %s to fail", tt.check)
			}
			if r.Category != tt.wantCategory {
				t.Errorf("expected category %s, got %s", tt.wantCategory, r.Category)
			}
			if !strings.Contains(r.Message, tt.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tt.wantMsg, r.Message)
			}
		})
	}
}

func TestDescriptionKeywordsIgnoreCase(t *testing.T) {
	doc := strings.Replace(validDoc, "backend API and database work in Python", "BACKEND api and DB work in pYtHoN", 1)
	results := evaluateDefault(doc, doc)
	for _, name := range []string{
		"field-keyword/description/backend",
		"field-keyword/description/api",
		"field-keyword/description/database|db",
		"field-keyword/description/python",
	} {
		if !results[name].Passed {
			t.Errorf("expected %s to pass, got %s", name, results[name].Message)
		}
	}
}

func TestKeywordFailureExcerpt(t *testing.T) {
	long := "description: " + strings.Repeat("x", 150) + " backend api db"
	doc := strings.Replace(validDoc, "description: Handles backend API and database work in Python for web services.", long, 1)
	r := evaluateDefault(doc, doc)["field-keyword/description/python"]
	if r.Passed {
		t.Fatal("expected python keyword check to fail")
	}
	if !strings.HasSuffix(r.Message, strings.Repeat("x", 100)+"...") {
		t.Errorf("expected value truncated to 100 chars, got %q", r.Message)
	}
}

func TestBodyFailures(t *testing.T) {
	tests := []struct {
		name    string
		remove  string
		check   string
		wantMsg string
	}{
		{"core technologies", "## Core Technologies", "body/core-technologies-section", "## Core Technologies"},
		{"implementation standards", "## Implementation Standards", "body/implementation-standards-section", "## Implementation Standards"},
		{"testing approach", "## Testing Approach", "body/testing-approach-section", "## Testing Approach"},
		{"checkbox", "- [ ]", "body/checkbox-items", "- [ ]"},
		{"framework", "FastAPI", "body/mentions-web-framework", "FastAPI"},
		{"database", "PostgreSQL", "body/mentions-database", "PostgreSQL"},
		{"security", "security", "body/mentions-security", "security"},
		{"validation", "Validate", "body/mentions-validation", "validation"},
		{"type hints", "type hints", "body/mentions-type-hints", "type hints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.ReplaceAll(validBody, tt.remove, "")
			doc := validHeader + body
			r := evaluateDefault(doc, doc)[tt.check]
			if r.Passed {
				t.Fatalf("expected %s to fail", tt.check)
			}
			if r.Category != v1alpha1.CategoryMismatch {
				t.Errorf("expected mismatch category, got %s", r.Category)
			}
			if !strings.Contains(r.Message, tt.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tt.wantMsg, r.Message)
			}
		})
	}
}

func TestBodyCaseSensitivity(t *testing.T) {
	// Section headings are case-sensitive, keyword mentions are not.
	body := strings.Replace(validBody, "## Core Technologies", "## core technologies", 1)
	body = strings.Replace(body, "security", "SECURITY", 1)
	doc := validHeader + body
	results := evaluateDefault(doc, doc)

	if results["body/core-technologies-section"].Passed {
		t.Error("expected lower-cased heading to fail")
	}
	if !results["body/mentions-security"].Passed {
		t.Error("expected upper-cased security mention to pass")
	}
}

func TestBodyAlternatives(t *testing.T) {
	body := strings.Replace(validBody, "FastAPI", "Flask", 1)
	body = strings.Replace(body, "PostgreSQL", "SQLite", 1)
	doc := validHeader + body
	results := evaluateDefault(doc, doc)

	if !results["body/mentions-web-framework"].Passed {
		t.Errorf("expected Flask to satisfy framework check: %s", results["body/mentions-web-framework"].Message)
	}
	if !results["body/mentions-database"].Passed {
		t.Errorf("expected SQLite to satisfy database check: %s", results["body/mentions-database"].Message)
	}
}

func TestFilesIdentical(t *testing.T) {
	results := evaluateDefault(validDoc, validDoc+"\n")
	r := results["files-identical"]
	if r.Passed {
		t.Fatal("expected files-identical to fail on a trailing newline difference")
	}
	if r.Category != v1alpha1.CategoryMismatch {
		t.Errorf("expected mismatch category, got %s", r.Category)
	}
	if !strings.Contains(r.Message, "should be identical") {
		t.Errorf("unexpected message %q", r.Message)
	}
	// The content checks are independent of the equality check.
	if !results["field-equals/name"].Passed {
		t.Error("expected field checks to still pass")
	}
}

func TestMissingClosingMarker(t *testing.T) {
	doc := strings.Replace(validDoc, "color: green\n---\n", "color: green\n", 1)
	results := evaluateDefault(doc, doc)

	r := results["header-present"]
	if r.Passed {
		t.Fatal("expected header-present to fail")
	}
	if r.Category != v1alpha1.CategoryMissing {
		t.Errorf("expected missing category, got %s", r.Category)
	}
	if !strings.Contains(r.Message, "closing header delimiter") {
		t.Errorf("unexpected message %q", r.Message)
	}
	// No partial mapping: field checks report the header as unavailable.
	if results["field-present/name"].Passed {
		t.Error("expected field-present/name to fail without a header")
	}
	if !strings.Contains(results["field-present/name"].Message, "header unavailable") {
		t.Errorf("unexpected message %q", results["field-present/name"].Message)
	}
}

func TestEmptyHeader(t *testing.T) {
	doc := "---\n---\n" + validBody
	results := evaluateDefault(doc, doc)

	if !results["header-present"].Passed {
		t.Errorf("expected header-present to pass, got %s", results["header-present"].Message)
	}
	r := results["header-non-empty"]
	if r.Passed {
		t.Fatal("expected header-non-empty to fail")
	}
	if !strings.Contains(r.Message, "at least one field") {
		t.Errorf("unexpected message %q", r.Message)
	}
}

func TestNoHeader(t *testing.T) {
	doc := strings.TrimPrefix(validDoc, "---\n")
	r := evaluateDefault(doc, doc)["header-present"]
	if r.Passed {
		t.Fatal("expected header-present to fail")
	}
	if !strings.Contains(r.Message, "must start with header delimiter") {
		t.Errorf("unexpected message %q", r.Message)
	}
}

func TestCheckErrorCategories(t *testing.T) {
	if !IsMissing(missing("gone")) {
		t.Error("expected missing() to be IsMissing")
	}
	if !IsMismatch(mismatch("wrong")) {
		t.Error("expected mismatch() to be IsMismatch")
	}
	if IsMissing(mismatch("wrong")) || IsMismatch(missing("gone")) {
		t.Error("categories should be exclusive")
	}
	if IsMissing(nil) || IsMismatch(nil) {
		t.Error("nil error has no category")
	}
}

func TestDescriptionMinLengthBoundary(t *testing.T) {
	const line = "description: Handles backend API and database work in Python for web services."
	tests := []struct {
		name       string
		value      string
		wantPassed bool
		wantMsg    string
	}{
		{"50 characters", strings.Repeat("a", 50), false, "got 50 chars"},
		{"51 characters", strings.Repeat("a", 51), true, ""},
		{"multi-byte counted in runes", strings.Repeat("é", 26), false, "got 26 chars"},
		{"51 multi-byte characters", strings.Repeat("é", 51), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validDoc, line, "description: "+tt.value, 1)
			if doc == validDoc {
				t.Fatal("replacement did not apply")
			}
			r := evaluateDefault(doc, doc)["field-min-length/description"]
			if r.Passed != tt.wantPassed {
				t.Fatalf("expected passed=%v, got %v (%s)", tt.wantPassed, r.Passed, r.Message)
			}
			if !tt.wantPassed && !strings.Contains(r.Message, tt.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tt.wantMsg, r.Message)
			}
		})
	}
}

func TestLineEndingsAgreeAcrossHeaderChecks(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"CRLF document", strings.ReplaceAll(validDoc, "\n", "\r\n"), "must start with header delimiter"},
		{"CRLF closing marker", strings.Replace(validDoc, "color: green\n---\n", "color: green\n---\r\n", 1), "closing header delimiter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := evaluateDefault(tt.doc, tt.doc)

			r := results["header-present"]
			if r.Passed {
				t.Fatal("expected header-present to fail")
			}
			if !strings.Contains(r.Message, tt.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tt.wantMsg, r.Message)
			}
			// A header reported absent must not be parsed by the field checks.
			for _, name := range []string{"header-non-empty", "field-equals/name", "field-equals/color", "field-present/tools"} {
				if results[name].Passed {
					t.Errorf("expected %s to fail when the header is absent", name)
				}
				if results[name].Category != v1alpha1.CategoryMissing {
					t.Errorf("expected %s to be missing, got %s", name, results[name].Category)
				}
			}
		})
	}
}
