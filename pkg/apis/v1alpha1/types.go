// Package v1alpha1 defines all agentcheck resource types.
package v1alpha1

import "time"

const (
	APIVersion = "agentcheck.dev/v1alpha1"
)

// Resource kinds
const (
	KindAgentProfile = "AgentProfile"
	KindCheckRun     = "CheckRun"
)

// DefaultListSeparator splits list-valued header fields such as tools.
const DefaultListSeparator = ", "

// TypeMeta describes the API version and kind of a resource.
type TypeMeta struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Kind       string `json:"kind" yaml:"kind"`
}

// ObjectMeta holds metadata common to all resources.
type ObjectMeta struct {
	Name      string            `json:"name" yaml:"name"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	UID       string            `json:"uid,omitempty" yaml:"uid,omitempty"`
	CreatedAt time.Time         `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// -------------------------------------------------------
// AgentProfile
// -------------------------------------------------------

// AgentProfile is the rule table for one agent definition and its template.
type AgentProfile struct {
	TypeMeta `json:",inline" yaml:",inline"`
	Metadata ObjectMeta       `json:"metadata" yaml:"metadata"`
	Spec     AgentProfileSpec `json:"spec" yaml:"spec"`
}

type AgentProfileSpec struct {
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
	AgentPath    string      `json:"agentPath" yaml:"agentPath"`
	TemplatePath string      `json:"templatePath" yaml:"templatePath"`
	Header       HeaderRules `json:"header" yaml:"header"`
	Body         []BodyRule  `json:"body,omitempty" yaml:"body,omitempty"`
}

// HeaderRules constrains the key/value header block.
type HeaderRules struct {
	RequiredKeys []string    `json:"requiredKeys,omitempty" yaml:"requiredKeys,omitempty"`
	Fields       []FieldRule `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FieldRule holds the value constraints for one header key. Zero values
// disable the corresponding constraint.
type FieldRule struct {
	Key       string `json:"key" yaml:"key"`
	Equals    string `json:"equals,omitempty" yaml:"equals,omitempty"`
	MinLength int    `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	// Keywords is a list of any-of groups matched case-insensitively.
	Keywords      [][]string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	ListSeparator string     `json:"listSeparator,omitempty" yaml:"listSeparator,omitempty"`
	Contains      []string   `json:"contains,omitempty" yaml:"contains,omitempty"`
}

// BodyRule passes when any of AnyOf appears in the document body.
type BodyRule struct {
	Name       string   `json:"name" yaml:"name"`
	AnyOf      []string `json:"anyOf" yaml:"anyOf"`
	IgnoreCase bool     `json:"ignoreCase,omitempty" yaml:"ignoreCase,omitempty"`
	Message    string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// -------------------------------------------------------
// CheckRun
// -------------------------------------------------------

// CheckPhase is the aggregate outcome of a CheckRun.
type CheckPhase string

const (
	RunPassed CheckPhase = "Passed"
	RunFailed CheckPhase = "Failed"
)

// FailureCategory separates absent files or structure from wrong content.
type FailureCategory string

const (
	CategoryMissing  FailureCategory = "missing"
	CategoryMismatch FailureCategory = "mismatch"
)

// CheckRun records one evaluation of a profile.
type CheckRun struct {
	TypeMeta `json:",inline" yaml:",inline"`
	Metadata ObjectMeta     `json:"metadata" yaml:"metadata"`
	Spec     CheckRunSpec   `json:"spec" yaml:"spec"`
	Status   CheckRunStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

type CheckRunSpec struct {
	Profile      string `json:"profile" yaml:"profile"`
	AgentPath    string `json:"agentPath" yaml:"agentPath"`
	TemplatePath string `json:"templatePath" yaml:"templatePath"`
}

type CheckRunStatus struct {
	Phase      CheckPhase    `json:"phase" yaml:"phase"`
	Passed     int           `json:"passed" yaml:"passed"`
	Failed     int           `json:"failed" yaml:"failed"`
	Results    []CheckResult `json:"results,omitempty" yaml:"results,omitempty"`
	FinishedAt time.Time     `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
}

// CheckResult is the outcome of a single named check.
type CheckResult struct {
	Name     string          `json:"name" yaml:"name"`
	Passed   bool            `json:"passed" yaml:"passed"`
	Category FailureCategory `json:"category,omitempty" yaml:"category,omitempty"`
	Message  string          `json:"message,omitempty" yaml:"message,omitempty"`
}

// Failures returns the results that did not pass, in evaluation order.
func (s CheckRunStatus) Failures() []CheckResult {
	var out []CheckResult
	for _, r := range s.Results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
