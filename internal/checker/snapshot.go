package checker

import (
	"fmt"
	"os"

	"github.com/klubi/agentcheck/pkg/frontmatter"
)

// Snapshot is the immutable input every check reads. Files are loaded
// once, whole, before any check runs.
type Snapshot struct {
	AgentPath    string
	TemplatePath string

	Agent    string
	AgentErr error

	Template    string
	TemplateErr error

	Header    frontmatter.Header
	Body      string
	HeaderErr error
}

// Load reads both documents and extracts the agent header. Read failures
// are recorded on the snapshot rather than returned so that each check can
// report them independently. An empty templatePath skips the template.
func Load(agentPath, templatePath string) *Snapshot {
	s := &Snapshot{AgentPath: agentPath, TemplatePath: templatePath}

	if data, err := os.ReadFile(agentPath); err != nil {
		s.AgentErr = err
	} else {
		s.Agent = string(data)
	}

	if templatePath != "" {
		if data, err := os.ReadFile(templatePath); err != nil {
			s.TemplateErr = err
		} else {
			s.Template = string(data)
		}
	}

	s.parse()
	return s
}

// NewSnapshot builds a snapshot from in-memory contents.
func NewSnapshot(agentPath, agent, templatePath, template string) *Snapshot {
	s := &Snapshot{
		AgentPath:    agentPath,
		Agent:        agent,
		TemplatePath: templatePath,
		Template:     template,
	}
	s.parse()
	return s
}

func (s *Snapshot) parse() {
	if s.AgentErr != nil {
		s.HeaderErr = fmt.Errorf("agent file unreadable: %w", s.AgentErr)
		return
	}
	s.Header, s.Body, s.HeaderErr = frontmatter.Extract(s.Agent)
}

// field returns the header value for key, or a missing-category error when
// the header or the key is absent.
func (s *Snapshot) field(key string) (string, error) {
	if s.HeaderErr != nil {
		return "", missing("header unavailable: %v", s.HeaderErr)
	}
	v, ok := s.Header.Get(key)
	if !ok {
		return "", missing("header must have a '%s' field", key)
	}
	return v, nil
}
