package checker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/klubi/agentcheck/internal/store"
	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// Runner evaluates profiles and records each run in the history store.
type Runner struct {
	root   string
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewRunner creates a Runner that resolves relative document paths against
// root. A nil store disables recording.
func NewRunner(root string, s store.Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		root:   root,
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// Run loads the profile's documents once, evaluates every check, and
// returns the aggregated CheckRun. A non-nil error means the run could not
// be completed or recorded; failed checks are reported in the run status.
func (r *Runner) Run(ctx context.Context, p *v1alpha1.AgentProfile) (*v1alpha1.CheckRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agentPath, templatePath := r.Paths(p)

	log := r.logger.With(
		zap.String("profile", p.Metadata.Name),
		zap.String("agent", agentPath),
	)

	start := r.now()
	snap := Load(agentPath, templatePath)
	results := Evaluate(Build(p), snap)

	run := newCheckRun(p.Metadata.Name, agentPath, templatePath, start)
	for _, res := range results {
		if res.Passed {
			run.Status.Passed++
			log.Debug("check passed", zap.String("check", res.Name))
			continue
		}
		run.Status.Failed++
		log.Info("check failed",
			zap.String("check", res.Name),
			zap.String("category", string(res.Category)),
			zap.String("message", res.Message),
		)
	}
	run.Status.Results = results
	run.Status.Phase = v1alpha1.RunPassed
	if run.Status.Failed > 0 {
		run.Status.Phase = v1alpha1.RunFailed
	}
	run.Status.FinishedAt = r.now()

	log.Debug("check run finished",
		zap.String("run", run.Metadata.Name),
		zap.String("phase", string(run.Status.Phase)),
		zap.Int("passed", run.Status.Passed),
		zap.Int("failed", run.Status.Failed),
	)

	if r.store != nil {
		if err := store.SaveCheckRun(r.store, run); err != nil {
			return run, fmt.Errorf("recording check run %s: %w", run.Metadata.Name, err)
		}
	}
	return run, nil
}

// Paths returns the profile's agent and template paths resolved against the
// runner root. The template path stays empty when the profile has none.
func (r *Runner) Paths(p *v1alpha1.AgentProfile) (agent, template string) {
	agent = r.resolve(p.Spec.AgentPath)
	if p.Spec.TemplatePath != "" {
		template = r.resolve(p.Spec.TemplatePath)
	}
	return agent, template
}

func (r *Runner) resolve(path string) string {
	if r.root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.root, path)
}

// newCheckRun names runs by start time plus a short random suffix so that
// store keys sort chronologically.
func newCheckRun(profile, agentPath, templatePath string, start time.Time) *v1alpha1.CheckRun {
	uid := uuid.New().String()
	name := fmt.Sprintf("%s-%s", start.UTC().Format("20060102-150405"), strings.SplitN(uid, "-", 2)[0])

	return &v1alpha1.CheckRun{
		TypeMeta: v1alpha1.TypeMeta{
			APIVersion: v1alpha1.APIVersion,
			Kind:       v1alpha1.KindCheckRun,
		},
		Metadata: v1alpha1.ObjectMeta{
			Name:      name,
			UID:       uid,
			CreatedAt: start,
		},
		Spec: v1alpha1.CheckRunSpec{
			Profile:      profile,
			AgentPath:    agentPath,
			TemplatePath: templatePath,
		},
	}
}
