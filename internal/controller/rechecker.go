package controller

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/klubi/agentcheck/internal/checker"
	"github.com/klubi/agentcheck/internal/store"
	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// Rechecker polls the documents of each profile and records a new check run
// whenever one of them changed since the last run.
type Rechecker struct {
	runner   *checker.Runner
	store    store.Store
	profiles map[string]*v1alpha1.AgentProfile
	interval time.Duration
	keep     int
	logger   *zap.Logger

	queue  *Queue
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	seen map[string]string // profile name -> document fingerprint of the last run
}

// NewRechecker creates a Rechecker. keep > 0 prunes each profile's history
// to the newest keep runs after every recorded run.
func NewRechecker(runner *checker.Runner, s store.Store, profiles []*v1alpha1.AgentProfile, interval time.Duration, keep int, logger *zap.Logger) *Rechecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]*v1alpha1.AgentProfile, len(profiles))
	for _, p := range profiles {
		byName[p.Metadata.Name] = p
	}
	return &Rechecker{
		runner:   runner,
		store:    s,
		profiles: byName,
		interval: interval,
		keep:     keep,
		logger:   logger.Named("rechecker"),
		queue:    NewQueue(),
		seen:     make(map[string]string),
	}
}

// Start enqueues every profile now and again on each interval tick, and
// processes the queue until ctx is canceled or Stop is called. A
// non-positive interval checks once.
func (r *Rechecker) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.logger.Info("starting rechecker",
		zap.Duration("interval", r.interval),
		zap.Int("profiles", len(r.profiles)),
	)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.tickLoop(ctx)
	}()
	go func() {
		defer r.wg.Done()
		r.workerLoop(ctx)
	}()
}

// Stop cancels the loops and waits for them to exit.
func (r *Rechecker) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("rechecker stopped")
}

func (r *Rechecker) tickLoop(ctx context.Context) {
	defer r.queue.Close()

	r.enqueueAll()
	if r.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.enqueueAll()
		}
	}
}

func (r *Rechecker) enqueueAll() {
	for name := range r.profiles {
		r.queue.Add(name)
	}
}

func (r *Rechecker) workerLoop(ctx context.Context) {
	for {
		name, ok := r.queue.Get()
		if !ok {
			return
		}
		err := r.Reconcile(ctx, name)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("recheck failed", zap.String("profile", name), zap.Error(err))
		}
		r.queue.Done(name, err)
	}
}

// Reconcile runs the named profile if its documents changed since the last
// run. Failed checks are not an error; an error means the run could not be
// completed, recorded or pruned.
func (r *Rechecker) Reconcile(ctx context.Context, name string) error {
	p, ok := r.profiles[name]
	if !ok {
		r.logger.Debug("profile no longer served", zap.String("profile", name))
		return nil
	}

	fp := r.fingerprint(p)
	r.mu.Lock()
	unchanged := r.seen[name] == fp
	r.mu.Unlock()
	if unchanged {
		r.logger.Debug("documents unchanged", zap.String("profile", name))
		return nil
	}

	run, err := r.runner.Run(ctx, p)
	if err != nil {
		return fmt.Errorf("running profile %s: %w", name, err)
	}

	r.mu.Lock()
	r.seen[name] = fp
	r.mu.Unlock()

	r.logger.Info("documents changed, recorded check run",
		zap.String("profile", name),
		zap.String("run", run.Metadata.Name),
		zap.String("phase", string(run.Status.Phase)),
		zap.Int("failed", run.Status.Failed),
	)

	if r.keep > 0 && r.store != nil {
		n, err := store.PruneCheckRuns(r.store, name, r.keep)
		if err != nil {
			return fmt.Errorf("pruning runs of %s: %w", name, err)
		}
		if n > 0 {
			r.logger.Debug("pruned check runs", zap.String("profile", name), zap.Int("removed", n))
		}
	}
	return nil
}

// fingerprint summarizes size and modification time of the profile's
// documents. Absent files have a fingerprint too, so their appearance or
// removal triggers a run.
func (r *Rechecker) fingerprint(p *v1alpha1.AgentProfile) string {
	agent, template := r.runner.Paths(p)
	return statLine(agent) + "|" + statLine(template)
}

func statLine(path string) string {
	if path == "" {
		return "-"
	}
	info, err := os.Stat(path)
	if err != nil {
		return path + ":absent"
	}
	return fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano())
}
