package store

import (
	"path/filepath"
	"testing"
	"time"

	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// newTestRun creates a CheckRun for testing with the given name and profile.
func newTestRun(name, profile string, created time.Time, phase v1alpha1.CheckPhase) *v1alpha1.CheckRun {
	return &v1alpha1.CheckRun{
		TypeMeta: v1alpha1.TypeMeta{
			APIVersion: v1alpha1.APIVersion,
			Kind:       v1alpha1.KindCheckRun,
		},
		Metadata: v1alpha1.ObjectMeta{
			Name:      name,
			CreatedAt: created,
		},
		Spec: v1alpha1.CheckRunSpec{
			Profile:   profile,
			AgentPath: ".claude/agents/" + profile + ".md",
		},
		Status: v1alpha1.CheckRunStatus{
			Phase: phase,
		},
	}
}

// backends runs fn once per Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		defer s.Close()
		fn(t, s)
	})
	t.Run("bolt", func(t *testing.T) {
		s, err := NewBoltStore(filepath.Join(t.TempDir(), "data", "agentcheck.db"))
		if err != nil {
			t.Fatalf("failed to open bolt store: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func TestCreateGet(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		run := newTestRun("run-1", "backend-engineer", time.Now(), v1alpha1.RunPassed)
		key := CheckRunKey(run)

		if err := s.Create(key, run); err != nil {
			t.Fatalf("unexpected error on Create: %v", err)
		}

		var got v1alpha1.CheckRun
		if err := s.Get(key, &got); err != nil {
			t.Fatalf("unexpected error on Get after Create: %v", err)
		}
		if got.Metadata.Name != "run-1" {
			t.Errorf("expected name run-1, got %s", got.Metadata.Name)
		}
		if got.Spec.Profile != "backend-engineer" {
			t.Errorf("expected profile backend-engineer, got %s", got.Spec.Profile)
		}
		if got.Status.Phase != v1alpha1.RunPassed {
			t.Errorf("expected phase Passed, got %s", got.Status.Phase)
		}
	})
}

func TestCreateDuplicate(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		run := newTestRun("dup", "backend-engineer", time.Now(), v1alpha1.RunPassed)
		key := CheckRunKey(run)

		if err := s.Create(key, run); err != nil {
			t.Fatalf("unexpected error on first Create: %v", err)
		}
		if err := s.Create(key, run); err != ErrAlreadyExists {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestGetNotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		var got v1alpha1.CheckRun
		if err := s.Get("/CheckRun/x/missing", &got); err != ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		run := newTestRun("del", "backend-engineer", time.Now(), v1alpha1.RunFailed)
		key := CheckRunKey(run)
		if err := s.Create(key, run); err != nil {
			t.Fatalf("unexpected error on Create: %v", err)
		}

		if err := s.Delete(key); err != nil {
			t.Fatalf("unexpected error on Delete: %v", err)
		}
		var got v1alpha1.CheckRun
		if err := s.Get(key, &got); err != ErrNotFound {
			t.Fatalf("expected ErrNotFound after Delete, got %v", err)
		}
		if err := s.Delete(key); err != ErrNotFound {
			t.Fatalf("expected ErrNotFound on second Delete, got %v", err)
		}
	})
}

func TestListPrefix(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		base := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
		runs := []*v1alpha1.CheckRun{
			newTestRun("b", "backend-engineer", base.Add(2*time.Minute), v1alpha1.RunPassed),
			newTestRun("a", "backend-engineer", base.Add(time.Minute), v1alpha1.RunFailed),
			newTestRun("c", "frontend-engineer", base, v1alpha1.RunPassed),
		}
		for _, r := range runs {
			if err := SaveCheckRun(s, r); err != nil {
				t.Fatalf("unexpected error saving %s: %v", r.Metadata.Name, err)
			}
		}

		backend, err := ListCheckRuns(s, "backend-engineer")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(backend) != 2 {
			t.Fatalf("expected 2 backend runs, got %d", len(backend))
		}
		// Oldest first regardless of key order.
		if backend[0].Metadata.Name != "a" || backend[1].Metadata.Name != "b" {
			t.Errorf("expected order a, b; got %s, %s", backend[0].Metadata.Name, backend[1].Metadata.Name)
		}

		all, err := ListCheckRuns(s, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(all))
		}
		if all[0].Metadata.Name != "c" {
			t.Errorf("expected oldest run c first, got %s", all[0].Metadata.Name)
		}
	})
}

func TestGetCheckRun(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		run := newTestRun("find-me", "frontend-engineer", time.Now(), v1alpha1.RunPassed)
		if err := SaveCheckRun(s, run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := GetCheckRun(s, "find-me")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Spec.Profile != "frontend-engineer" {
			t.Errorf("expected profile frontend-engineer, got %s", got.Spec.Profile)
		}

		if _, err := GetCheckRun(s, "nope"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPruneCheckRuns(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		base := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
		for i, name := range []string{"r1", "r2", "r3", "r4"} {
			r := newTestRun(name, "backend-engineer", base.Add(time.Duration(i)*time.Minute), v1alpha1.RunPassed)
			if err := SaveCheckRun(s, r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		removed, err := PruneCheckRuns(s, "backend-engineer", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if removed != 3 {
			t.Errorf("expected 3 removed, got %d", removed)
		}

		left, err := ListCheckRuns(s, "backend-engineer")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(left) != 1 || left[0].Metadata.Name != "r4" {
			t.Errorf("expected only newest run r4 to remain, got %v", left)
		}
	})
}

func TestResourceKey(t *testing.T) {
	if got := ResourceKey("CheckRun", "backend-engineer", "r1"); got != "/CheckRun/backend-engineer/r1" {
		t.Errorf("unexpected key %s", got)
	}
	if got := KindPrefix("CheckRun", ""); got != "/CheckRun/" {
		t.Errorf("unexpected prefix %s", got)
	}
	if got := KindPrefix("CheckRun", "backend-engineer"); got != "/CheckRun/backend-engineer/" {
		t.Errorf("unexpected prefix %s", got)
	}
}
