package store

import (
	"sort"

	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// CheckRunKey returns the key a run is stored under.
func CheckRunKey(run *v1alpha1.CheckRun) string {
	return ResourceKey(v1alpha1.KindCheckRun, run.Spec.Profile, run.Metadata.Name)
}

// SaveCheckRun stores a new run.
func SaveCheckRun(s Store, run *v1alpha1.CheckRun) error {
	return s.Create(CheckRunKey(run), run)
}

// ListCheckRuns returns stored runs, oldest first. An empty profile lists
// runs of every profile.
func ListCheckRuns(s Store, profile string) ([]*v1alpha1.CheckRun, error) {
	items, err := s.List(KindPrefix(v1alpha1.KindCheckRun, profile), func() interface{} { return &v1alpha1.CheckRun{} })
	if err != nil {
		return nil, err
	}

	runs := make([]*v1alpha1.CheckRun, 0, len(items))
	for _, item := range items {
		runs = append(runs, item.(*v1alpha1.CheckRun))
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Metadata.CreatedAt.Before(runs[j].Metadata.CreatedAt)
	})
	return runs, nil
}

// GetCheckRun finds a run by name across all profiles.
func GetCheckRun(s Store, name string) (*v1alpha1.CheckRun, error) {
	runs, err := ListCheckRuns(s, "")
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.Metadata.Name == name {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

// PruneCheckRuns deletes all but the newest keep runs of a profile and
// returns how many were removed.
func PruneCheckRuns(s Store, profile string, keep int) (int, error) {
	runs, err := ListCheckRuns(s, profile)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for i := 0; i < len(runs)-keep; i++ {
		if err := s.Delete(CheckRunKey(runs[i])); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
