package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klubi/agentcheck/internal/store"
	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

func newRunsCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:     "runs [name]",
		Aliases: []string{"history"},
		Short:   "List recorded check runs",
		Long:    "Display recorded check runs from the local history store or, with --server, from an agentcheck server.",
		Example: `  agentcheck runs
  agentcheck runs -p backend-engineer
  agentcheck runs 20261014-101500-1a2b3c4d -o yaml
  agentcheck runs --server http://127.0.0.1:7118`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				run, err := fetchCheckRun(args[0])
				if err != nil {
					return err
				}
				return printRuns(out, []*v1alpha1.CheckRun{run}, true)
			}

			runs, err := fetchCheckRuns(profile)
			if err != nil {
				return err
			}
			if len(runs) == 0 && !structured() {
				fmt.Fprintln(out, "No check runs found.")
				return nil
			}
			return printRuns(out, runs, false)
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Only show runs of this profile")
	cmd.AddCommand(newRunsPruneCmd())

	return cmd
}

func newRunsPruneCmd() *cobra.Command {
	var (
		profile string
		keep    int
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old check runs from the local history store",
		Example: `  agentcheck runs prune --keep 20
  agentcheck runs prune -p backend-engineer --keep 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative")
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			profiles := []string{profile}
			if profile == "" {
				if profiles, err = recordedProfiles(s); err != nil {
					return err
				}
			}

			total := 0
			for _, p := range profiles {
				n, err := store.PruneCheckRuns(s, p, keep)
				total += n
				if err != nil {
					return fmt.Errorf("pruning runs of %s: %w", p, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d check run(s).\n", total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Only prune runs of this profile (default: every profile)")
	cmd.Flags().IntVar(&keep, "keep", 10, "Number of newest runs to keep per profile")

	return cmd
}

// recordedProfiles returns the distinct profile names present in the store.
func recordedProfiles(s store.Store) ([]string, error) {
	runs, err := store.ListCheckRuns(s, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, r := range runs {
		if !seen[r.Spec.Profile] {
			seen[r.Spec.Profile] = true
			names = append(names, r.Spec.Profile)
		}
	}
	return names, nil
}

// fetchCheckRuns lists runs remotely when --server is set, locally otherwise.
func fetchCheckRuns(profile string) ([]*v1alpha1.CheckRun, error) {
	if c := remoteClient(); c != nil {
		list, err := c.ListCheckRuns(profile)
		if err != nil {
			return nil, err
		}
		runs := make([]*v1alpha1.CheckRun, len(list))
		for i := range list {
			runs[i] = &list[i]
		}
		return runs, nil
	}

	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return store.ListCheckRuns(s, profile)
}

// fetchCheckRun finds one run remotely when --server is set, locally otherwise.
func fetchCheckRun(name string) (*v1alpha1.CheckRun, error) {
	if c := remoteClient(); c != nil {
		return c.GetCheckRun(name)
	}

	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	run, err := store.GetCheckRun(s, name)
	if err == store.ErrNotFound {
		return nil, fmt.Errorf("check run %q not found", name)
	}
	return run, err
}

func printRuns(w io.Writer, runs []*v1alpha1.CheckRun, single bool) error {
	if structured() {
		if single {
			return printStructured(w, runs[0])
		}
		return printStructured(w, runs)
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, checkRunToRow(r))
	}
	printTable(w, checkRunHeaders(), rows)
	return nil
}

func checkRunHeaders() []string {
	return []string{"NAME", "PROFILE", "PHASE", "PASSED", "FAILED", "AGE"}
}

func checkRunToRow(r *v1alpha1.CheckRun) []string {
	return []string{
		r.Metadata.Name,
		r.Spec.Profile,
		colorPhase(r.Status.Phase),
		strconv.Itoa(r.Status.Passed),
		strconv.Itoa(r.Status.Failed),
		formatAge(r.Metadata.CreatedAt),
	}
}

func colorPhase(phase v1alpha1.CheckPhase) string {
	switch phase {
	case v1alpha1.RunPassed:
		return color.GreenString(string(phase))
	case v1alpha1.RunFailed:
		return color.RedString(string(phase))
	default:
		return string(phase)
	}
}
