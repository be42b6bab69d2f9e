package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klubi/agentcheck/internal/checker"
	"github.com/klubi/agentcheck/internal/store"
	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
	"github.com/klubi/agentcheck/pkg/manifest"
)

func newCheckCmd() *cobra.Command {
	var (
		profileFile  string
		profileName  string
		agentPath    string
		templatePath string
		root         string
		noRecord     bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check agent definition documents",
		Long: `Run every check of a profile against its agent definition and template.

Each check passes or fails independently. The command exits non-zero when
any check fails. Runs are recorded in the local history store unless
--no-record is given.`,
		Example: `  agentcheck check
  agentcheck check --root ../my-project
  agentcheck check -f profiles.yaml --profile frontend-engineer
  agentcheck check --agent agents/be.md --template templates/be.md -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("file") {
				profileFile = cfg.Check.ProfileFile
			}
			if !cmd.Flags().Changed("profile") {
				profileName = cfg.Check.Profile
			}
			if !cmd.Flags().Changed("root") {
				root = cfg.Check.Root
			}

			profiles, err := resolveProfiles(profileFile, profileName, cmd.Flags().Changed("profile"))
			if err != nil {
				return err
			}
			if agentPath != "" || templatePath != "" {
				if len(profiles) != 1 {
					return fmt.Errorf("--agent and --template need a single profile, %d selected", len(profiles))
				}
				if agentPath != "" {
					profiles[0].Spec.AgentPath = agentPath
				}
				if templatePath != "" {
					profiles[0].Spec.TemplatePath = templatePath
				}
			}

			var s store.Store
			if noRecord {
				s = store.NewMemoryStore()
			} else if s, err = openStore(); err != nil {
				return err
			}
			defer s.Close()

			runner := checker.NewRunner(root, s, logger)

			out := cmd.OutOrStdout()
			var runs []*v1alpha1.CheckRun
			failed := false
			for _, p := range profiles {
				run, err := runner.Run(cmd.Context(), p)
				if err != nil {
					return err
				}
				runs = append(runs, run)
				if run.Status.Phase != v1alpha1.RunPassed {
					failed = true
				}
				if !structured() {
					printCheckRun(out, run)
				}
			}

			if structured() {
				var v interface{} = runs
				if len(runs) == 1 {
					v = runs[0]
				}
				if err := printStructured(out, v); err != nil {
					return err
				}
			}

			if failed {
				return checker.ErrChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileFile, "file", "f", "", "AgentProfile manifest to load instead of the built-in profiles")
	cmd.Flags().StringVarP(&profileName, "profile", "p", manifest.DefaultProfile, "Profile name")
	cmd.Flags().StringVar(&agentPath, "agent", "", "Override the profile's agent document path")
	cmd.Flags().StringVar(&templatePath, "template", "", "Override the profile's template document path")
	cmd.Flags().StringVar(&root, "root", ".", "Directory relative document paths resolve against")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the run in the history store")

	return cmd
}

// resolveProfiles picks the profiles to run. Without a manifest file the
// named built-in is used. With one, every profile in the file runs unless a
// name was asked for explicitly.
func resolveProfiles(file, name string, nameExplicit bool) ([]*v1alpha1.AgentProfile, error) {
	if file == "" {
		p, err := manifest.Lookup(name)
		if err != nil {
			return nil, err
		}
		return []*v1alpha1.AgentProfile{p}, nil
	}

	profiles, err := manifest.ParseFile(file)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no AgentProfile found in %s", file)
	}
	if !nameExplicit {
		return profiles, nil
	}
	for _, p := range profiles {
		if p.Metadata.Name == name {
			return []*v1alpha1.AgentProfile{p}, nil
		}
	}
	return nil, fmt.Errorf("profile %q not found in %s", name, file)
}

// printCheckRun writes one PASS/FAIL line per check followed by a summary.
func printCheckRun(w io.Writer, run *v1alpha1.CheckRun) {
	bold := color.New(color.Bold)
	pass := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)

	bold.Fprintf(w, "Profile %s\n", run.Spec.Profile)
	fmt.Fprintf(w, "  Agent:    %s\n", run.Spec.AgentPath)
	if run.Spec.TemplatePath != "" {
		fmt.Fprintf(w, "  Template: %s\n", run.Spec.TemplatePath)
	}
	fmt.Fprintln(w)

	for _, r := range run.Status.Results {
		if r.Passed {
			pass.Fprint(w, "  PASS ")
			fmt.Fprintln(w, r.Name)
			continue
		}
		fail.Fprint(w, "  FAIL ")
		fmt.Fprintf(w, "%s ", r.Name)
		dim.Fprintf(w, "[%s]\n", r.Category)
		fmt.Fprintf(w, "       %s\n", r.Message)
	}

	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d passed, %d failed (run %s)", run.Status.Passed, run.Status.Failed, run.Metadata.Name)
	if run.Status.Phase == v1alpha1.RunPassed {
		pass.Fprintln(w, strings.ToUpper(string(run.Status.Phase))+": "+summary)
	} else {
		fail.Fprintln(w, strings.ToUpper(string(run.Status.Phase))+": "+summary)
	}
}
