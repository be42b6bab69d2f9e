package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <run-name>",
		Short: "Show detailed info about a check run",
		Long:  "Print a detailed description of a recorded check run, including every failure message.",
		Example: `  agentcheck describe 20261014-101500-1a2b3c4d
  agentcheck describe 20261014-101500-1a2b3c4d --server http://127.0.0.1:7118`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := fetchCheckRun(args[0])
			if err != nil {
				return err
			}
			describeCheckRun(cmd.OutOrStdout(), run)
			return nil
		},
	}

	return cmd
}

func describeCheckRun(w io.Writer, run *v1alpha1.CheckRun) {
	bold := color.New(color.Bold)

	bold.Fprintln(w, "CheckRun:")
	printField(w, "  Name", run.Metadata.Name)
	printField(w, "  UID", run.Metadata.UID)
	printField(w, "  Created", run.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w)
	bold.Fprintln(w, "Spec:")
	printField(w, "  Profile", run.Spec.Profile)
	printField(w, "  Agent", run.Spec.AgentPath)
	printField(w, "  Template", run.Spec.TemplatePath)

	fmt.Fprintln(w)
	bold.Fprintln(w, "Status:")
	printField(w, "  Phase", colorPhase(run.Status.Phase))
	printField(w, "  Passed", strconv.Itoa(run.Status.Passed))
	printField(w, "  Failed", strconv.Itoa(run.Status.Failed))
	if !run.Status.FinishedAt.IsZero() {
		printField(w, "  Finished", run.Status.FinishedAt.Format("2006-01-02 15:04:05"))
	}

	failures := run.Status.Failures()
	if len(failures) == 0 {
		return
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Failures:")
	for _, f := range failures {
		fmt.Fprintf(w, "  %s [%s]\n", f.Name, f.Category)
		fmt.Fprintf(w, "    %s\n", f.Message)
	}
}
