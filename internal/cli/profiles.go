package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/klubi/agentcheck/internal/checker"
	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
	"github.com/klubi/agentcheck/pkg/manifest"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "List built-in profiles",
		Example: `  agentcheck profiles
  agentcheck profiles show backend-engineer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := manifest.Builtins()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if structured() {
				return printStructured(out, profiles)
			}

			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				rows = append(rows, profileToRow(p))
			}
			printTable(out, []string{"NAME", "AGENT", "TEMPLATE", "CHECKS"}, rows)
			return nil
		},
	}

	cmd.AddCommand(newProfileShowCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a built-in profile as a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := manifest.Lookup(args[0])
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), p)
			}
			if err := printYAML(cmd.OutOrStdout(), p); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
			return nil
		},
	}
}

func profileToRow(p *v1alpha1.AgentProfile) []string {
	return []string{
		p.Metadata.Name,
		p.Spec.AgentPath,
		p.Spec.TemplatePath,
		strconv.Itoa(len(checker.Build(p))),
	}
}
