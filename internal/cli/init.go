package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klubi/agentcheck/pkg/manifest"
)

const profileTemplate = `apiVersion: agentcheck.dev/v1alpha1
kind: AgentProfile
metadata:
  name: %[1]s
spec:
  description: "%[2]s"
  agentPath: .claude/agents/%[1]s.md
  templatePath: templates/agents/%[1]s.md
  header:
    requiredKeys: [name, description, tools, color]
    fields:
      - key: name
        equals: %[1]s
      - key: description
        minLength: 51
      - key: tools
        listSeparator: ", "
        contains: [Read, Write, Edit, Glob, Grep, Bash]
  body:
    - name: checkbox-items
      anyOf: ["- [ ]"]
      message: agent should have checkbox items '- [ ]' for task verification
`

func newInitCmd() *cobra.Command {
	var (
		description string
		outputFile  string
	)

	cmd := &cobra.Command{
		Use:   "init [agent-name]",
		Short: "Write a starter AgentProfile manifest",
		Long: `Create an AgentProfile manifest in the current directory.

The generated file lists the header and body rules for one agent
definition. Customize it and run it with 'agentcheck check -f'.`,
		Example: `  agentcheck init frontend-engineer
  agentcheck init data-engineer --description "Data pipeline persona"
  agentcheck init reviewer --output-file profiles/reviewer.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := manifest.DefaultProfile
			if len(args) > 0 {
				name = args[0]
			}
			if description == "" {
				description = fmt.Sprintf("Checks for the %s agent", name)
			}
			if outputFile == "" {
				outputFile = name + "-profile.yaml"
			}

			content := fmt.Sprintf(profileTemplate, name, description)

			// The template must stay loadable.
			if _, err := manifest.ParseBytes([]byte(content)); err != nil {
				return fmt.Errorf("generated profile is invalid: %w", err)
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			outputPath := outputFile
			if !filepath.IsAbs(outputPath) {
				outputPath = filepath.Join(cwd, outputFile)
			}

			if _, err := os.Stat(outputPath); err == nil {
				return fmt.Errorf("file %s already exists. Use a different name with --output-file", outputFile)
			}
			if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", outputFile, err)
			}
			if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
				return fmt.Errorf("writing profile manifest: %w", err)
			}

			out := cmd.OutOrStdout()
			color.New(color.FgCyan, color.Bold).Fprintln(out, "AgentProfile created!")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Manifest: %s\n", outputPath)
			fmt.Fprintf(out, "  Profile:  %s\n", name)
			fmt.Fprintln(out)

			color.New(color.Bold).Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Review and customize the rules:")
			fmt.Fprintf(out, "     vi %s\n", outputFile)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  2. Run the checks:")
			fmt.Fprintf(out, "     agentcheck check -f %s\n", outputFile)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  3. Review recorded runs:")
			fmt.Fprintln(out, "     agentcheck runs")

			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Profile description")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Output manifest filename (default: <agent-name>-profile.yaml)")

	return cmd
}
