package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// outputFormat is set by the root command's -o flag.
// Supported values: "table" (default), "json", "yaml".
var outputFormat string

// printTable writes tabular data to w using aligned columns.
func printTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// printJSON writes the value as pretty-printed JSON to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printYAML writes the value as YAML to w.
func printYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

// structured reports whether -o selected a machine-readable format.
func structured() bool {
	return outputFormat == "json" || outputFormat == "yaml"
}

// printStructured writes v as JSON or YAML based on outputFormat.
func printStructured(w io.Writer, v interface{}) error {
	switch outputFormat {
	case "json":
		if err := printJSON(w, v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case "yaml":
		if err := printYAML(w, v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
	return nil
}

// printField writes one aligned "label: value" line in describe style.
func printField(w io.Writer, label, value string) {
	if value == "" {
		value = "<none>"
	}
	fmt.Fprintf(w, "%-24s%s\n", label+":", value)
}

// formatAge returns a human-readable duration string relative to the given
// time, such as "5s", "3m", "2h", "4d". Returns "<unknown>" for zero times.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "<unknown>"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
