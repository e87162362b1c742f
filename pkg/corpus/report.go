package corpus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coolbeans/archetype/pkg/archetype"
)

// SummaryOf converts a run report into the corpus README summary.
func SummaryOf(report *Report) archetype.Summary {
	summary := archetype.Summary{Scanned: report.Scanned, MissingSection: report.MissingSection}
	for _, entry := range report.Entries {
		switch entry.Status {
		case StatusGenerated:
			title := entry.ID
			if entry.Name != "" {
				if title != "" {
					title += " - "
				}
				title += entry.Name
			}
			summary.Generated = append(summary.Generated, archetype.GeneratedDoc{
				Output:       entry.Output,
				Title:        title,
				Placeholders: entry.Placeholders,
			})
		case StatusSkipped:
			summary.Skipped = append(summary.Skipped, archetype.SkippedDoc{
				Source: entry.Source,
				Reason: entry.Reason,
			})
		}
	}
	return summary
}

// FormatReport formats a Report for terminal output.
func FormatReport(report *Report) string {
	var builder strings.Builder

	heading := "\nArchetype Transform Report"
	if report.DryRun {
		heading += " (dry run)"
	}
	builder.WriteString(heading + "\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("Rule set: %s | Run: %s\n", report.RuleSet, report.RunID))
	builder.WriteString(fmt.Sprintf("Scanned: %d | Generated: %d | Skipped: %d (missing section: %d)\n",
		report.Scanned, report.Generated, report.Skipped, report.MissingSection))
	builder.WriteString(strings.Repeat("─", 60) + "\n")

	for _, entry := range report.Entries {
		status := "[OK]"
		if entry.Status == StatusSkipped {
			status = "[SKIP]"
		}

		line := fmt.Sprintf("  %-6s %-30s", status, entry.Source)
		switch {
		case entry.Status == StatusSkipped:
			line += " " + entry.Reason
		default:
			line += " -> " + entry.Output
			if entry.Substitutions > 0 {
				line += fmt.Sprintf(" (%d substitutions, %d placeholders)", entry.Substitutions, len(entry.Placeholders))
			}
		}
		builder.WriteString(line + "\n")
	}

	if report.Summary != "" {
		builder.WriteString(fmt.Sprintf("\nSummary written to %s\n", report.Summary))
	}

	return builder.String()
}

// FormatReportJSON formats a Report as JSON.
func FormatReportJSON(report *Report) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
