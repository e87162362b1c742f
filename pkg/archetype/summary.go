package archetype

import (
	"fmt"
	"strings"

	"github.com/coolbeans/archetype/pkg/rules"
)

// Summary is the corpus-level information shown in the generated README.
type Summary struct {
	Scanned   int
	Generated []GeneratedDoc
	Skipped   []SkippedDoc

	// MissingSection counts the skips caused by a missing or empty section.
	MissingSection int
}

// GeneratedDoc describes one written archetypal document.
type GeneratedDoc struct {
	Output       string
	Title        string
	Placeholders []string
}

// SkippedDoc records a document that produced no output and why.
type SkippedDoc struct {
	Source string
	Reason string
}

// RenderSummary produces the corpus README: run totals, skip reasons and the
// full domain mapping table.
func RenderSummary(summary Summary, set *rules.Set) string {
	var builder strings.Builder

	builder.WriteString("# Archetypal Patterns\n\n")
	builder.WriteString("This directory contains archetypal patterns generated from pattern templates using the format:\n")
	builder.WriteString("**\"some-generic {{domain-specific}} more-generic\"**\n\n")
	builder.WriteString("Archetypal patterns are abstracted versions of the source patterns in which domain-specific ")
	builder.WriteString("terms have been replaced with placeholders, so the same organizational principle can be ")
	builder.WriteString("applied in the Physical, Social, Conceptual or Psychic domain.\n\n")

	builder.WriteString("## Summary\n\n")
	builder.WriteString("| Metric | Value |\n")
	builder.WriteString("|--------|-------|\n")
	builder.WriteString(fmt.Sprintf("| **Documents scanned** | %d |\n", summary.Scanned))
	builder.WriteString(fmt.Sprintf("| **Generated** | %d |\n", len(summary.Generated)))
	builder.WriteString(fmt.Sprintf("| **Skipped** | %d |\n", len(summary.Skipped)))
	builder.WriteString(fmt.Sprintf("| **Skipped (missing section)** | %d |\n", summary.MissingSection))
	ruleSet := set.Name()
	if set.Version() != "" {
		ruleSet += " " + set.Version()
	}
	builder.WriteString(fmt.Sprintf("| **Rule set** | %s |\n", ruleSet))
	builder.WriteString("\n")

	if len(summary.Skipped) > 0 {
		builder.WriteString("## Skipped Documents\n\n")
		builder.WriteString("| Document | Reason |\n")
		builder.WriteString("|----------|--------|\n")
		for _, skip := range summary.Skipped {
			builder.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(skip.Source), escapeCell(skip.Reason)))
		}
		builder.WriteString("\n")
	}

	if len(summary.Generated) > 0 {
		builder.WriteString("## Generated Patterns\n\n")
		for _, doc := range summary.Generated {
			line := fmt.Sprintf("- [%s](%s) %s", doc.Output, doc.Output, doc.Title)
			if len(doc.Placeholders) > 0 {
				tokens := make([]string, len(doc.Placeholders))
				for i, name := range doc.Placeholders {
					tokens[i] = "`" + rules.Token(name) + "`"
				}
				line += " (" + strings.Join(tokens, ", ") + ")"
			}
			builder.WriteString(line + "\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString("## Domain Mapping Table\n\n")
	if desc := set.Description(); desc != "" {
		builder.WriteString(desc + "\n\n")
	}
	builder.WriteString(RenderMappingTable(set, set.Placeholders(), 0))
	builder.WriteString("\n")

	builder.WriteString("## Usage\n\n")
	builder.WriteString("1. Select the appropriate domain (Physical, Social, Conceptual, or Psychic)\n")
	builder.WriteString("2. Replace each `{{placeholder}}` with the corresponding domain-specific term\n")
	builder.WriteString("3. Adapt the surrounding text as needed to keep it coherent in the chosen domain\n")

	return builder.String()
}
