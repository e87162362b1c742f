// Package archetype assembles archetypal pattern documents and corpus-level
// reference documents from substitution results.
package archetype

import (
	"fmt"
	"strings"

	"github.com/coolbeans/archetype/pkg/domain"
	"github.com/coolbeans/archetype/pkg/extract"
	"github.com/coolbeans/archetype/pkg/rules"
)

// Output is everything needed to render one archetypal document.
type Output struct {
	Title extract.Title

	// Section names the transformed section; empty for whole-document variants.
	Section extract.SectionName

	Archetypal string

	// Placeholders are the mapping rows to emit, in first-occurrence order.
	Placeholders []string

	Original string
}

// Render produces the archetypal markdown document: restated title,
// archetypal text, mapping rows for the placeholders present, original text.
func Render(out Output, set *rules.Set) string {
	var builder strings.Builder

	suffix := "(Archetypal)"
	originalHeading := "Original " + string(out.Section)
	if out.Section == "" {
		suffix = "(Archetypal Variant)"
		originalHeading = "Original Content"
	}

	builder.WriteString(fmt.Sprintf("# %s %s\n\n", out.Title, suffix))

	builder.WriteString("## Archetypal Pattern\n\n")
	builder.WriteString(strings.TrimSpace(out.Archetypal))
	builder.WriteString("\n\n")

	builder.WriteString("## Domain Placeholders\n\n")
	if len(out.Placeholders) == 0 {
		builder.WriteString("No domain-specific placeholders were identified in this pattern.\n\n")
	} else {
		builder.WriteString("This archetypal pattern uses the following domain-specific placeholders:\n\n")
		builder.WriteString(RenderMappingTable(set, out.Placeholders, 1))
		builder.WriteString("\n")
	}

	builder.WriteString(fmt.Sprintf("## %s\n\n", originalHeading))
	builder.WriteString(strings.TrimSpace(out.Original))
	builder.WriteString("\n\n")

	builder.WriteString("---\n")
	if out.Title.ID != "" {
		builder.WriteString(fmt.Sprintf("*Generated from pattern %s*\n", out.Title.ID))
	} else {
		builder.WriteString("*Generated archetypal variant*\n")
	}

	return builder.String()
}

// RenderMappingTable renders one row per placeholder with up to perDomain
// example terms in each domain column. perDomain <= 0 includes every example.
func RenderMappingTable(set *rules.Set, placeholders []string, perDomain int) string {
	var builder strings.Builder

	domains := domain.All()
	builder.WriteString("| Placeholder |")
	for _, d := range domains {
		builder.WriteString(" " + d.Title() + " |")
	}
	builder.WriteString("\n|-------------|")
	for _, d := range domains {
		builder.WriteString(strings.Repeat("-", len(d.Title())+2) + "|")
	}
	builder.WriteString("\n")

	for _, name := range placeholders {
		rule, ok := set.Lookup(name)
		if !ok {
			continue
		}
		builder.WriteString(fmt.Sprintf("| `%s` |", rule.Token()))
		for _, d := range domains {
			examples := rule.Examples(d)
			if perDomain > 0 && len(examples) > perDomain {
				examples = examples[:perDomain]
			}
			cell := "-"
			if len(examples) > 0 {
				cell = escapeCell(strings.Join(examples, ", "))
			}
			builder.WriteString(" " + cell + " |")
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
