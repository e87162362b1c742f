package archetype

import (
	"fmt"
	"strings"

	"github.com/coolbeans/archetype/pkg/domain"
	"github.com/coolbeans/archetype/pkg/extract"
	"github.com/coolbeans/archetype/pkg/rules"
)

// VariationExample is one pattern shown across its domain variants.
type VariationExample struct {
	Title    extract.Title
	Source   string
	Document *extract.Document
}

// RenderVariations shows how each pattern's generic template is expressed in
// every domain section it has.
func RenderVariations(examples []VariationExample) string {
	var builder strings.Builder

	builder.WriteString("# Domain Variation Examples\n\n")
	builder.WriteString("Examples showing how the same organizational pattern concept is expressed differently across the domains.\n\n")

	for _, example := range examples {
		builder.WriteString(fmt.Sprintf("## %s\n\n", example.Title.Name))
		if example.Source != "" {
			builder.WriteString(fmt.Sprintf("*Source: %s*\n\n", example.Source))
		}

		if body, _ := example.Document.Section(extract.SectionTemplate); body != "" {
			builder.WriteString("### Template (Generic)\n")
			builder.WriteString(blockquote(body))
			builder.WriteString("\n")
		}

		for _, d := range domain.All() {
			name, ok := extract.SectionFor(d)
			if !ok {
				continue
			}
			if body, _ := example.Document.Section(name); body != "" {
				builder.WriteString(fmt.Sprintf("### %s Domain\n", d.Title()))
				builder.WriteString(blockquote(body))
				builder.WriteString("\n")
			}
		}

		builder.WriteString("---\n\n")
	}

	return builder.String()
}

// RenderTransformations lists, per domain, the terms each generic placeholder
// becomes.
func RenderTransformations(set *rules.Set) string {
	var builder strings.Builder

	builder.WriteString("# Generic to Domain-Specific Transformation Patterns\n\n")
	builder.WriteString("Common word/concept transformations from generic template to specific domains.\n\n")

	for _, d := range domain.All() {
		builder.WriteString(fmt.Sprintf("## Generic → %s Transformations\n\n", d.Title()))
		builder.WriteString("| Generic Concept | Domain-Specific Terms |\n")
		builder.WriteString("|-----------------|----------------------|\n")
		for _, rule := range set.Rules() {
			examples := rule.Examples(d)
			if len(examples) == 0 {
				continue
			}
			builder.WriteString(fmt.Sprintf("| %s | %s |\n", rule.Placeholder(), escapeCell(strings.Join(examples, ", "))))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func blockquote(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
