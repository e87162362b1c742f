package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/archetype/pkg/archetype"
	"github.com/coolbeans/archetype/pkg/extract"
	"github.com/coolbeans/archetype/pkg/substitute"
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Replace domain vocabulary in a text with placeholders",
		Long: `Apply the rule set to a file, or to standard input when no file is given,
and print the archetypal text.

Example:
  echo "the building process began" | archetype apply --preset apl
  archetype apply notes.md --placeholders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showPlaceholders, _ := cmd.Flags().GetBool("placeholders")

			var input io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer file.Close()
				input = file
			}
			data, err := io.ReadAll(input)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			set, err := loadRules(cmd)
			if err != nil {
				return err
			}

			result := substitute.New(set).Apply(string(data))
			fmt.Fprint(cmd.OutOrStdout(), result.Text)
			if showPlaceholders {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d substitutions: %s\n", result.Count(), strings.Join(result.Fired, ", "))
			}
			return nil
		},
	}

	cmd.Flags().Bool("placeholders", false, "List fired placeholders on stderr")
	addRuleFlags(cmd)

	return cmd
}

// sectionsView is the JSON shape printed by the sections command.
type sectionsView struct {
	Source   string           `json:"source"`
	Title    *extract.Title   `json:"title,omitempty"`
	Sections []sectionContent `json:"sections"`
}

type sectionContent struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

func sectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections <file>",
		Short: "Show the title and recognized sections of a pattern document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetInt("level")

			doc, err := parseFile(args[0], extract.NewParser(extract.WithSectionLevel(level)))
			if err != nil {
				return err
			}

			view := sectionsView{Source: args[0], Sections: []sectionContent{}}
			if !doc.Title.IsZero() {
				view.Title = &doc.Title
			}
			for _, name := range doc.SectionNames() {
				body, _ := doc.Section(name)
				view.Sections = append(view.Sections, sectionContent{Name: string(name), Body: body})
			}

			data, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode sections: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().Int("level", 2, "Heading level of section headings")

	return cmd
}

func variationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variations <file>...",
		Short: "Show how patterns are expressed across the four domains",
		Long: `Render each pattern's Template next to its Physical, Social, Conceptual
and Psychic sections. With --transformations, also list the domain terms each
placeholder of the rule set stands for.

Example:
  archetype variations pattern/12610010.md pattern/12610020.md --transformations`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transformations, _ := cmd.Flags().GetBool("transformations")
			output, _ := cmd.Flags().GetString("output")

			parser := extract.NewParser()
			var examples []archetype.VariationExample
			for _, path := range args {
				doc, err := parseFile(path, parser)
				if err != nil {
					return err
				}
				title := doc.Title
				if title.IsZero() {
					title = doc.FallbackTitle(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
				}
				examples = append(examples, archetype.VariationExample{
					Title:    title,
					Source:   filepath.Base(path),
					Document: doc,
				})
			}

			content := archetype.RenderVariations(examples)
			if transformations {
				set, err := loadRules(cmd)
				if err != nil {
					return err
				}
				content += "\n" + archetype.RenderTransformations(set)
			}

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}
			if err := os.WriteFile(output, []byte(content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().Bool("transformations", false, "Append the generic-to-domain transformation tables")
	cmd.Flags().String("output", "", "Write to this file instead of stdout")
	addRuleFlags(cmd)

	return cmd
}

// parseFile parses a document, tolerating a missing title.
func parseFile(path string, parser *extract.Parser) (*extract.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	doc, err := parser.Parse(file)
	if doc == nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}
