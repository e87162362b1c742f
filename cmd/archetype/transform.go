package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coolbeans/archetype/pkg/corpus"
	"github.com/coolbeans/archetype/pkg/extract"
	"github.com/coolbeans/archetype/pkg/rules"
)

func transformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Generate archetypal patterns for a corpus",
		Long: `Transform every pattern document under the input directory.

The Template section of each document is rewritten with placeholder tokens
and written to the output directory as arc_<id>.md, together with a README
summarizing the run. Documents without the section are skipped and listed.

Example:
  archetype transform --input pattern --output archetypal
  archetype transform --input pattern --output archetypal --preset apl --whole-document
  archetype transform --rules my-rules.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := corpusConfig(cmd)
			if err != nil {
				return err
			}
			reportPath, _ := cmd.Flags().GetString("report")
			asJSON, _ := cmd.Flags().GetBool("json")
			watch, _ := cmd.Flags().GetBool("watch")
			rulesFile, _ := cmd.Flags().GetString("rules")

			set, err := loadRules(cmd)
			if err != nil {
				return err
			}

			run := func(ctx context.Context, set *rules.Set) error {
				runner := corpus.NewRunner(config, set, corpus.WithLogger(logger))
				report, err := runner.Run(ctx)
				if report != nil {
					printReport(cmd.OutOrStdout(), report, asJSON)
					if writeErr := writeReport(reportPath, report); writeErr != nil {
						return writeErr
					}
				}
				return err
			}

			ctx := cmd.Context()
			if err := run(ctx, set); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			if rulesFile == "" {
				return fmt.Errorf("--watch requires --rules")
			}
			return watchRules(ctx, rulesFile, run)
		},
	}

	cmd.Flags().String("input", "pattern", "Directory of pattern documents")
	cmd.Flags().String("output", "archetypal", "Directory for generated documents")
	cmd.Flags().String("section", string(extract.SectionTemplate), "Section to transform")
	cmd.Flags().Bool("whole-document", false, "Transform the full document body instead of one section")
	cmd.Flags().Bool("require-title", false, "Skip documents without an 'ID - Name' title line")
	cmd.Flags().StringSlice("include", corpus.DefaultConfig().Include, "Glob selecting documents (repeatable, ** supported)")
	cmd.Flags().Int("concurrency", corpus.DefaultConfig().Concurrency, "Documents processed in parallel")
	cmd.Flags().Bool("dry-run", false, "Report what would be generated without writing")
	cmd.Flags().String("prefix", corpus.DefaultConfig().OutputPrefix, "Output file name prefix")
	cmd.Flags().String("summary", corpus.DefaultConfig().SummaryName, "Summary file name (empty to disable)")
	cmd.Flags().String("report", "", "Write the JSON run report to this file")
	cmd.Flags().Bool("json", false, "Print the run report as JSON")
	cmd.Flags().Bool("watch", false, "Re-run whenever the --rules file changes")
	addRuleFlags(cmd)

	return cmd
}

func variantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "variants",
		Short: "Generate whole-document archetypal variants from a manifest",
		Long: `Transform each document listed in a manifest as a whole.

Manifest format:
  documents:
    - source: pattern/5-foldpatt.md
      output: apl_arc_5-fold_pattern_language.md
      title: 5-fold Pattern Language

Example:
  archetype variants --manifest variants.yaml --output archetypal --preset apl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath, _ := cmd.Flags().GetString("manifest")
			output, _ := cmd.Flags().GetString("output")
			input, _ := cmd.Flags().GetString("input")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			asJSON, _ := cmd.Flags().GetBool("json")

			if manifestPath == "" {
				return fmt.Errorf("--manifest flag is required")
			}

			manifest, err := corpus.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			set, err := loadRules(cmd)
			if err != nil {
				return err
			}

			config := corpus.DefaultConfig()
			config.InputDir = input
			config.OutputDir = output
			config.SummaryName = ""
			config.DryRun = dryRun

			runner := corpus.NewRunner(config, set, corpus.WithLogger(logger))
			report, err := runner.RunManifest(cmd.Context(), manifest)
			if report != nil {
				printReport(cmd.OutOrStdout(), report, asJSON)
			}
			return err
		},
	}

	cmd.Flags().String("manifest", "", "Manifest YAML listing documents (required)")
	cmd.Flags().String("input", "", "Base directory for manifest sources (default: manifest directory)")
	cmd.Flags().String("output", "archetypal", "Directory for generated variants")
	cmd.Flags().Bool("dry-run", false, "Report what would be generated without writing")
	cmd.Flags().Bool("json", false, "Print the run report as JSON")
	addRuleFlags(cmd)

	return cmd
}

func corpusConfig(cmd *cobra.Command) (corpus.Config, error) {
	config := corpus.DefaultConfig()

	config.InputDir, _ = cmd.Flags().GetString("input")
	config.OutputDir, _ = cmd.Flags().GetString("output")
	config.WholeDocument, _ = cmd.Flags().GetBool("whole-document")
	config.RequireTitle, _ = cmd.Flags().GetBool("require-title")
	config.Include, _ = cmd.Flags().GetStringSlice("include")
	config.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	config.DryRun, _ = cmd.Flags().GetBool("dry-run")
	config.OutputPrefix, _ = cmd.Flags().GetString("prefix")
	config.SummaryName, _ = cmd.Flags().GetString("summary")

	sectionName, _ := cmd.Flags().GetString("section")
	section, err := extract.ParseSectionName(sectionName)
	if err != nil {
		return config, err
	}
	config.Section = section

	if config.InputDir == "" {
		return config, fmt.Errorf("--input flag is required")
	}
	if config.OutputDir == "" {
		return config, fmt.Errorf("--output flag is required")
	}
	return config, nil
}

func printReport(w io.Writer, report *corpus.Report, asJSON bool) {
	if asJSON {
		fmt.Fprintln(w, corpus.FormatReportJSON(report))
		return
	}
	fmt.Fprint(w, corpus.FormatReport(report))
}

func writeReport(path string, report *corpus.Report) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(corpus.FormatReportJSON(report)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// watchRules re-runs fn with the reloaded rule set each time the rule file
// changes, until ctx is cancelled. Invalid edits are logged and the previous
// output is left in place.
func watchRules(ctx context.Context, rulesFile string, fn func(context.Context, *rules.Set) error) error {
	watcher := rules.NewWatcher(rulesFile, func(set *rules.Set, err error) {
		if err != nil {
			logger.Error("rule set reload failed", zap.Error(err))
			fmt.Fprintln(os.Stderr, "Rule set reload failed:", err)
			return
		}
		fmt.Printf("\nRule set %s changed, regenerating...\n", rulesFile)
		if err := fn(ctx, set); err != nil {
			logger.Error("regeneration failed", zap.Error(err))
			fmt.Fprintln(os.Stderr, "Regeneration failed:", err)
		}
	}, rules.WithWatchLogger(logger))

	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", rulesFile)
	<-ctx.Done()
	return nil
}
