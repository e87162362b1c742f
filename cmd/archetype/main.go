package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coolbeans/archetype/pkg/rules"
)

var version = "0.1.0"

var (
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "archetype",
		Short: "Archetypal pattern generator",
		Long: `Archetype turns pattern documents into archetypal patterns.

Domain-specific vocabulary in each pattern's Template section is replaced
with {{placeholder}} tokens, and every generated document carries a table
mapping its placeholders to example terms in the Physical, Social,
Conceptual and Psychic domains.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			built, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = built
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(transformCmd())
	rootCmd.AddCommand(variantsCmd())
	rootCmd.AddCommand(applyCmd())
	rootCmd.AddCommand(sectionsCmd())
	rootCmd.AddCommand(variationsCmd())
	rootCmd.AddCommand(rulesCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// addRuleFlags registers the flags selecting a rule set.
func addRuleFlags(cmd *cobra.Command) {
	cmd.Flags().String("rules", "", "Rule set YAML file (overrides --preset)")
	cmd.Flags().String("preset", rules.DefaultPreset, "Built-in rule set")
}

// loadRules resolves the rule set named by a command's flags.
func loadRules(cmd *cobra.Command) (*rules.Set, error) {
	rulesFile, _ := cmd.Flags().GetString("rules")
	preset, _ := cmd.Flags().GetString("preset")

	set, err := rules.Resolve(rulesFile, preset)
	if err != nil {
		return nil, err
	}

	for _, shadow := range set.Shadowed() {
		logger.Warn("rule term can never fire",
			zap.String("term", shadow.Term),
			zap.String("placeholder", shadow.Placeholder),
			zap.String("shadowed_by", shadow.ShadowedBy))
	}
	logger.Debug("loaded rule set",
		zap.String("name", set.Name()),
		zap.String("version", set.Version()),
		zap.Int("rules", set.Len()))
	return set, nil
}
