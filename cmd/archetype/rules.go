package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coolbeans/archetype/pkg/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate substitution rule sets",
	}

	cmd.AddCommand(rulesValidateCmd())
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesListCmd())

	return cmd
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a rule set file, or every built-in rule set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				set, err := rules.Load(args[0])
				return reportValidation(args[0], set, err)
			}
			for _, name := range rules.PresetNames() {
				set, err := rules.Preset(name)
				if err := reportValidation("preset:"+name, set, err); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func reportValidation(source string, set *rules.Set, err error) error {
	if err != nil {
		var configErr *rules.ConfigError
		if errors.As(err, &configErr) {
			fmt.Printf("✗ %s: %d problem(s)\n", source, len(configErr.Errors))
			for _, problem := range configErr.Errors {
				fmt.Printf("  - %s\n", problem.Error())
			}
		}
		return err
	}

	fmt.Printf("✓ %s: %s", source, set.Name())
	if set.Version() != "" {
		fmt.Printf(" %s", set.Version())
	}
	fmt.Printf(" (%d rules)\n", set.Len())

	for _, shadow := range set.Shadowed() {
		fmt.Printf("  warning: term %q of %s is already claimed by %s\n",
			shadow.Term, shadow.Placeholder, shadow.ShadowedBy)
	}
	return nil
}

func rulesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective rule set as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadRules(cmd)
			if err != nil {
				return err
			}
			data, err := rules.Marshal(set.Spec())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	addRuleFlags(cmd)
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in rule sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range rules.PresetNames() {
				set, err := rules.Preset(name)
				if err != nil {
					return err
				}
				marker := " "
				if name == rules.DefaultPreset {
					marker = "*"
				}
				fmt.Printf("%s %-6s %-8s %2d rules  %s\n", marker, name, set.Version(), set.Len(), firstLine(set.Description()))
			}
			return nil
		},
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
