package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

// newLocatorsCmd prints the effective locator table, including overrides
// from the config file, in the same YAML shape the config accepts.
func newLocatorsCmd() *cobra.Command {
	var showXPath bool

	locatorsCmd := &cobra.Command{
		Use:   "locators",
		Short: "Prints the page locator table in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			table, err := cfg.LocatorTable()
			if err != nil {
				return err
			}

			if showXPath {
				return printXPaths(cmd, table)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string]map[locator.Target]locator.Rule{"locators": table.Rules()}); err != nil {
				return fmt.Errorf("encode locators: %w", err)
			}
			return enc.Close()
		},
	}
	locatorsCmd.Flags().BoolVar(&showXPath, "xpath", false, "print the compiled XPath of every target instead")
	return locatorsCmd
}

func printXPaths(cmd *cobra.Command, table *locator.Table) error {
	rules := table.Rules()
	targets := make([]string, 0, len(rules))
	for t := range rules {
		targets = append(targets, string(t))
	}
	sort.Strings(targets)

	for _, name := range targets {
		rule := rules[locator.Target(name)]
		xp, err := rule.XPath()
		if err != nil {
			return err
		}
		if rule.Scoped() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (within %s): %s\n", name, rule.Within, xp)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, xp)
	}
	return nil
}
