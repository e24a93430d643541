package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abusaleh34/secure-cas-commercial/internal/config"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect provisioning rules",
}

var rulesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the provisioning rules from the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return fmt.Errorf("no configuration file given (use --config)")
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		t := newTable(table.Row{
			"Order", "Name", "Enabled", "Source", "Condition", "Roles", "Groups",
		})
		for _, rule := range cfg.Rules {
			condition := string(rule.Condition)
			if rule.ConditionAttribute != "" {
				condition += " " + color.CyanString(rule.ConditionAttribute)
			}
			if rule.ConditionValue != "" {
				condition += " = " + truncate(rule.ConditionValue, 30)
			}

			t.AppendRow(table.Row{
				rule.Order,
				color.New(color.Bold).Sprint(rule.Name),
				yesNo(rule.Enabled),
				rule.Source,
				condition,
				rule.Roles.Values(),
				rule.Groups.Values(),
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
}
