package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/QuangTung97/restfire"
)

func (c *cli) newRulesCommand() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Read or replace the security rules (administrative credential required)",
	}

	rulesCmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the security rules document",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := c.openDatabase(cmd)
				if err != nil {
					return err
				}
				defer db.Close()

				rules, err := db.SecurityRules().Get().Wait(cmd.Context())
				if err != nil {
					return err
				}
				return c.printJSON(cmd, rules)
			},
		},
		&cobra.Command{
			Use:   "set <file>",
			Short: `Replace the security rules with a {"rules": {...}} document read from a file`,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}

				rules := &restfire.Rules{}
				if err := json.Unmarshal(data, rules); err != nil {
					return fmt.Errorf("invalid rules file %s: %w", args[0], err)
				}
				if rules.Rules() == nil {
					return fmt.Errorf("rules file %s has no \"rules\" object", args[0])
				}

				db, err := c.openDatabase(cmd)
				if err != nil {
					return err
				}
				defer db.Close()

				result, err := db.SecurityRules().Set(rules).Wait(cmd.Context())
				if err != nil {
					return err
				}
				return c.printJSON(cmd, result)
			},
		},
	)
	return rulesCmd
}
