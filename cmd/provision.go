package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// provisionCmd simulates a login against a running server, mainly for
// trying out rule configurations.
var provisionCmd = &cobra.Command{
	Use:   "provision USERNAME",
	Short: "Provision an identity as if it had just authenticated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		attrFlags, _ := cmd.Flags().GetStringArray("attr")

		attributes := make(map[string]any, len(attrFlags))
		for _, raw := range attrFlags {
			key, value, found := strings.Cut(raw, "=")
			if !found {
				return fmt.Errorf("invalid attribute '%s', want key=value", raw)
			}
			attributes[key] = value
		}

		identity, err := cli.Provision(cmd.Context(), args[0], source, attributes)
		if err != nil {
			return err
		}

		log.Info().Msgf("%s provisioned '%s'", greenCheck, identity.Username)
		fmt.Println(bold("\n── Identity ──"))
		fmt.Printf("  %s:  %s\n", faint("Username"), identity.Username)
		fmt.Printf("  %s:   %s\n", faint("Display"), identity.DisplayName)
		fmt.Printf("  %s:     %s\n", faint("Email"), identity.Email)
		fmt.Printf("  %s:     %v\n", faint("Roles"), identity.Roles.Values())
		fmt.Printf("  %s:    %v\n", faint("Groups"), identity.Groups.Values())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)

	provisionCmd.Flags().String("source", "LDAP", "Provisioning source")
	provisionCmd.Flags().StringArray("attr", nil, "Released attribute as key=value (repeatable)")
}
