package cmd

import (
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abusaleh34/secure-cas-commercial/internal/core"
	"github.com/abusaleh34/secure-cas-commercial/pkg/client"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage provisioned identities on a running server",
}

var usersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List provisioned identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		opts := client.ListUsersOpts{}
		opts.Source, _ = cmd.Flags().GetString("source")
		opts.Query, _ = cmd.Flags().GetString("query")
		if cmd.Flags().Changed("active") {
			active, _ := cmd.Flags().GetBool("active")
			opts.Active = &active
		}

		users, err := cli.ListUsers(cmd.Context(), opts)
		if err != nil {
			return err
		}

		renderUsers(users)
		return nil
	},
}

var usersInactiveCmd = &cobra.Command{
	Use:   "inactive",
	Short: "List identities without a recent login",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		days, _ := cmd.Flags().GetInt("days")
		users, err := cli.InactiveUsers(cmd.Context(), days)
		if err != nil {
			return err
		}

		log.Info().Msgf("%d identities inactive for more than %d days", len(users), days)
		renderUsers(users)
		return nil
	},
}

var usersDeactivateCmd = &cobra.Command{
	Use:   "deactivate USERNAME",
	Short: "Deactivate an identity (history is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}
		if err := cli.DeactivateUser(cmd.Context(), args[0]); err != nil {
			return err
		}
		log.Info().Msgf("%s deactivated '%s'", greenCheck, color.New(color.Bold).Sprint(args[0]))
		return nil
	},
}

var usersActivateCmd = &cobra.Command{
	Use:   "activate USERNAME",
	Short: "Reactivate a previously deactivated identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}
		if err := cli.ActivateUser(cmd.Context(), args[0]); err != nil {
			return err
		}
		log.Info().Msgf("%s activated '%s'", greenCheck, color.New(color.Bold).Sprint(args[0]))
		return nil
	},
}

func renderUsers(users []core.Identity) {
	t := newTable(table.Row{
		"Username", "Display Name", "Email", "Source", "Active", "Roles", "Last Login",
	})
	for _, user := range users {
		lastLogin := "never"
		if !user.LastLoginAt.IsZero() {
			lastLogin = user.LastLoginAt.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{
			color.New(color.Bold).Sprint(user.Username),
			user.DisplayName,
			user.Email,
			user.Source,
			yesNo(user.Active),
			user.Roles.Values(),
			lastLogin,
		})
	}
	t.Render()
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersInactiveCmd)
	usersCmd.AddCommand(usersDeactivateCmd)
	usersCmd.AddCommand(usersActivateCmd)

	usersListCmd.Flags().String("source", "", "Filter by provisioning source")
	usersListCmd.Flags().String("query", "", "Substring filter on username, email, display name")
	usersListCmd.Flags().Bool("active", true, "Filter by active state")

	usersInactiveCmd.Flags().IntP("days", "d", 90, "Inactivity threshold in days")
}
