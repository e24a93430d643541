package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abusaleh34/secure-cas-commercial/pkg/client"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the provisioning and MFA audit trail",
}

var auditRecordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List recent audit records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetUint("limit")
		principal, _ := cmd.Flags().GetString("principal")
		action, _ := cmd.Flags().GetString("action")

		records, err := cli.ListAuditRecords(cmd.Context(), client.ListAuditRecordsOpts{
			Limit:     limit,
			Principal: principal,
			Action:    action,
		})
		if err != nil {
			return err
		}

		t := newTable(table.Row{"Time", "Action", "Principal", "Success", "Details"})
		for _, r := range records {
			t.AppendRow(table.Row{
				r.Time.Format("2006-01-02 15:04:05"),
				r.Action,
				bold(r.Principal),
				yesNo(r.Success),
				truncate(r.Details, 60),
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRecordsCmd)

	auditRecordsCmd.Flags().Uint("limit", 50, "Maximum number of records to return")
	auditRecordsCmd.Flags().String("principal", "", "Filter by principal username")
	auditRecordsCmd.Flags().String("action", "", "Filter by action code")
}
