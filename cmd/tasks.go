package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and trigger background tasks",
	Long:  `List background tasks registered on the server, follow their logs and trigger manual runs.`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
