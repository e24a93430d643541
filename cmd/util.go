package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"github.com/abusaleh34/secure-cas-commercial/pkg/client"
)

var (
	greenCheck = color.GreenString("✓")
	redCross   = color.RedString("✗")

	bold  = color.New(color.Bold).Sprint
	faint = color.New(color.Faint).Sprint
)

func getClient() (*client.Client, error) {
	server := viper.GetString(ServerAddrKey)
	if server == "" {
		return nil, fmt.Errorf("server address not configured, provide via --server or SECURECAS_ADDR")
	}
	return client.New(server), nil
}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	t.SetStyle(table.StyleLight)
	return t
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func yesNo(v bool) string {
	if v {
		return greenCheck + " yes"
	}
	return redCross + " no"
}
