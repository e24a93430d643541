package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abusaleh34/secure-cas-commercial/internal/config"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			return fmt.Errorf("no configuration file given (use --config)")
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		log.Info().Msgf("%s configuration is valid (%d rules)", greenCheck, len(cfg.Rules))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
