package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Issue, verify and send one-time MFA challenges",
}

var challengeIssueCmd = &cobra.Command{
	Use:   "issue USERNAME",
	Short: "Issue a one-time code for a principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}
		code, err := cli.IssueChallenge(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		log.Info().Msgf("%s issued code for '%s': %s", greenCheck, args[0], bold(code))
		return nil
	},
}

var challengeVerifyCmd = &cobra.Command{
	Use:   "verify USERNAME CODE",
	Short: "Verify and consume a one-time code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}
		verified, err := cli.VerifyChallenge(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if verified {
			log.Info().Msgf("%s code verified", greenCheck)
		} else {
			log.Warn().Msgf("%s code rejected", redCross)
		}
		return nil
	},
}

var challengeSendCmd = &cobra.Command{
	Use:   "send USERNAME",
	Short: "Issue a code and deliver it via sms or email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}
		channel, _ := cmd.Flags().GetString("channel")
		destination, _ := cmd.Flags().GetString("to")

		if err := cli.SendChallenge(cmd.Context(), args[0], channel, destination); err != nil {
			return err
		}
		log.Info().Msgf("%s challenge sent via %s", greenCheck, channel)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(challengeCmd)
	challengeCmd.AddCommand(challengeIssueCmd)
	challengeCmd.AddCommand(challengeVerifyCmd)
	challengeCmd.AddCommand(challengeSendCmd)

	challengeSendCmd.Flags().String("channel", "sms", "Delivery channel (sms, email)")
	challengeSendCmd.Flags().String("to", "", "Destination override (defaults to the identity's contact)")
}
