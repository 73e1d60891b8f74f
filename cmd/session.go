package cmd

import (
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KanoComputing/aws-tools/internal/cliconfig"
	"github.com/KanoComputing/aws-tools/internal/session"
)

var (
	sessionSerial   string
	sessionCode     string
	sessionDuration time.Duration
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Get MFA-backed session credentials for the shell",
	Long: `Exchanges an MFA code for temporary STS session credentials and prints
	them as export statements, so the calling shell can pick them up.`,
	Example: `  eval $(aws-tools session --code 123456)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serial := sessionSerial
		if serial == "" {
			toolCfg, err := cliconfig.Load()
			if err != nil {
				if !errors.Is(err, cliconfig.ErrNotFound) {
					return err
				}
			} else {
				serial = toolCfg.MFASerial
			}
		}
		if serial == "" {
			return fmt.Errorf("MFA device serial not specified (use --serial or store a default via the tool config)")
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading AWS configuration: %w", err)
		}

		creds, err := session.Acquire(cmd.Context(), sts.NewFromConfig(awsCfg), serial, sessionCode, sessionDuration)
		if err != nil {
			return err
		}

		log.Info().Time("expires", creds.Expires).Msg("session credentials issued")
		for _, line := range creds.ExportLines() {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringVarP(&sessionSerial, "serial", "s", "", "MFA device serial (ARN)")
	sessionCmd.Flags().StringVarP(&sessionCode, "code", "c", "", "Current MFA code")
	sessionCmd.Flags().DurationVar(&sessionDuration, "duration", 12*time.Hour, "Session lifetime")

	_ = sessionCmd.MarkFlagRequired("code")
}
