package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Interact with the stored tool configuration",
	Long:  `Utilities for viewing and migrating the aws-tools config file ($HOME/.aws-tools/config.yaml)`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
