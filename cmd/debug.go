package cmd

import "github.com/spf13/cobra"

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debugging commands",
	Long:  `Commands for inspecting what aws-tools parses out of its inputs`,
}

func init() {
	rootCmd.AddCommand(debugCmd)
}
