package cmd

import "github.com/spf13/cobra"

var s3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "S3 utilities",
}

func init() {
	rootCmd.AddCommand(s3Cmd)
}
