package cmd

import (
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/KanoComputing/aws-tools/internal/s3tree"
)

var (
	s3TreePrefix string
	s3TreeDepth  int
)

var s3TreeCmd = &cobra.Command{
	Use:   "tree BUCKET",
	Short: "Render a bucket's key space as a tree",
	Example: `  aws-tools s3 tree my-bucket
  aws-tools s3 tree my-bucket --prefix backups/ --depth 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket := args[0]
		if bucket == "" {
			return fmt.Errorf("bucket name cannot be empty")
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading AWS configuration: %w", err)
		}

		root, err := s3tree.Build(cmd.Context(), s3.NewFromConfig(awsCfg), bucket, s3TreePrefix)
		if err != nil {
			return err
		}

		s3tree.Render(os.Stdout, root, s3TreeDepth)
		return nil
	},
}

func init() {
	s3Cmd.AddCommand(s3TreeCmd)

	s3TreeCmd.Flags().StringVar(&s3TreePrefix, "prefix", "", "Only list keys under this prefix")
	s3TreeCmd.Flags().IntVar(&s3TreeDepth, "depth", 0, "Maximum tree depth (0 = unlimited)")
}
