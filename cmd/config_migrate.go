package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KanoComputing/aws-tools/internal/cliconfig"
)

var configMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the stored tool configuration to the current schema",
	Long: `Loading migrates old config files in memory automatically; this command
	additionally rewrites the file on disk, so older schema versions stop
	lingering around.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cliconfig.GetConfigPath()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading tool config '%s': %w", path, err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing tool config '%s': %w", path, err)
		}

		migrated, from, err := cliconfig.Migrate(raw)
		if err != nil {
			return err
		}
		if from == cliconfig.CurrentSchemaVersion {
			log.Info().Msgf("config is already at schema version %d, nothing to do", from)
			return nil
		}

		var cfg cliconfig.Config
		if err := mapstructure.Decode(migrated, &cfg); err != nil {
			return fmt.Errorf("decoding migrated config: %w", err)
		}
		if err := cliconfig.SaveTo(path, &cfg); err != nil {
			return err
		}

		log.Info().Msgf("%s migrated config from schema version %d to %d",
			greenCheck, from, cliconfig.CurrentSchemaVersion)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configMigrateCmd)
}
