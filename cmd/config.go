/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PageWing/internal/config"
)

var (
	configShowSecrets bool
	configInitForce   bool
	configInitPath    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
	Long: `Show the effective configuration or write a starter file.

Settings come from (highest first): flags, PAGEWING_* environment variables,
the legacy variables API_SECRET, GITHUB_TOKEN, GITHUB_USERNAME and
AIPIPE_BASE_URL, a .env file, .pagewing.yaml, and built-in defaults.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if used := viper.ConfigFileUsed(); used != "" {
			cmd.PrintErrf("# loaded from %s\n", used)
		}
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), appConfig.Document(!configShowSecrets))
		}
		data, err := appConfig.MarshalDocument(!configShowSecrets)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to a file",
	Example: `  pagewing config init
  pagewing config init --path ./deploy/pagewing.yaml --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			dir, err := config.GetGlobalConfigDir()
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			path = filepath.Join(filepath.Dir(dir), config.ConfigName+".yaml")
		}
		if err := config.WriteFile(afero.NewOsFs(), path, appConfig, configInitForce); err != nil {
			return err
		}
		cmd.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
	configShowCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print secrets instead of ********")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "file to write (default $HOME/.pagewing.yaml)")
}
