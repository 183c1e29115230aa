/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/josephgoksu/PageWing/internal/config"
	"github.com/josephgoksu/PageWing/internal/logger"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables debug logging and detailed errors.
	verbose bool
	// version is the application version, overridden at build time.
	version = "0.1.0"

	// Populated by PersistentPreRunE for every subcommand.
	appConfig *config.Config
	appLog    = zap.NewNop()
	logLevel  = zap.NewAtomicLevel()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagewing",
	Short: "PageWing - LLM-built static sites, published round by round",
	Long: `PageWing turns a task brief into a static web application.

Each round asks a language model for the site's files, merges them with the
previous round, commits the result to a GitHub repository, serves it with
GitHub Pages and reports the revision to an evaluation endpoint.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = appLog.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !alreadyReported(err) {
			PrintError(err.Error(), err)
		}
		os.Exit(1)
	}
}

// GetVersion returns the application version.
func GetVersion() string {
	return version
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.pagewing.yaml or $HOME/.pagewing.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "print machine-readable JSON")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// initApp loads configuration and builds the logger shared by subcommands.
func initApp(cmd *cobra.Command, args []string) error {
	logger.SetVersion(version)
	logger.SetCommand(cmd.CommandPath())

	if err := config.Init(cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	if err := logLevel.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	log, err := logger.NewWithLevel(logger.Options{Format: cfg.Log.Format}, logLevel)
	if err != nil {
		return err
	}

	logger.SetBasePath(config.CrashLogBase())
	appConfig = cfg
	appLog = log
	return nil
}
