// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-crawler CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-crawler/internal/config"
	"github.com/pdiddy/paper-crawler/internal/observability"
	"github.com/pdiddy/paper-crawler/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured in PersistentPreRunE once flags and config are known.
var logger = zerolog.Nop()

// rootCmd is the base command for the paper-crawler CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-crawler",
	Short: "Collect journal articles from PubMed and flag them by keyword",
	Long: `paper-crawler searches PubMed for every article a journal published in a
year range, retrieves summaries and abstracts in batches, and marks the
articles whose title or abstract mentions one of the configured keywords.

The crawl subcommand writes a JSON report and, optionally, a CSL-YAML
bibliography, a SQLite archive entry and a Prometheus metrics file. The
archive subcommand lists runs and articles stored in that archive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := viper.GetString(config.KeyLogLevel)
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LoggingConfig{
			Level:  level,
			Format: viper.GetString(config.KeyLogFormat),
		})

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		if applied := config.ApplySecrets(viper.GetViper(), s); len(applied) > 0 {
			logger.Debug().Strs("secrets", secrets.Names(s)).Strs("keys", applied).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-crawler.yaml or ~/.config/paper-crawler/paper-crawler.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	config.SetDefaults(viper.GetViper(), version)
}

func initConfig() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(config.Name)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", config.Name))
		}
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "warning: reading config file:", err)
	}
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
