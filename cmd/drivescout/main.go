// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the drivescout CLI: it locates files
// in Google Drive from an Excel reference list, writes a per-company
// Found/Not-Found report, and optionally downloads the matches.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/drivescout/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the drivescout CLI.
var rootCmd = &cobra.Command{
	Use:   "drivescout",
	Short: "Locate and download Drive files from an Excel reference list",
	Long: `drivescout reads an Excel workbook with "filename" and "company" columns,
searches Google Drive for each filename, and writes a per-company
Found/Not-Found report workbook. Found files can be downloaded into
company-named subfolders, and runs can be recorded in a local ledger.

The pipeline is headless: locate runs load, resolve, report, and an
optional download pass in one invocation; history queries past runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./drivescout.yaml or ~/.config/drivescout/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("drivescout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "drivescout"))
		}
	}

	viper.SetEnvPrefix("DRIVESCOUT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
