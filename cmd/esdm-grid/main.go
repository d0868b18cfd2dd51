// Package main provides esdm-grid, a command-line utility to inspect grid
// metadata documents, convert them between JSON and CBOR, preview regular
// bin layouts and hex-dump raw document bytes.
package main

import (
	"fmt"
	"os"

	"github.com/ESiWACE/esdm-sub000/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg = config.Default()

	rootCmd = &cobra.Command{
		Use:   "esdm-grid",
		Short: "inspect and convert ESDM grid documents",
		Long: `esdm-grid works on the metadata documents that describe grids of
fragments: it prints their cell tree, converts between JSON and CBOR and
previews how a dataset of a given shape is binned into regular fragments.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "", "log level, overrides the config")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(binsCmd)
	rootCmd.AddCommand(dumpCmd)
}

// loadConfig reads the configuration before any subcommand runs.
func loadConfig(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString(config.KeyLogLevel); level != "" {
		loaded.LogLevel = level
	}
	lvl, err := loaded.Level()
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	cfg = loaded
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
