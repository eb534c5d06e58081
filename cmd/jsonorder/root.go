package main

import (
	"github.com/spf13/cobra"

	"jsonorder/internal/version"
)

// Global flags. Empty values defer to the loaded configuration.
var (
	configPath   string
	dbPath       string
	logLevel     string
	outputFormat string
	colorMode    string
)

var rootCmd = &cobra.Command{
	Use:   "jsonorder",
	Short: "jsonorder - store JSON documents without losing member order",
	Long: `jsonorder stores every JSON document in three forms: the raw text exactly as
received, a normalized form in SQLite's JSON type, and an order-preserved
serialization whose object members keep the order of the original text.

Fetching a document returns all three, so the effect of normalization on member
order can be inspected side by side.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("jsonorder version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: .jsonorder/config.{json,yaml,toml})")
	flags.StringVar(&dbPath, "db", "", "SQLite database path (overrides storage.path)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&outputFormat, "format", "", "Output format: human, json")
	flags.StringVar(&colorMode, "color", "", "Colour output: auto, always, never")
}
