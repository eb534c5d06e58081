package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"jsonorder/internal/config"
	"jsonorder/internal/errors"
)

var configShowDiff bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage jsonorder configuration",
	Long:  "View and manage jsonorder configuration stored in .jsonorder/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after defaults, the config file,
environment variables and global flags are applied.

Examples:
  jsonorder config show                # Pretty-print current config
  jsonorder config show --format json  # JSON output
  jsonorder config show --diff         # Only show non-default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	RunE:  runConfigEnv,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to .jsonorder/config.json",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	result, err := loadConfig()
	if err != nil {
		return err
	}
	configureColor(result.Config.Output.Color, cmd.OutOrStdout())

	current, err := toMap(result.Config)
	if err != nil {
		return err
	}
	defaults, err := toMap(config.DefaultConfig())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if OutputFormat(result.Config.Output.Format) == FormatJSON {
		if configShowDiff {
			current = computeDiff(current, defaults)
		}
		output, err := formatJSON(ConfigShowResponse{
			ConfigPath:   result.ConfigPath,
			UsedDefaults: result.UsedDefaults,
			EnvOverrides: result.EnvOverrides,
			Config:       current,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, output)
		return err
	}

	_, err = fmt.Fprint(out, formatConfigHuman(result, flatten(current), flatten(defaults), configShowDiff))
	return err
}

func formatConfigHuman(result *config.LoadResult, current, defaults map[string]string, diffOnly bool) string {
	var b strings.Builder

	b.WriteString(headerColor.Sprint("jsonorder Configuration") + "\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")

	if result.UsedDefaults {
		b.WriteString("Source: defaults (no config file found)\n")
	} else if result.ConfigPath != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", result.ConfigPath))
	}

	if len(result.EnvOverrides) > 0 {
		b.WriteString("\nEnvironment Overrides:\n")
		for _, ov := range result.EnvOverrides {
			b.WriteString(fmt.Sprintf("  %s=%s → %s\n", ov.Var, ov.Value, ov.Key))
		}
	}
	b.WriteString("\n")

	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	shown := 0
	for _, k := range keys {
		value, def := current[k], defaults[k]
		if diffOnly && value == def {
			continue
		}
		line := fmt.Sprintf("%s: %s", k, value)
		if value != def {
			line += dimColor.Sprintf(" (default: %s)", def)
		}
		b.WriteString(line + "\n")
		shown++
	}
	if diffOnly && shown == 0 {
		b.WriteString("  (no modifications - using all defaults)\n")
	}

	return b.String()
}

func runConfigEnv(cmd *cobra.Command, args []string) error {
	defaults, err := toMap(config.DefaultConfig())
	if err != nil {
		return err
	}
	flat := flatten(defaults)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Supported jsonorder Environment Variables")
	fmt.Fprintln(out, strings.Repeat("─", 50))
	fmt.Fprintln(out)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-36s %s (default: %s)\n", config.EnvVarName(k), k, flat[k])
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Example usage:")
	fmt.Fprintln(out, "  JSONORDER_STORAGE_PATH=/tmp/docs.db jsonorder list")
	fmt.Fprintln(out, "  JSONORDER_LOGGING_LEVEL=debug jsonorder store doc.json")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return errors.New(errors.InternalError, "failed to get working directory", err)
	}
	if err := config.DefaultConfig().Save(dir); err != nil {
		return errors.New(errors.ConfigInvalid, "failed to write configuration", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s/config.json\n", config.DefaultDir)
	return nil
}

func toMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to marshal config", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.InternalError, "failed to unmarshal config", err)
	}
	return m, nil
}

// flatten turns nested maps into dotted keys with printable values.
func flatten(m map[string]interface{}) map[string]string {
	out := make(map[string]string)
	flattenInto(m, "", out)
	return out
}

func flattenInto(m map[string]interface{}, prefix string, out map[string]string) {
	for k, v := range m {
		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(nested, prefix+k+".", out)
			continue
		}
		if s, ok := v.(string); ok {
			out[prefix+k] = fmt.Sprintf("%q", s)
			continue
		}
		out[prefix+k] = fmt.Sprintf("%v", v)
	}
}

func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]
		if !exists {
			diff[key] = currentVal
			continue
		}

		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})

		if currentIsMap && defaultIsMap {
			if nested := computeDiff(currentMap, defaultMap); len(nested) > 0 {
				diff[key] = nested
			}
		} else if fmt.Sprintf("%v", currentVal) != fmt.Sprintf("%v", defaultVal) {
			diff[key] = currentVal
		}
	}
	return diff
}
