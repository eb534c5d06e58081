package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jsonorder/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := FormatHuman
		if outputFormat != "" {
			format = OutputFormat(outputFormat)
		}

		d := version.Get()
		output, err := FormatResponse(&d, format)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
