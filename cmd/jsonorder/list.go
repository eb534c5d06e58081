package main

import (
	"github.com/spf13/cobra"

	"jsonorder/internal/errors"
)

var (
	listLimit  int
	listOffset int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Long:  "List stored documents, newest first.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum number of documents (0 for all)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Number of documents to skip")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listLimit < 0 || listOffset < 0 {
		return errors.New(errors.InvalidInput, "--limit and --offset must not be negative", nil)
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.docs.List(cmd.Context(), listLimit, listOffset)
	if err != nil {
		return err
	}

	return a.print(&ListResponseCLI{Records: records})
}
