package main

import (
	"github.com/spf13/cobra"

	"jsonorder/internal/compare"
	"jsonorder/internal/docstore"
)

var compareCmd = &cobra.Command{
	Use:   "compare <id>",
	Short: "Compare the stored forms of a document",
	Long: `Check a stored document's forms against its raw text: whether the
order-preserved form matches in values and member order, whether the normalized
form holds the same values, and where normalization moved members.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.docs.Fetch(cmd.Context(), docstore.RecordID(args[0]))
	if err != nil {
		return err
	}

	report, err := compare.Compare(rec)
	if err != nil {
		return err
	}

	return a.print(&CompareResponseCLI{Report: report})
}
