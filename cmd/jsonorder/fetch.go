package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jsonorder/internal/docstore"
	"jsonorder/internal/errors"
)

const (
	formAll        = "all"
	formRaw        = "raw"
	formNormalized = "normalized"
	formOrdered    = "ordered"
)

var fetchForm string

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Fetch the stored forms of a document",
	Long: `Fetch a stored document by ID and print its raw, normalized and
order-preserved forms.

Examples:
  jsonorder fetch 0b6c4f1e-...               # All three forms
  jsonorder fetch 0b6c4f1e-... --form raw    # Only the raw text, undecorated`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchForm, "form", formAll, "Form to print: all, raw, normalized, ordered")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	switch fetchForm {
	case formAll, formRaw, formNormalized, formOrdered:
	default:
		return errors.New(errors.InvalidInput, fmt.Sprintf("unknown form %q", fetchForm), nil)
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.docs.Fetch(cmd.Context(), docstore.RecordID(args[0]))
	if err != nil {
		return err
	}

	return a.print(recordResponse(rec, fetchForm))
}

func recordResponse(rec *docstore.Record, form string) *RecordResponseCLI {
	resp := &RecordResponseCLI{ID: rec.ID, CreatedAt: rec.CreatedAt}
	if form == formAll || form == formRaw {
		resp.Raw = rec.Raw
	}
	if form == formAll || form == formNormalized {
		resp.Normalized = rec.Normalized
	}
	if form == formAll || form == formOrdered {
		resp.OrderPreserved = rec.OrderPreserved
	}
	if form != formAll {
		resp.Form = form
	}
	return resp
}
