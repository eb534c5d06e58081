package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jsonorder/internal/docstore"
	"jsonorder/internal/errors"
	"jsonorder/internal/orderedjson"
)

var exportAs string

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a document's order-preserved form",
	Long: `Print the order-preserved form of a stored document as indented JSON or as
YAML. Both keep the member order of the original text.

Examples:
  jsonorder export 0b6c4f1e-... > movies.json
  jsonorder export 0b6c4f1e-... --as yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportAs, "as", "json", "Export format: json, yaml")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportAs != "json" && exportAs != "yaml" {
		return errors.New(errors.InvalidInput, fmt.Sprintf("unknown export format %q", exportAs), nil)
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

	out, err := exportDocument(rec.OrderPreserved, exportAs, a.cfg.Output.Indent)
	if err != nil {
		return err
	}
	_, err = a.out.Write(out)
	return err
}

// exportDocument renders order-preserved JSON text as indented JSON or YAML.
func exportDocument(text, as, indent string) ([]byte, error) {
	v, err := orderedjson.ParseString(text)
	if err != nil {
		return nil, errors.New(errors.InternalError, "stored order-preserved form is not valid JSON", err)
	}

	var out []byte
	if as == "yaml" {
		out, err = orderedjson.ToYAML(v)
	} else {
		out, err = orderedjson.MarshalIndent(v, "", indent)
		out = append(out, '\n')
	}
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to render document", err)
	}
	return out, nil
}
