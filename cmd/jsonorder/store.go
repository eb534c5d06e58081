package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jsonorder/internal/errors"
)

var storeCmd = &cobra.Command{
	Use:   "store [file|-]",
	Short: "Store a JSON document",
	Long: `Parse a JSON document and store its raw, normalized and order-preserved forms
in one transaction. The document is read from the named file, or from standard
input when the argument is "-" or omitted.

Examples:
  jsonorder store movies.json
  echo '{"b":1,"a":2}' | jsonorder store`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStore,
}

func init() {
	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	raw, err := readInput(cmd, name)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.docs.Store(cmd.Context(), raw)
	if err != nil {
		return err
	}
	a.logger.Info("Stored document", "op", "store", "id", string(id), "source", name)

	return a.print(&StoreResponseCLI{ID: id, Bytes: len(raw)})
}

// readInput reads a whole document from a file or, for "-", from stdin.
func readInput(cmd *cobra.Command, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", errors.New(errors.InvalidInput, fmt.Sprintf("failed to read %s", name), err)
	}
	return string(data), nil
}
