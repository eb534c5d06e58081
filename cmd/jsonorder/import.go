package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"jsonorder/internal/docstore"
	"jsonorder/internal/errors"
)

var (
	importPattern     string
	importConcurrency int
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Store every JSON file in a directory",
	Long: `Store each file in a directory matching a glob pattern. Files are stored
independently and concurrently; a file that fails does not stop the others.

Examples:
  jsonorder import ./fixtures
  jsonorder import ./fixtures --pattern '*.geojson' --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importPattern, "pattern", "", "File glob (default: import.pattern)")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 0, "Concurrent writers (default: import.concurrency)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	dir := args[0]

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	pattern := a.cfg.Import.Pattern
	if importPattern != "" {
		pattern = importPattern
	}
	if importConcurrency > 0 {
		a.docs = a.newAdapter(importConcurrency)
	}

	inputs, err := collectInputs(dir, pattern)
	if err != nil {
		return err
	}
	a.logger.Info("Importing documents", "dir", dir, "files", len(inputs))

	results := a.docs.StoreAll(cmd.Context(), inputs)

	resp := &ImportResponseCLI{Dir: dir}
	var firstErr error
	for _, r := range results {
		item := ImportResultCLI{File: r.Name, ID: r.ID}
		if r.Err != nil {
			item.Code = errors.CodeOf(r.Err)
			item.Error = r.Err.Error()
			resp.Failed++
			if firstErr == nil {
				firstErr = r.Err
			}
		} else {
			resp.Stored++
		}
		resp.Results = append(resp.Results, item)
	}

	if err := a.print(resp); err != nil {
		return err
	}
	if firstErr != nil {
		return errors.New(errors.CodeOf(firstErr),
			fmt.Sprintf("%d of %d file(s) failed to import", resp.Failed, len(results)), firstErr)
	}
	return nil
}

// collectInputs reads every regular file in dir matching pattern, sorted by name.
func collectInputs(dir, pattern string) ([]docstore.Input, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, errors.New(errors.InvalidInput, fmt.Sprintf("invalid pattern %q", pattern), err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(errors.InvalidInput, fmt.Sprintf("failed to read directory %s", dir), err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	inputs := make([]docstore.Input, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.New(errors.InvalidInput, fmt.Sprintf("failed to read %s", name), err)
		}
		inputs = append(inputs, docstore.Input{Name: name, Raw: string(data)})
	}
	return inputs, nil
}
