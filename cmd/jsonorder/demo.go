package main

import (
	"github.com/spf13/cobra"

	"jsonorder/internal/compare"
	"jsonorder/internal/errors"
	"jsonorder/internal/orderedjson"
)

// sampleMovies has member order title, genre, locations, which sorting
// by key does not keep.
const sampleMovies = `{
    "movies": [
        {
            "title": "Inception",
            "genre": "Sci-Fi",
            "locations": ["Cinema City Berlin", "Movieplex Hamburg"]
        },
        {
            "title": "The Grand Budapest Hotel",
            "genre": "Comedy",
            "locations": ["Filmtheater München", "Kino Köln"]
        }
    ]
}`

var demoPersist bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Store and fetch a sample document",
	Long: `Store a sample document of two movies, fetch it back and print the original
text next to the normalized and order-preserved forms.

The demo uses a throwaway in-memory database unless --persist is given.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVar(&demoPersist, "persist", false, "Store the sample in the configured database")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, !demoPersist)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	id, err := a.docs.Store(ctx, sampleMovies)
	if err != nil {
		return err
	}
	rec, err := a.docs.Fetch(ctx, id)
	if err != nil {
		return err
	}
	report, err := compare.Compare(rec)
	if err != nil {
		return err
	}

	normalized, err := indentForm(rec.Normalized, a.cfg.Output.Indent)
	if err != nil {
		return err
	}
	ordered, err := indentForm(rec.OrderPreserved, a.cfg.Output.Indent)
	if err != nil {
		return err
	}

	return a.print(&DemoResponseCLI{
		ID:                   rec.ID,
		Original:             rec.Raw,
		Normalized:           normalized,
		OrderPreserved:       ordered,
		NormalizedKeepsOrder: report.NormalizedKeepsOrder,
	})
}

// indentForm pretty-prints a stored form without changing its member order.
func indentForm(text, indent string) (string, error) {
	v, err := orderedjson.ParseString(text)
	if err != nil {
		return "", errors.New(errors.InternalError, "stored form is not valid JSON", err)
	}
	out, err := orderedjson.MarshalIndent(v, "", indent)
	if err != nil {
		return "", errors.New(errors.InternalError, "failed to indent form", err)
	}
	return string(out), nil
}
