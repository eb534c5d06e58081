// Package compare reports how the stored forms of a document relate to the
// text that was originally submitted.
package compare

import (
	"slices"

	jsonpatch "github.com/evanphx/json-patch"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"jsonorder/internal/docstore"
	"jsonorder/internal/errors"
	"jsonorder/internal/orderedjson"
)

// Report describes one stored document.
type Report struct {
	ID docstore.RecordID `json:"id"`

	// Member paths of each form, in the order the form lists them.
	RawPaths            []string `json:"rawPaths"`
	OrderPreservedPaths []string `json:"orderPreservedPaths"`
	NormalizedPaths     []string `json:"normalizedPaths"`

	// OrderPreservedMatchesRaw is true when the order-preserved form equals
	// the raw text in both values and member order.
	OrderPreservedMatchesRaw bool `json:"orderPreservedMatchesRaw"`
	// NormalizedEquivalent is true when the normalized form holds the same
	// values as the raw text, ignoring member order.
	NormalizedEquivalent bool `json:"normalizedEquivalent"`
	// NormalizedKeepsOrder is true when normalization happened to leave
	// member order unchanged.
	NormalizedKeepsOrder bool `json:"normalizedKeepsOrder"`

	// Diff is a character diff from the order-preserved to the normalized text.
	Diff []Segment `json:"diff"`
}

// Compare parses the three forms of rec and compares them.
func Compare(rec *docstore.Record) (*Report, error) {
	raw, err := parseForm("raw", rec.Raw)
	if err != nil {
		return nil, err
	}
	ordered, err := parseForm("order-preserved", rec.OrderPreserved)
	if err != nil {
		return nil, err
	}
	normalized, err := parseForm("normalized", rec.Normalized)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:                       rec.ID,
		RawPaths:                 orderedjson.Paths(raw),
		OrderPreservedPaths:      orderedjson.Paths(ordered),
		NormalizedPaths:          orderedjson.Paths(normalized),
		OrderPreservedMatchesRaw: orderedjson.Equal(raw, ordered),
		NormalizedEquivalent:     jsonpatch.Equal([]byte(rec.Raw), []byte(rec.Normalized)),
		Diff:                     TextDiff(rec.OrderPreserved, rec.Normalized),
	}
	report.NormalizedKeepsOrder = slices.Equal(report.RawPaths, report.NormalizedPaths)

	return report, nil
}

func parseForm(name, text string) (orderedjson.Value, error) {
	v, err := orderedjson.ParseString(text)
	if err != nil {
		return orderedjson.Value{}, errors.New(errors.InternalError, "stored "+name+" form is not valid JSON", err)
	}
	return v, nil
}

// Op is a diff segment operation.
type Op string

const (
	OpEqual  Op = "equal"
	OpInsert Op = "insert"
	OpDelete Op = "delete"
)

// Segment is one run of a character diff.
type Segment struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

// TextDiff returns a character diff turning a into b, cleaned up to
// human-readable boundaries.
func TextDiff(a, b string) []Segment {
	dmp := diffpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	segments := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		var op Op
		switch d.Type {
		case diffpatch.DiffInsert:
			op = OpInsert
		case diffpatch.DiffDelete:
			op = OpDelete
		default:
			op = OpEqual
		}
		segments = append(segments, Segment{Op: op, Text: d.Text})
	}
	return segments
}
