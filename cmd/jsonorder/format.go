package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"jsonorder/internal/compare"
	"jsonorder/internal/docstore"
	"jsonorder/internal/errors"
	"jsonorder/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

var (
	headerColor = color.New(color.Bold)
	okColor     = color.New(color.FgGreen)
	badColor    = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
	insertColor = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed, color.CrossedOut)
)

// configureColor enables colour for always, disables it for never, and for
// auto enables it only when out is a terminal and NO_COLOR is unset.
func configureColor(mode string, out io.Writer) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		f, ok := out.(*os.File)
		color.NoColor = !ok || os.Getenv("NO_COLOR") != "" ||
			!(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *StoreResponseCLI:
		return formatStoreHuman(v), nil
	case *RecordResponseCLI:
		return formatRecordHuman(v), nil
	case *ListResponseCLI:
		return formatListHuman(v), nil
	case *CompareResponseCLI:
		return formatCompareHuman(v), nil
	case *ImportResponseCLI:
		return formatImportHuman(v), nil
	case *DemoResponseCLI:
		return formatDemoHuman(v), nil
	case *version.Details:
		return formatVersionHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// StoreResponseCLI is the output of store
type StoreResponseCLI struct {
	ID    docstore.RecordID `json:"id"`
	Bytes int               `json:"bytes"`
}

func formatStoreHuman(resp *StoreResponseCLI) string {
	return fmt.Sprintf("%s Stored %s (%d bytes)", okColor.Sprint("✓"), resp.ID, resp.Bytes)
}

// RecordResponseCLI is the output of fetch
type RecordResponseCLI struct {
	ID             docstore.RecordID `json:"id"`
	CreatedAt      time.Time         `json:"createdAt"`
	Raw            string            `json:"raw,omitempty"`
	Normalized     string            `json:"normalized,omitempty"`
	OrderPreserved string            `json:"orderPreserved,omitempty"`

	// Form, when set, selects a single form printed without decoration.
	Form string `json:"-"`
}

func formatRecordHuman(resp *RecordResponseCLI) string {
	switch resp.Form {
	case formRaw:
		return resp.Raw
	case formNormalized:
		return resp.Normalized
	case formOrdered:
		return resp.OrderPreserved
	}

	var b strings.Builder
	b.WriteString(headerColor.Sprintf("Record %s", resp.ID))
	b.WriteString(dimColor.Sprintf("  (stored %s)\n", resp.CreatedAt.Local().Format(time.RFC3339)))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	writeSection(&b, "Raw original text", resp.Raw)
	writeSection(&b, "Normalized (member order not preserved)", resp.Normalized)
	writeSection(&b, "Order-preserved", resp.OrderPreserved)
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, title, body string) {
	b.WriteString("\n")
	b.WriteString(headerColor.Sprintf("--- %s ---", title))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
}

// ListResponseCLI is the output of list
type ListResponseCLI struct {
	Records []docstore.Summary `json:"records"`
}

func formatListHuman(resp *ListResponseCLI) string {
	if len(resp.Records) == 0 {
		return "No documents stored."
	}

	var b strings.Builder
	b.WriteString(headerColor.Sprintf("%-36s  %-25s  %s\n", "ID", "STORED", "BYTES"))
	for _, r := range resp.Records {
		b.WriteString(fmt.Sprintf("%-36s  %-25s  %d\n", r.ID, r.CreatedAt.Local().Format(time.RFC3339), r.RawBytes))
	}
	b.WriteString(dimColor.Sprintf("\n%d document(s)", len(resp.Records)))
	return b.String()
}

// CompareResponseCLI is the output of compare
type CompareResponseCLI struct {
	*compare.Report
}

func formatCompareHuman(resp *CompareResponseCLI) string {
	var b strings.Builder

	b.WriteString(headerColor.Sprintf("Comparison for %s\n", resp.ID))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(check(resp.OrderPreservedMatchesRaw, "Order-preserved form matches raw text (values and order)") + "\n")
	b.WriteString(check(resp.NormalizedEquivalent, "Normalized form holds the same values as raw text") + "\n")
	b.WriteString(check(resp.NormalizedKeepsOrder, "Normalized form keeps member order") + "\n")

	if !resp.NormalizedKeepsOrder {
		b.WriteString("\nMember order:\n")
		b.WriteString(fmt.Sprintf("  %-32s %s\n", "raw / order-preserved", "normalized"))
		n := max(len(resp.RawPaths), len(resp.NormalizedPaths))
		for i := 0; i < n; i++ {
			left, right := at(resp.RawPaths, i), at(resp.NormalizedPaths, i)
			line := fmt.Sprintf("  %-32s %s", left, right)
			if left != right {
				line = badColor.Sprint(line)
			}
			b.WriteString(line + "\n")
		}

		b.WriteString("\nText diff (order-preserved → normalized):\n  ")
		for _, s := range resp.Diff {
			switch s.Op {
			case compare.OpInsert:
				b.WriteString(insertColor.Sprintf("{+%s+}", s.Text))
			case compare.OpDelete:
				b.WriteString(deleteColor.Sprintf("[-%s-]", s.Text))
			default:
				b.WriteString(s.Text)
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func check(ok bool, label string) string {
	if ok {
		return okColor.Sprint("✓") + " " + label
	}
	return badColor.Sprint("✗") + " " + label
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// ImportResponseCLI is the output of import
type ImportResponseCLI struct {
	Dir     string            `json:"dir"`
	Stored  int               `json:"stored"`
	Failed  int               `json:"failed"`
	Results []ImportResultCLI `json:"results"`
}

// ImportResultCLI is the outcome for one imported file
type ImportResultCLI struct {
	File  string            `json:"file"`
	ID    docstore.RecordID `json:"id,omitempty"`
	Code  errors.ErrorCode  `json:"code,omitempty"`
	Error string            `json:"error,omitempty"`
}

func formatImportHuman(resp *ImportResponseCLI) string {
	var b strings.Builder
	for _, r := range resp.Results {
		if r.Error == "" {
			b.WriteString(fmt.Sprintf("%s %s → %s\n", okColor.Sprint("✓"), r.File, r.ID))
		} else {
			b.WriteString(fmt.Sprintf("%s %s: %s\n", badColor.Sprint("✗"), r.File, r.Error))
		}
	}
	b.WriteString(fmt.Sprintf("\nImported %d of %d file(s) from %s", resp.Stored, resp.Stored+resp.Failed, resp.Dir))
	return b.String()
}

// DemoResponseCLI is the output of demo
type DemoResponseCLI struct {
	ID                   docstore.RecordID `json:"id"`
	Original             string            `json:"original"`
	Normalized           string            `json:"normalized"`
	OrderPreserved       string            `json:"orderPreserved"`
	NormalizedKeepsOrder bool              `json:"normalizedKeepsOrder"`
}

func formatDemoHuman(resp *DemoResponseCLI) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Stored sample document with ID: %s\n", resp.ID))
	writeSection(&b, "Original JSON", resp.Original)
	writeSection(&b, "Retrieved normalized JSON (order not preserved)", resp.Normalized)
	writeSection(&b, "Retrieved order-preserved JSON", resp.OrderPreserved)
	b.WriteString("\n")
	b.WriteString(check(!resp.NormalizedKeepsOrder, "Normalization reordered object members"))
	return b.String()
}

func formatVersionHuman(v *version.Details) string {
	return fmt.Sprintf("jsonorder version %s\nCommit: %s\nBuilt: %s\nGo: %s",
		v.Version, v.Commit, v.BuildDate, v.GoVersion)
}

// ErrorResponseCLI is how errors are reported in JSON output
type ErrorResponseCLI struct {
	Code           errors.ErrorCode   `json:"code"`
	Message        string             `json:"message"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

func errorResponse(err error) *ErrorResponseCLI {
	resp := &ErrorResponseCLI{Code: errors.CodeOf(err), Message: err.Error()}
	var e *errors.Error
	if stderrors.As(err, &e) {
		resp.Details = e.Details
		resp.SuggestedFixes = e.SuggestedFixes
	}
	return resp
}

// printError reports a command failure on w.
func printError(w io.Writer, err error, format OutputFormat) {
	resp := errorResponse(err)

	if format == FormatJSON {
		out, mErr := formatJSON(map[string]interface{}{"error": resp})
		if mErr == nil {
			fmt.Fprintln(w, out)
			return
		}
	}

	fmt.Fprintf(w, "%s %s\n", badColor.Sprint("Error:"), resp.Message)
	for _, fix := range resp.SuggestedFixes {
		if fix.Command != "" {
			fmt.Fprintf(w, "  Try: %s\n", fix.Command)
		} else if fix.URL != "" {
			fmt.Fprintf(w, "  See: %s\n", fix.URL)
		}
	}
}
