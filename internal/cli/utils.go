// Package cli provides output helpers for the ridewise command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hyperjump/ridewise/internal/enrich"
	"github.com/hyperjump/ridewise/internal/indexer"
	"github.com/hyperjump/ridewise/internal/models"
	"github.com/hyperjump/ridewise/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Inspection is the result of parsing and enriching a workbook without indexing it.
type Inspection struct {
	Source  string           `json:"source"`
	Stats   enrich.Stats     `json:"stats"`
	Missing []string         `json:"missing_sheets"`
	Records []*models.Record `json:"records"`
}

// WriteInspection writes an inspection to w. In text mode at most limit
// records are listed (0 lists all).
func WriteInspection(w io.Writer, in *Inspection, format OutputFormat, limit int) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(in)
	}

	header := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	header.Fprintf(w, "\n%s: %d trips\n", in.Source, in.Stats.Trips)
	fmt.Fprintf(w, "  with check-in: %d  with age: %d  with date: %d\n",
		in.Stats.WithCheckIn, in.Stats.WithAge, in.Stats.WithDate)
	if in.Stats.MissingDate > 0 || in.Stats.InvalidDate > 0 {
		warn.Fprintf(w, "  missing date: %d  unparseable date: %d\n", in.Stats.MissingDate, in.Stats.InvalidDate)
	}
	for _, name := range in.Missing {
		warn.Fprintf(w, "  sheet not found: %s\n", name)
	}
	fmt.Fprintln(w)

	n := len(in.Records)
	if limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d %s\n", i+1, utils.Truncate(indexer.FlattenRecord(in.Records[i]), 300))
	}
	if n < len(in.Records) {
		fmt.Fprintf(w, "\n... %d more\n", len(in.Records)-n)
	}
	return nil
}

// WriteAnswer writes a chat answer to w.
func WriteAnswer(w io.Writer, answer string, format OutputFormat) error {
	if format == OutputJSON {
		return json.NewEncoder(w).Encode(models.ChatResponse{Answer: answer})
	}
	color.New(color.FgGreen).Fprint(w, "Answer: ")
	fmt.Fprintln(w, answer)
	return nil
}
