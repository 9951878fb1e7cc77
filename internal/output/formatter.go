// Package output renders command results. Single results marshal as
// one object; worksheet rows render incrementally so a sheet never
// has to fit in memory.
package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fuabioo/sheetq/internal/book"
)

// Format selects how results leave the CLI.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat validates a --format flag value. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %s (valid: json, csv, tsv)", ErrUnknownFormat, s)
	}
}

// Print renders one result to stdout.
func Print(result any, format string) error {
	return Fprint(os.Stdout, result, format)
}

// Fprint renders one result to w. JSON marshals the value as a single
// object on its own line; CSV and TSV flatten it to one record.
func Fprint(w io.Writer, result any, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON:
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(record(result)); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	default:
		_, err := fmt.Fprintln(w, strings.Join(record(result), "\t"))
		return err
	}
}

// record flattens a single result for delimited output. Cell values
// use their display form; anything else falls back to %v.
func record(v any) []string {
	switch val := v.(type) {
	case book.Value:
		return []string{val.Display()}
	case []book.Value:
		out := make([]string, len(val))
		for i, c := range val {
			out[i] = c.Display()
		}
		return out
	case []string:
		return val
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}
