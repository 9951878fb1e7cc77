package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/book"
)

// Row is the JSON shape of one streamed worksheet row. Cells are
// keyed by their reference so sparse rows stay sparse.
type Row struct {
	Row   int                   `json:"row"`
	Cells map[string]book.Value `json:"cells"`
}

func rowJSON(r book.RowResult) Row {
	cells := make(map[string]book.Value, len(r.Cells))
	for _, c := range r.Cells {
		cells[c.Ref.String()] = c.Value
	}
	return Row{Row: r.Row, Cells: cells}
}

// rowStrings expands a streamed row into display strings covering
// columns first..last, with empty strings for gaps. CSV and TSV need
// the rectangle filled in. A first below 1 means no fixed window, so
// the row's own width decides.
func rowStrings(r book.RowResult, first, last int) []string {
	if first < 1 {
		first = 1
		last = 0
		for _, c := range r.Cells {
			if c.Ref.Col > last {
				last = c.Ref.Col
			}
		}
	}
	if last < first {
		return nil
	}
	out := make([]string, last-first+1)
	for _, c := range r.Cells {
		if c.Ref.Col < first || c.Ref.Col > last {
			continue
		}
		out[c.Ref.Col-first] = c.Value.Display()
	}
	return out
}

// ColumnSpan reports the column window a stream should render. A nil
// range means the full used width, which each row then decides for
// itself.
func ColumnSpan(rng *a1.Range) (first, last int, fixed bool) {
	if rng == nil {
		return 0, 0, false
	}
	return rng.Start.Col, rng.End.Col, true
}

// StreamRows drains a row channel into w, one item at a time. JSON
// gets an array wrapper, CSV and TSV emit one line per row.
func StreamRows(w io.Writer, format string, rows <-chan book.RowResult, first, last int) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON:
		return streamJSON(w, rows)
	case FormatCSV:
		return streamCSV(w, rows, first, last)
	default:
		return streamTSV(w, rows, first, last)
	}
}

func streamJSON(w io.Writer, rows <-chan book.RowResult) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	n := 0
	for r := range rows {
		if r.Err != nil {
			return fmt.Errorf("streaming rows: %w", r.Err)
		}
		if n > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		n++
		data, err := json.Marshal(rowJSON(r))
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", r.Row, err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]\n")
	return err
}

func streamCSV(w io.Writer, rows <-chan book.RowResult, first, last int) error {
	cw := csv.NewWriter(w)
	for r := range rows {
		if r.Err != nil {
			return fmt.Errorf("streaming rows: %w", r.Err)
		}
		if err := cw.Write(rowStrings(r, first, last)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func streamTSV(w io.Writer, rows <-chan book.RowResult, first, last int) error {
	for r := range rows {
		if r.Err != nil {
			return fmt.Errorf("streaming rows: %w", r.Err)
		}
		line := strings.Join(rowStrings(r, first, last), "\t")
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}
