package book

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/sax"
	"github.com/fuabioo/sheetq/internal/sst"
)

// StreamCell is one cell of a streamed row.
type StreamCell struct {
	Ref   a1.Ref `json:"ref"`
	Value Value  `json:"value"`
}

// RowResult is one streamed row, or a terminal error.
type RowResult struct {
	Row   int          `json:"row"`
	Cells []StreamCell `json:"cells"`
	Err   error        `json:"-"`
}

// StreamRows streams the rows of a sheet in document order through a
// channel, decompressing the part incrementally so memory stays flat
// regardless of sheet size. rng, when non-nil, bounds the rows and
// columns delivered; streaming stops early once the range is passed.
// The channel closes when the sheet is exhausted, the context is
// cancelled, or an error was delivered.
func (lw *LazyWorkbook) StreamRows(ctx context.Context, sheet string, rng *a1.Range) (<-chan RowResult, error) {
	part, _, err := lw.partFor(sheet)
	if err != nil {
		return nil, err
	}

	out := make(chan RowResult, 64)
	go func() {
		defer close(out)
		rc, err := lw.handle.PartReader(part)
		if err != nil {
			out <- RowResult{Err: err}
			return
		}
		defer rc.Close()

		p := sax.New(part, rc)
		err = scanRows(p, lw.strings, func(row int, cells []StreamCell) (bool, error) {
			if rng != nil {
				if row < rng.Start.Row {
					return false, nil
				}
				if row > rng.End.Row {
					return true, nil
				}
				filtered := cells[:0]
				for _, c := range cells {
					if c.Ref.Col >= rng.Start.Col && c.Ref.Col <= rng.End.Col {
						filtered = append(filtered, c)
					}
				}
				cells = filtered
			}
			select {
			case out <- RowResult{Row: row, Cells: cells}:
				return false, nil
			case <-ctx.Done():
				return true, ctx.Err()
			}
		})
		if err != nil && err != context.Canceled {
			select {
			case out <- RowResult{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// ReadCell resolves a single cell without loading the sheet,
// stopping the scan as soon as the cell's row has passed. Absent
// cells yield the empty value.
func (lw *LazyWorkbook) ReadCell(sheet string, ref a1.Ref) (Value, error) {
	part, _, err := lw.partFor(sheet)
	if err != nil {
		return Value{}, err
	}
	rc, err := lw.handle.PartReader(part)
	if err != nil {
		return Value{}, err
	}
	defer rc.Close()

	var found Value
	p := sax.New(part, rc)
	err = scanRows(p, lw.strings, func(row int, cells []StreamCell) (bool, error) {
		if row > ref.Row {
			return true, nil
		}
		if row != ref.Row {
			return false, nil
		}
		for _, c := range cells {
			if c.Ref == ref {
				found = c.Value
				break
			}
		}
		return true, nil
	})
	if err != nil {
		return Value{}, err
	}
	return found, nil
}

// scanRows drives a sheet part parser row by row. emit returns true
// to stop the scan early.
func scanRows(p *sax.Parser, tbl *sst.Table, emit func(row int, cells []StreamCell) (bool, error)) error {
	var (
		rowNum   int
		cells    []StreamCell
		inRow    bool
		curRef   a1.Ref
		curType  string
		haveCell bool
		inV, inF bool
		inIs     bool
		inIsT    bool
		vText    strings.Builder
		fText    strings.Builder
		isText   strings.Builder
	)

	flushCell := func() {
		if !haveCell {
			return
		}
		haveCell = false
		// Warnings are dropped here; a dangling shared-string index
		// streams as an empty cell.
		v, _ := buildValue(curType, vText.String(), fText.String(), isText.String(), tbl)
		if v.IsEmpty() {
			return
		}
		cells = append(cells, StreamCell{Ref: curRef, Value: v})
	}

	for {
		ev, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch ev.Kind {
		case sax.Start:
			switch ev.Name {
			case "row":
				inRow = true
				rowNum = 0
				cells = nil
				if r, ok := ev.Attr("r"); ok {
					rowNum, _ = strconv.Atoi(r)
				}
			case "c":
				if !inRow {
					continue
				}
				r, _ := ev.Attr("r")
				ref, err := a1.ParseRef(r)
				if err != nil {
					haveCell = false
					continue
				}
				curRef = ref
				if rowNum == 0 {
					rowNum = ref.Row
				}
				curType, _ = ev.Attr("t")
				haveCell = true
				vText.Reset()
				fText.Reset()
				isText.Reset()
			case "v":
				inV = haveCell
			case "f":
				inF = haveCell
			case "is":
				inIs = haveCell
			case "t":
				inIsT = inIs
			}
		case sax.Text:
			switch {
			case inV:
				vText.WriteString(ev.Text)
			case inF:
				fText.WriteString(ev.Text)
			case inIsT:
				isText.WriteString(ev.Text)
			}
		case sax.End:
			switch ev.Name {
			case "v":
				inV = false
			case "f":
				inF = false
			case "t":
				inIsT = false
			case "is":
				inIs = false
			case "c":
				flushCell()
			case "row":
				inRow = false
				if rowNum > 0 {
					stop, err := emit(rowNum, cells)
					if err != nil {
						return err
					}
					if stop {
						return nil
					}
				}
			}
		}
	}
}
