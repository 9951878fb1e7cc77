package book

import (
	"fmt"
	"sort"

	"github.com/fuabioo/sheetq/internal/a1"
)

// Visibility of a sheet tab. VeryHidden sheets can only be shown
// programmatically.
type Visibility string

const (
	Visible    Visibility = "visible"
	Hidden     Visibility = "hidden"
	VeryHidden Visibility = "veryHidden"
)

// Cell is one populated grid position.
type Cell struct {
	Ref       a1.Ref
	Value     Value
	StyleID   int // cell format id; 0 is the default format
	Comment   string
	Hyperlink string
}

// Freeze is a frozen-pane split.
type Freeze struct {
	Cols    int
	Rows    int
	TopLeft string
}

// Sheet is one worksheet. Cells are stored sparsely; only populated
// positions exist. Mutations that change the grid around formulas go
// through the owning Workbook so every formula in the book is
// rewritten consistently.
type Sheet struct {
	wb         *Workbook
	name       string
	sheetID    int
	partName   string // source part, empty for sheets created in memory
	visibility Visibility

	cells      map[a1.Ref]*Cell
	rowHeights map[int]float64
	colWidths  map[int]float64
	hiddenRows map[int]bool
	hiddenCols map[int]bool
	merged     []a1.Range
	freeze     *Freeze

	dirty bool
}

func newSheet(wb *Workbook, name string, sheetID int) *Sheet {
	return &Sheet{
		wb:         wb,
		name:       name,
		sheetID:    sheetID,
		visibility: Visible,
		cells:      make(map[a1.Ref]*Cell),
		rowHeights: make(map[int]float64),
		colWidths:  make(map[int]float64),
		hiddenRows: make(map[int]bool),
		hiddenCols: make(map[int]bool),
	}
}

func (s *Sheet) Name() string           { return s.name }
func (s *Sheet) Visibility() Visibility { return s.visibility }
func (s *Sheet) Dirty() bool            { return s.dirty }

func (s *Sheet) markDirty() { s.dirty = true }

// Cell returns the cell at ref, or nil when the position is empty.
func (s *Sheet) Cell(ref a1.Ref) *Cell {
	return s.cells[ref]
}

// Value returns the value at ref; empty positions yield the empty
// value.
func (s *Sheet) Value(ref a1.Ref) Value {
	if c := s.cells[ref]; c != nil {
		return c.Value
	}
	return Value{}
}

// SetValue places a value, creating the cell as needed.
func (s *Sheet) SetValue(ref a1.Ref, v Value) error {
	if !ref.Valid() {
		return fmt.Errorf("%w: %v", a1.ErrInvalidRef, ref)
	}
	c := s.cells[ref]
	if c == nil {
		c = &Cell{Ref: ref}
		s.cells[ref] = c
	}
	c.Value = v
	s.markDirty()
	return nil
}

// SetStyle assigns a registered cell format id to ref.
func (s *Sheet) SetStyle(ref a1.Ref, styleID int) error {
	if !ref.Valid() {
		return fmt.Errorf("%w: %v", a1.ErrInvalidRef, ref)
	}
	if s.wb != nil {
		if _, ok := s.wb.styles.Format(styleID); !ok {
			return fmt.Errorf("%w: %d", ErrStyleUnknown, styleID)
		}
	}
	c := s.cells[ref]
	if c == nil {
		c = &Cell{Ref: ref}
		s.cells[ref] = c
	}
	c.StyleID = styleID
	s.markDirty()
	return nil
}

// Clear removes the cell at ref entirely, value and style.
func (s *Sheet) Clear(ref a1.Ref) {
	if _, ok := s.cells[ref]; ok {
		delete(s.cells, ref)
		s.markDirty()
	}
}

// CellCount returns the number of populated cells.
func (s *Sheet) CellCount() int { return len(s.cells) }

// UsedRange returns the bounding box of populated cells. ok is false
// for an empty sheet.
func (s *Sheet) UsedRange() (a1.Range, bool) {
	if len(s.cells) == 0 {
		return a1.Range{}, false
	}
	first := true
	var r a1.Range
	for ref := range s.cells {
		if first {
			r = a1.Range{Start: ref, End: ref}
			first = false
			continue
		}
		if ref.Col < r.Start.Col {
			r.Start.Col = ref.Col
		}
		if ref.Col > r.End.Col {
			r.End.Col = ref.Col
		}
		if ref.Row < r.Start.Row {
			r.Start.Row = ref.Row
		}
		if ref.Row > r.End.Row {
			r.End.Row = ref.Row
		}
	}
	return r, true
}

// Rows returns populated row numbers ascending, with the cells of
// each row sorted by column. The writer and range readers rely on
// this ordering.
func (s *Sheet) Rows() []RowCells {
	byRow := make(map[int][]*Cell)
	for _, c := range s.cells {
		byRow[c.Ref.Row] = append(byRow[c.Ref.Row], c)
	}
	rows := make([]RowCells, 0, len(byRow))
	for r, cells := range byRow {
		sort.Slice(cells, func(i, j int) bool { return cells[i].Ref.Col < cells[j].Ref.Col })
		rows = append(rows, RowCells{Row: r, Cells: cells})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Row < rows[j].Row })
	return rows
}

// RowCells is one populated row in column order.
type RowCells struct {
	Row   int
	Cells []*Cell
}

// Merged lists merged ranges.
func (s *Sheet) Merged() []a1.Range {
	out := make([]a1.Range, len(s.merged))
	copy(out, s.merged)
	return out
}

// Merge merges rng. Overlapping an existing merged range is an
// error. Values outside the top-left cell are discarded with a
// warning, matching what spreadsheet applications do.
func (s *Sheet) Merge(rng a1.Range) error {
	if rng.Start == rng.End {
		return fmt.Errorf("%w: single cell %s", a1.ErrInvalidRange, rng)
	}
	for _, m := range s.merged {
		if m.Overlaps(rng) {
			return fmt.Errorf("%w: %s overlaps %s", ErrMergeOverlap, rng, m)
		}
	}
	for ref, c := range s.cells {
		if ref != rng.Start && rng.Contains(ref) && !c.Value.IsEmpty() {
			s.warnf("merge-discard", "merge %s discarded value at %s", rng, ref)
			c.Value = Value{}
		}
	}
	s.merged = append(s.merged, rng)
	s.markDirty()
	return nil
}

// Unmerge removes an exact merged range.
func (s *Sheet) Unmerge(rng a1.Range) error {
	for i, m := range s.merged {
		if m == rng {
			s.merged = append(s.merged[:i], s.merged[i+1:]...)
			s.markDirty()
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not merged", a1.ErrInvalidRange, rng)
}

// Row and column layout.

func (s *Sheet) RowHeight(row int) (float64, bool) {
	h, ok := s.rowHeights[row]
	return h, ok
}

func (s *Sheet) SetRowHeight(row int, h float64) error {
	if row < 1 || row > a1.MaxRow {
		return fmt.Errorf("%w: row %d", ErrBadPosition, row)
	}
	s.rowHeights[row] = h
	s.markDirty()
	return nil
}

func (s *Sheet) ColWidth(col int) (float64, bool) {
	w, ok := s.colWidths[col]
	return w, ok
}

func (s *Sheet) SetColWidth(col int, w float64) error {
	if col < 1 || col > a1.MaxCol {
		return fmt.Errorf("%w: col %d", ErrBadPosition, col)
	}
	s.colWidths[col] = w
	s.markDirty()
	return nil
}

func (s *Sheet) RowHidden(row int) bool { return s.hiddenRows[row] }
func (s *Sheet) ColHidden(col int) bool { return s.hiddenCols[col] }

func (s *Sheet) SetRowHidden(row int, hidden bool) {
	if hidden {
		s.hiddenRows[row] = true
	} else {
		delete(s.hiddenRows, row)
	}
	s.markDirty()
}

func (s *Sheet) SetColHidden(col int, hidden bool) {
	if hidden {
		s.hiddenCols[col] = true
	} else {
		delete(s.hiddenCols, col)
	}
	s.markDirty()
}

// Freeze returns the frozen-pane split, or nil when none is set.
func (s *Sheet) Freeze() *Freeze {
	if s.freeze == nil {
		return nil
	}
	f := *s.freeze
	return &f
}

// SetFreeze freezes cols columns and rows rows at the top left. A
// zero split clears the pane.
func (s *Sheet) SetFreeze(cols, rows int) error {
	if cols < 0 || rows < 0 {
		return fmt.Errorf("%w: freeze %d,%d", ErrBadPosition, cols, rows)
	}
	if cols == 0 && rows == 0 {
		s.freeze = nil
	} else {
		s.freeze = &Freeze{
			Cols:    cols,
			Rows:    rows,
			TopLeft: a1.Ref{Col: cols + 1, Row: rows + 1}.String(),
		}
	}
	s.markDirty()
	return nil
}

func (s *Sheet) warnf(code, format string, args ...interface{}) {
	if s.wb != nil {
		s.wb.warnf(code, format, args...)
	}
}

// shiftRows moves cells and row metadata for an insertion (delta > 0,
// rows >= at move down) or deletion (delta < 0 with span [at,
// at-delta-1] removed). Merged ranges inside a deleted span vanish;
// partial overlaps clamp.
func (s *Sheet) shiftRows(at, delta int) {
	moved := make(map[a1.Ref]*Cell, len(s.cells))
	end := at - delta - 1 // deletion span end, meaningless for inserts
	for ref, c := range s.cells {
		switch {
		case ref.Row < at:
			moved[ref] = c
		case delta < 0 && ref.Row <= end:
			// deleted
		default:
			nr := a1.Ref{Col: ref.Col, Row: ref.Row + delta}
			c.Ref = nr
			moved[nr] = c
		}
	}
	s.cells = moved

	s.rowHeights = shiftIntMapF(s.rowHeights, at, delta, end)
	s.hiddenRows = shiftIntMapB(s.hiddenRows, at, delta, end)

	var merged []a1.Range
	for _, m := range s.merged {
		if nm, keep := shiftSpan(m, at, delta, end, true); keep {
			merged = append(merged, nm)
		}
	}
	s.merged = merged
	s.markDirty()
}

// shiftCols is the column counterpart of shiftRows.
func (s *Sheet) shiftCols(at, delta int) {
	moved := make(map[a1.Ref]*Cell, len(s.cells))
	end := at - delta - 1
	for ref, c := range s.cells {
		switch {
		case ref.Col < at:
			moved[ref] = c
		case delta < 0 && ref.Col <= end:
		default:
			nr := a1.Ref{Col: ref.Col + delta, Row: ref.Row}
			c.Ref = nr
			moved[nr] = c
		}
	}
	s.cells = moved

	s.colWidths = shiftIntMapF(s.colWidths, at, delta, end)
	s.hiddenCols = shiftIntMapB(s.hiddenCols, at, delta, end)

	var merged []a1.Range
	for _, m := range s.merged {
		if nm, keep := shiftSpan(m, at, delta, end, false); keep {
			merged = append(merged, nm)
		}
	}
	s.merged = merged
	s.markDirty()
}

func shiftIntMapF(m map[int]float64, at, delta, end int) map[int]float64 {
	out := make(map[int]float64, len(m))
	for k, v := range m {
		switch {
		case k < at:
			out[k] = v
		case delta < 0 && k <= end:
		default:
			out[k+delta] = v
		}
	}
	return out
}

func shiftIntMapB(m map[int]bool, at, delta, end int) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		switch {
		case k < at:
			out[k] = v
		case delta < 0 && k <= end:
		default:
			out[k+delta] = v
		}
	}
	return out
}

// shiftSpan adjusts a merged range for a row (byRow) or column edit.
// keep is false when the range fell entirely inside a deleted span.
func shiftSpan(m a1.Range, at, delta, end int, byRow bool) (a1.Range, bool) {
	lo, hi := m.Start.Row, m.End.Row
	if !byRow {
		lo, hi = m.Start.Col, m.End.Col
	}

	if delta > 0 {
		if lo >= at {
			lo += delta
		}
		if hi >= at {
			hi += delta
		}
	} else {
		count := -delta
		if lo >= at && hi <= end {
			return a1.Range{}, false
		}
		lo = shiftCoord(lo, at, end, count, true)
		hi = shiftCoord(hi, at, end, count, false)
	}

	if byRow {
		m.Start.Row, m.End.Row = lo, hi
	} else {
		m.Start.Col, m.End.Col = lo, hi
	}
	return m, true
}

func shiftCoord(x, at, end, count int, isStart bool) int {
	switch {
	case x > end:
		return x - count
	case x >= at:
		if isStart {
			return at
		}
		return at - 1
	}
	return x
}
