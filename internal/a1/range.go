package a1

import (
	"fmt"
	"strings"
)

// Range is an inclusive rectangular region.
type Range struct {
	Start Ref
	End   Ref
}

// ParseRange parses "A1:B10", a single cell "C3", a full column span
// "A:B" or a full row span "1:10".
func ParseRange(s string) (Range, error) {
	if s == "" {
		return Range{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}
	a, b, cut := strings.Cut(s, ":")
	if !cut {
		ref, err := ParseRef(s)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
		}
		return Range{Start: ref, End: ref}, nil
	}

	// Full column span, e.g. "A:B".
	if c1, err := ColumnNumber(a); err == nil {
		if c2, err := ColumnNumber(b); err == nil {
			if c1 > c2 {
				return Range{}, fmt.Errorf("%w: %q start after end", ErrInvalidRange, s)
			}
			return Range{Start: Ref{Col: c1, Row: 1}, End: Ref{Col: c2, Row: MaxRow}}, nil
		}
	}
	// Full row span, e.g. "1:10".
	if r1, ok := parseRowOnly(a); ok {
		if r2, ok := parseRowOnly(b); ok {
			if r1 > r2 {
				return Range{}, fmt.Errorf("%w: %q start after end", ErrInvalidRange, s)
			}
			return Range{Start: Ref{Col: 1, Row: r1}, End: Ref{Col: MaxCol, Row: r2}}, nil
		}
	}

	start, err := ParseRef(a)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	end, err := ParseRef(b)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	if start.Col > end.Col || start.Row > end.Row {
		return Range{}, fmt.Errorf("%w: %q start after end", ErrInvalidRange, s)
	}
	return Range{Start: start, End: end}, nil
}

func parseRowOnly(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n > MaxRow {
			return 0, false
		}
	}
	if n == 0 {
		return 0, false
	}
	return n, true
}

func (r Range) String() string {
	if r.Start == r.End {
		return r.Start.String()
	}
	return r.Start.String() + ":" + r.End.String()
}

func (r Range) Width() int  { return r.End.Col - r.Start.Col + 1 }
func (r Range) Height() int { return r.End.Row - r.Start.Row + 1 }

// CellCount is Width*Height; callers streaming a full-column span
// should prefer bounds checks over materialising cells.
func (r Range) CellCount() int { return r.Width() * r.Height() }

// Contains reports whether ref lies inside the range.
func (r Range) Contains(ref Ref) bool {
	return ref.Col >= r.Start.Col && ref.Col <= r.End.Col &&
		ref.Row >= r.Start.Row && ref.Row <= r.End.Row
}

// Overlaps reports whether two ranges share at least one cell.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Col <= o.End.Col && o.Start.Col <= r.End.Col &&
		r.Start.Row <= o.End.Row && o.Start.Row <= r.End.Row
}
