// Package styles loads, deduplicates and serialises the styles part.
//
// Styles are stored the way the part stores them: component tables
// for fonts, fills, borders and number formats, plus cell format (xf)
// records indexing into those tables. A cell's style id is its xf
// index, so ids survive a load/save round trip unchanged.
package styles

import (
	"errors"
	"fmt"
	"strings"
)

// FirstCustomNumFmt is the lowest id available to custom number
// formats; lower ids belong to the builtin set.
const FirstCustomNumFmt = 164

var ErrBadColor = errors.New("invalid color")

// Font is a deduplicated font record. Color is 8-digit ARGB hex, or
// empty for the theme default.
type Font struct {
	Name      string
	Size      float64
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
	Color     string
}

// DefaultFont matches the workbook default.
func DefaultFont() Font {
	return Font{Name: "Calibri", Size: 11}
}

// Fill is a pattern fill. Colors are ARGB hex.
type Fill struct {
	Pattern string // "none", "gray125", "solid", ...
	FgColor string
	BgColor string
}

// BorderSide is one edge of a border.
type BorderSide struct {
	Style string // "thin", "medium", "dashed", ...
	Color string
}

// Border holds the four edges plus the diagonal.
type Border struct {
	Left     BorderSide
	Right    BorderSide
	Top      BorderSide
	Bottom   BorderSide
	Diagonal BorderSide
}

// Alignment is the xf-level alignment block.
type Alignment struct {
	Horizontal string
	Vertical   string
	WrapText   bool
}

// Format is the resolved style of one cell, the unit callers register
// and read back.
type Format struct {
	Font       Font
	Fill       Fill
	Border     Border
	NumFmtID   int
	NumFmtCode string // set for custom formats; empty means builtin NumFmtID
	Alignment  Alignment
}

// xf is an internal cell format record.
type xf struct {
	FontID   int
	FillID   int
	BorderID int
	NumFmtID int
	Align    Alignment
}

// Registry owns the style tables of one workbook.
type Registry struct {
	fonts   []Font
	fills   []Fill
	borders []Border
	xfs     []xf

	numFmtCodes map[int]string // custom id -> code
	numFmtIDs   map[string]int // code -> custom id
	nextNumFmt  int

	fontIDs   map[Font]int
	fillIDs   map[Fill]int
	borderIDs map[Border]int
	xfIDs     map[xf]int

	dirty bool
}

// NewRegistry returns a registry seeded with the reserved defaults:
// font 0, fills 0 ("none") and 1 ("gray125"), border 0 and xf 0.
func NewRegistry() *Registry {
	r := &Registry{
		numFmtCodes: make(map[int]string),
		numFmtIDs:   make(map[string]int),
		nextNumFmt:  FirstCustomNumFmt,
		fontIDs:     make(map[Font]int),
		fillIDs:     make(map[Fill]int),
		borderIDs:   make(map[Border]int),
		xfIDs:       make(map[xf]int),
	}
	r.addFont(DefaultFont())
	r.addFill(Fill{Pattern: "none"})
	r.addFill(Fill{Pattern: "gray125"})
	r.addBorder(Border{})
	r.addXf(xf{})
	return r
}

func (r *Registry) addFont(f Font) int {
	if id, ok := r.fontIDs[f]; ok {
		return id
	}
	id := len(r.fonts)
	r.fonts = append(r.fonts, f)
	r.fontIDs[f] = id
	return id
}

func (r *Registry) addFill(f Fill) int {
	if id, ok := r.fillIDs[f]; ok {
		return id
	}
	id := len(r.fills)
	r.fills = append(r.fills, f)
	r.fillIDs[f] = id
	return id
}

func (r *Registry) addBorder(b Border) int {
	if id, ok := r.borderIDs[b]; ok {
		return id
	}
	id := len(r.borders)
	r.borders = append(r.borders, b)
	r.borderIDs[b] = id
	return id
}

func (r *Registry) addXf(x xf) int {
	if id, ok := r.xfIDs[x]; ok {
		return id
	}
	id := len(r.xfs)
	r.xfs = append(r.xfs, x)
	r.xfIDs[x] = id
	return id
}

// Register returns the style id for f, reusing existing components
// and xf records when equal ones exist. Colors are canonicalised to
// 8-digit ARGB first so spellings like "#ff0000" and "FFFF0000" share
// one record. New records mark the registry dirty.
func (r *Registry) Register(f Format) int {
	f.Font.Color = normColor(f.Font.Color)
	f.Fill.FgColor = normColor(f.Fill.FgColor)
	f.Fill.BgColor = normColor(f.Fill.BgColor)
	f.Border.Left.Color = normColor(f.Border.Left.Color)
	f.Border.Right.Color = normColor(f.Border.Right.Color)
	f.Border.Top.Color = normColor(f.Border.Top.Color)
	f.Border.Bottom.Color = normColor(f.Border.Bottom.Color)
	f.Border.Diagonal.Color = normColor(f.Border.Diagonal.Color)

	numFmtID := f.NumFmtID
	if f.NumFmtCode != "" {
		if id, ok := r.numFmtIDs[f.NumFmtCode]; ok {
			numFmtID = id
		} else {
			numFmtID = r.nextNumFmt
			r.nextNumFmt++
			r.numFmtCodes[numFmtID] = f.NumFmtCode
			r.numFmtIDs[f.NumFmtCode] = numFmtID
			r.dirty = true
		}
	}

	before := len(r.fonts) + len(r.fills) + len(r.borders) + len(r.xfs)
	x := xf{
		FontID:   r.addFont(f.Font),
		FillID:   r.addFill(f.Fill),
		BorderID: r.addBorder(f.Border),
		NumFmtID: numFmtID,
		Align:    f.Alignment,
	}
	id := r.addXf(x)
	if len(r.fonts)+len(r.fills)+len(r.borders)+len(r.xfs) != before {
		r.dirty = true
	}
	return id
}

// Format resolves a style id. ok is false for ids no xf record backs;
// callers substitute the default style and record a warning.
func (r *Registry) Format(id int) (Format, bool) {
	if id < 0 || id >= len(r.xfs) {
		return Format{}, false
	}
	x := r.xfs[id]
	f := Format{
		NumFmtID:  x.NumFmtID,
		Alignment: x.Align,
	}
	if x.FontID >= 0 && x.FontID < len(r.fonts) {
		f.Font = r.fonts[x.FontID]
	}
	if x.FillID >= 0 && x.FillID < len(r.fills) {
		f.Fill = r.fills[x.FillID]
	}
	if x.BorderID >= 0 && x.BorderID < len(r.borders) {
		f.Border = r.borders[x.BorderID]
	}
	if code, ok := r.numFmtCodes[x.NumFmtID]; ok {
		f.NumFmtCode = code
	}
	return f, true
}

// Count returns the number of cell format records.
func (r *Registry) Count() int { return len(r.xfs) }

// Dirty reports whether any record was added since load.
func (r *Registry) Dirty() bool { return r.dirty }

// normColor is the lenient form Register uses: empty and unparseable
// values pass through so loaded parts keep whatever the file held.
func normColor(s string) string {
	if s == "" {
		return ""
	}
	if c, err := NormalizeColor(s); err == nil {
		return c
	}
	return s
}

// NormalizeColor canonicalises a hex color to 8-digit ARGB, accepting
// 6-digit RGB with an implied opaque alpha and a leading '#'.
func NormalizeColor(s string) (string, error) {
	s = strings.TrimPrefix(s, "#")
	s = strings.ToUpper(s)
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return "", fmt.Errorf("%w: %q", ErrBadColor, s)
		}
	}
	switch len(s) {
	case 6:
		return "FF" + s, nil
	case 8:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadColor, s)
}
