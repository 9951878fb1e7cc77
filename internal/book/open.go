package book

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/container"
	"github.com/fuabioo/sheetq/internal/sax"
	"github.com/fuabioo/sheetq/internal/sst"
	"github.com/fuabioo/sheetq/internal/styles"
)

// OpenOption tunes how a workbook is opened.
type OpenOption func(*openConfig)

type openConfig struct {
	stringCache int
}

// WithStringCache sets the capacity of the resolved shared-string
// LRU. Zero or negative keeps the default.
func WithStringCache(n int) OpenOption {
	return func(c *openConfig) { c.stringCache = n }
}

func applyOpenOptions(opts []OpenOption) openConfig {
	var cfg openConfig
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Open reads and fully parses a workbook. Sheets are parsed in
// parallel; the shared string table is resolved lazily behind its
// cache either way.
func Open(path string, opts ...OpenOption) (*Workbook, error) {
	if strings.ToLower(filepath.Ext(path)) != ".xlsx" {
		return nil, fmt.Errorf("%w: %s", ErrNotXlsx, path)
	}
	h, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	wb, err := fromContainer(h, applyOpenOptions(opts))
	if err != nil {
		h.Close()
		return nil, err
	}
	wb.path = path
	return wb, nil
}

// OpenBytes parses a workbook held in memory.
func OpenBytes(data []byte, opts ...OpenOption) (*Workbook, error) {
	h, err := container.FromBytes(data)
	if err != nil {
		return nil, err
	}
	wb, err := fromContainer(h, applyOpenOptions(opts))
	if err != nil {
		h.Close()
		return nil, err
	}
	return wb, nil
}

// OpenReader parses a workbook from a stream, buffering it fully.
func OpenReader(r io.Reader, opts ...OpenOption) (*Workbook, error) {
	h, err := container.FromReader(r)
	if err != nil {
		return nil, err
	}
	wb, err := fromContainer(h, applyOpenOptions(opts))
	if err != nil {
		h.Close()
		return nil, err
	}
	return wb, nil
}

func fromContainer(h *container.Handle, cfg openConfig) (*Workbook, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	wb := &Workbook{
		source:      h,
		styles:      styles.NewRegistry(),
		strings:     sst.New(),
		ctDefaults:  map[string]string{},
		ctOverrides: map[string]string{},
	}

	if data, err := h.Part("[Content_Types].xml"); err == nil {
		if err := parseContentTypes(data, wb); err != nil {
			return nil, err
		}
	}

	if h.Has("xl/sharedStrings.xml") {
		data, err := h.Part("xl/sharedStrings.xml")
		if err != nil {
			return nil, err
		}
		tbl, err := sst.Parse(data, cfg.stringCache)
		if err != nil {
			// A broken string table costs the strings, not the open.
			wb.warnf("bad-shared-strings", "shared strings part unreadable: %v", err)
		} else {
			wb.strings = tbl
		}
	}

	if h.Has("xl/styles.xml") {
		data, err := h.Part("xl/styles.xml")
		if err != nil {
			return nil, err
		}
		wb.styles, err = styles.Parse(data)
		if err != nil {
			return nil, err
		}
	}

	if h.Has("docProps/core.xml") {
		data, err := h.Part("docProps/core.xml")
		if err != nil {
			return nil, err
		}
		if err := parseCoreProps(data, &wb.props); err != nil {
			return nil, err
		}
	}

	metas, activeTab, names, err := parseWorkbookPart(h)
	if err != nil {
		return nil, err
	}
	wb.names = names

	rels, err := parseWorkbookRels(h)
	if err != nil {
		return nil, err
	}

	for _, m := range metas {
		s := newSheet(wb, m.name, m.sheetID)
		s.visibility = m.state
		for _, rel := range rels {
			if rel.ID == m.relID {
				s.partName = resolveTarget(rel.Target)
				break
			}
		}
		wb.sheets = append(wb.sheets, s)
	}
	if len(wb.sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook declares no sheets", container.ErrCorrupt)
	}
	// Rels the writer must carry over verbatim.
	for _, rel := range rels {
		if !strings.HasSuffix(rel.Type, "/worksheet") &&
			!strings.HasSuffix(rel.Type, "/styles") &&
			!strings.HasSuffix(rel.Type, "/sharedStrings") {
			wb.extraRels = append(wb.extraRels, rel)
		}
	}

	if err := parseSheetsParallel(h, wb); err != nil {
		return nil, err
	}

	wb.active = 0
	if activeTab >= 0 && activeTab < len(wb.sheets) && wb.sheets[activeTab].visibility == Visible {
		wb.active = activeTab
	} else {
		wb.active = wb.firstVisible()
	}
	return wb, nil
}

// parseSheetsParallel parses every sheet part concurrently. Warnings
// are collected per sheet and merged afterwards to keep the workbook
// untouched by goroutines.
func parseSheetsParallel(h *container.Handle, wb *Workbook) error {
	var g errgroup.Group
	warnLists := make([][]Warning, len(wb.sheets))
	for i, s := range wb.sheets {
		if s.partName == "" || !h.Has(s.partName) {
			wb.warnf("missing-sheet-part", "sheet %q has no part", s.name)
			continue
		}
		g.Go(func() error {
			data, err := h.Part(s.partName)
			if err != nil {
				return err
			}
			warns, err := parseSheetXML(s, data, wb.strings, wb.styles.Count())
			warnLists[i] = warns
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, ws := range warnLists {
		wb.warnings = append(wb.warnings, ws...)
	}
	return nil
}

type sheetMeta struct {
	name    string
	sheetID int
	relID   string
	state   Visibility
}

func parseWorkbookPart(h *container.Handle) ([]sheetMeta, int, []DefinedName, error) {
	data, err := h.Part("xl/workbook.xml")
	if err != nil {
		return nil, 0, nil, err
	}
	p := sax.NewBytes("xl/workbook.xml", data)

	var metas []sheetMeta
	var names []DefinedName
	activeTab := -1
	var curName *DefinedName
	var nameText strings.Builder

	for {
		ev, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, nil, err
		}
		switch ev.Kind {
		case sax.Start:
			switch ev.Name {
			case "sheet":
				m := sheetMeta{state: Visible}
				m.name, _ = ev.Attr("name")
				if v, ok := ev.Attr("sheetId"); ok {
					m.sheetID, _ = strconv.Atoi(v)
				}
				m.relID, _ = ev.Attr("id")
				if v, ok := ev.Attr("state"); ok {
					switch Visibility(v) {
					case Hidden, VeryHidden:
						m.state = Visibility(v)
					}
				}
				metas = append(metas, m)
			case "workbookView":
				if v, ok := ev.Attr("activeTab"); ok {
					if n, err := strconv.Atoi(v); err == nil {
						activeTab = n
					}
				}
			case "definedName":
				dn := DefinedName{LocalSheet: -1}
				dn.Name, _ = ev.Attr("name")
				if v, ok := ev.Attr("localSheetId"); ok {
					if n, err := strconv.Atoi(v); err == nil {
						dn.LocalSheet = n
					}
				}
				dn.Comment, _ = ev.Attr("comment")
				if v, ok := ev.Attr("hidden"); ok {
					dn.Hidden = v == "1" || v == "true"
				}
				curName = &dn
				nameText.Reset()
			}
		case sax.Text:
			if curName != nil {
				nameText.WriteString(ev.Text)
			}
		case sax.End:
			if ev.Name == "definedName" && curName != nil {
				curName.Reference = nameText.String()
				names = append(names, *curName)
				curName = nil
			}
		}
	}
	return metas, activeTab, names, nil
}

func parseWorkbookRels(h *container.Handle) ([]relEntry, error) {
	if !h.Has("xl/_rels/workbook.xml.rels") {
		return nil, nil
	}
	data, err := h.Part("xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	p := sax.NewBytes("xl/_rels/workbook.xml.rels", data)
	var rels []relEntry
	for {
		ev, err := p.Next()
		if err == io.EOF {
			return rels, nil
		}
		if err != nil {
			return nil, err
		}
		if ev.Kind == sax.Start && ev.Name == "Relationship" {
			var r relEntry
			r.ID, _ = ev.Attr("Id")
			r.Type, _ = ev.Attr("Type")
			r.Target, _ = ev.Attr("Target")
			rels = append(rels, r)
		}
	}
}

// resolveTarget turns a workbook rel target into a part name.
// Targets are relative to xl/ unless they start with '/'.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return "xl/" + target
}

func parseContentTypes(data []byte, wb *Workbook) error {
	p := sax.NewBytes("[Content_Types].xml", data)
	for {
		ev, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if ev.Kind != sax.Start {
			continue
		}
		switch ev.Name {
		case "Default":
			ext, _ := ev.Attr("Extension")
			ct, _ := ev.Attr("ContentType")
			if ext != "" {
				wb.ctDefaults[ext] = ct
			}
		case "Override":
			part, _ := ev.Attr("PartName")
			ct, _ := ev.Attr("ContentType")
			if part != "" {
				wb.ctOverrides[strings.TrimPrefix(part, "/")] = ct
			}
		}
	}
}

func parseCoreProps(data []byte, props *Properties) error {
	p := sax.NewBytes("docProps/core.xml", data)
	var field *string
	var text strings.Builder
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
			text.Reset()
			switch ev.Name {
			case "title":
				field = &props.Title
			case "subject":
				field = &props.Subject
			case "creator":
				field = &props.Creator
			case "keywords":
				field = &props.Keywords
			case "description":
				field = &props.Description
			case "lastModifiedBy":
				field = &props.LastModifiedBy
			case "created":
				field = &props.Created
			case "modified":
				field = &props.Modified
			default:
				field = nil
			}
		case sax.Text:
			if field != nil {
				text.WriteString(ev.Text)
			}
		case sax.End:
			if field != nil {
				*field = text.String()
				field = nil
			}
		}
	}
}

// parseSheetXML fills s from its part. styleCount bounds valid style
// ids; cells referencing a missing cell format fall back to the
// default with a warning.
func parseSheetXML(s *Sheet, data []byte, tbl *sst.Table, styleCount int) ([]Warning, error) {
	p := sax.NewBytes(s.partName, data)
	var warns []Warning

	var (
		curRef    a1.Ref
		curType   string
		curStyle  int
		haveCell  bool
		inV, inF  bool
		inIs      bool
		vText     strings.Builder
		fText     strings.Builder
		isText    strings.Builder
		inIST     bool
		flush     func()
		flushWarn func(code, format string, args ...interface{})
	)

	flushWarn = func(code, format string, args ...interface{}) {
		warns = append(warns, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	flush = func() {
		if !haveCell {
			return
		}
		haveCell = false
		v, warn := buildValue(curType, vText.String(), fText.String(), isText.String(), tbl)
		if warn != nil {
			flushWarn(warn.Code, "sheet %q cell %s: %s", s.name, curRef, warn.Message)
		}
		styleID := curStyle
		if styleID >= styleCount || styleID < 0 {
			flushWarn("dangling-style", "sheet %q cell %s references missing style %d", s.name, curRef, styleID)
			styleID = 0
		}
		if v.IsEmpty() && styleID == 0 {
			return
		}
		s.cells[curRef] = &Cell{Ref: curRef, Value: v, StyleID: styleID}
	}

	for {
		ev, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return warns, err
		}
		switch ev.Kind {
		case sax.Start:
			switch ev.Name {
			case "c":
				r, _ := ev.Attr("r")
				ref, err := a1.ParseRef(r)
				if err != nil {
					flushWarn("bad-cell-ref", "sheet %q skipped cell with reference %q", s.name, r)
					haveCell = false
					continue
				}
				curRef = ref
				curType, _ = ev.Attr("t")
				curStyle = 0
				if v, ok := ev.Attr("s"); ok {
					curStyle, _ = strconv.Atoi(v)
				}
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
				if inIs {
					inIST = true
				}
			case "row":
				if r, ok := ev.Attr("r"); ok {
					row, err := strconv.Atoi(r)
					if err == nil && row >= 1 {
						if ht, ok := ev.Attr("ht"); ok {
							if h, err := strconv.ParseFloat(ht, 64); err == nil {
								s.rowHeights[row] = h
							}
						}
						if hid, ok := ev.Attr("hidden"); ok && (hid == "1" || hid == "true") {
							s.hiddenRows[row] = true
						}
					}
				}
			case "col":
				min := attrIntDefault(ev, "min", 0)
				max := attrIntDefault(ev, "max", 0)
				if min >= 1 && max >= min && max <= a1.MaxCol {
					w, haveW := 0.0, false
					if v, ok := ev.Attr("width"); ok {
						if f, err := strconv.ParseFloat(v, 64); err == nil {
							w, haveW = f, true
						}
					}
					hid := false
					if v, ok := ev.Attr("hidden"); ok {
						hid = v == "1" || v == "true"
					}
					for c := min; c <= max; c++ {
						if haveW {
							s.colWidths[c] = w
						}
						if hid {
							s.hiddenCols[c] = true
						}
					}
				}
			case "mergeCell":
				if ref, ok := ev.Attr("ref"); ok {
					if rng, err := a1.ParseRange(ref); err == nil {
						s.merged = append(s.merged, rng)
					}
				}
			case "pane":
				if v, ok := ev.Attr("state"); ok && v == "frozen" {
					f := &Freeze{}
					f.Cols = attrIntDefault(ev, "xSplit", 0)
					f.Rows = attrIntDefault(ev, "ySplit", 0)
					f.TopLeft, _ = ev.Attr("topLeftCell")
					s.freeze = f
				}
			}
		case sax.Text:
			switch {
			case inV:
				vText.WriteString(ev.Text)
			case inF:
				fText.WriteString(ev.Text)
			case inIST:
				isText.WriteString(ev.Text)
			}
		case sax.End:
			switch ev.Name {
			case "v":
				inV = false
			case "f":
				inF = false
			case "t":
				inIST = false
			case "is":
				inIs = false
			case "c":
				flush()
			}
		}
	}
	s.dirty = false
	return warns, nil
}

func attrIntDefault(ev sax.Event, name string, def int) int {
	v, ok := ev.Attr(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// buildValue maps a parsed cell to a typed value following the t
// attribute: s shared string, b boolean, e error, str formula
// string, inlineStr inline, otherwise number. A cell pointing at an
// unresolvable shared string degrades to empty with a warning; one
// bad cell never fails the whole open.
func buildValue(t, v, f, inline string, tbl *sst.Table) (Value, *Warning) {
	base, warn := plainValue(t, v, inline, tbl)
	if f != "" {
		var cached *Value
		if !base.IsEmpty() {
			c := base
			cached = &c
		}
		return Formula(f, cached), warn
	}
	return base, warn
}

func plainValue(t, v, inline string, tbl *sst.Table) (Value, *Warning) {
	switch t {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Value{}, &Warning{
				Code:    "bad-shared-string",
				Message: fmt.Sprintf("unparseable shared string index %q", v),
			}
		}
		s, err := tbl.Resolve(idx)
		if err != nil {
			return Value{}, &Warning{
				Code:    "bad-shared-string",
				Message: fmt.Sprintf("unresolvable shared string index %d", idx),
			}
		}
		return String(s), nil
	case "b":
		return Bool(strings.TrimSpace(v) == "1"), nil
	case "e":
		return ErrorValue(strings.TrimSpace(v)), nil
	case "str":
		return String(v), nil
	case "inlineStr":
		return String(inline), nil
	default:
		if strings.TrimSpace(v) == "" {
			return Value{}, nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return String(v), nil
		}
		return Number(n), nil
	}
}
