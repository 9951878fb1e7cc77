package styles

import (
	"io"
	"strconv"

	"github.com/fuabioo/sheetq/internal/sax"
)

// Parse loads a styles part. Records keep the indices the part gave
// them, duplicates included, so existing cell style ids stay valid.
func Parse(data []byte) (*Registry, error) {
	r := &Registry{
		numFmtCodes: make(map[int]string),
		numFmtIDs:   make(map[string]int),
		nextNumFmt:  FirstCustomNumFmt,
		fontIDs:     make(map[Font]int),
		fillIDs:     make(map[Fill]int),
		borderIDs:   make(map[Border]int),
		xfIDs:       make(map[xf]int),
	}

	p := sax.NewBytes("xl/styles.xml", data)

	var (
		section  string // "fonts", "fills", "borders", "cellXfs"
		curFont  *Font
		curFill  *Fill
		curBrd   *Border
		curSide  *BorderSide
		curXf    *xf
	)

	for {
		ev, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch ev.Kind {
		case sax.Start:
			switch ev.Name {
			case "fonts", "fills", "borders", "cellXfs":
				section = ev.Name
			case "cellStyleXfs":
				// Same shape as cellXfs but not cell-addressable.
				if err := p.Skip(); err != nil {
					return nil, err
				}
			case "numFmt":
				id := attrInt(ev, "numFmtId", -1)
				code, _ := ev.Attr("formatCode")
				if id >= 0 {
					r.numFmtCodes[id] = code
					if _, ok := r.numFmtIDs[code]; !ok {
						r.numFmtIDs[code] = id
					}
					if id >= r.nextNumFmt {
						r.nextNumFmt = id + 1
					}
				}
			case "font":
				if section == "fonts" {
					f := DefaultFont()
					curFont = &f
				}
			case "name":
				if curFont != nil {
					if v, ok := ev.Attr("val"); ok {
						curFont.Name = v
					}
				}
			case "sz":
				if curFont != nil {
					if v, ok := ev.Attr("val"); ok {
						if sz, err := strconv.ParseFloat(v, 64); err == nil {
							curFont.Size = sz
						}
					}
				}
			case "b":
				if curFont != nil {
					curFont.Bold = attrBool(ev, "val", true)
				}
			case "i":
				if curFont != nil {
					curFont.Italic = attrBool(ev, "val", true)
				}
			case "u":
				if curFont != nil {
					curFont.Underline = true
				}
			case "strike":
				if curFont != nil {
					curFont.Strike = attrBool(ev, "val", true)
				}
			case "color":
				rgb, ok := ev.Attr("rgb")
				if !ok {
					break
				}
				switch {
				case curSide != nil:
					curSide.Color = rgb
				case curFont != nil:
					curFont.Color = rgb
				}
			case "fill":
				if section == "fills" {
					curFill = &Fill{Pattern: "none"}
				}
			case "patternFill":
				if curFill != nil {
					if v, ok := ev.Attr("patternType"); ok {
						curFill.Pattern = v
					}
				}
			case "fgColor":
				if curFill != nil {
					if v, ok := ev.Attr("rgb"); ok {
						curFill.FgColor = v
					}
				}
			case "bgColor":
				if curFill != nil {
					if v, ok := ev.Attr("rgb"); ok {
						curFill.BgColor = v
					}
				}
			case "border":
				if section == "borders" {
					curBrd = &Border{}
				}
			case "left", "right", "top", "bottom", "diagonal":
				if curBrd == nil {
					break
				}
				side := BorderSide{}
				if v, ok := ev.Attr("style"); ok {
					side.Style = v
				}
				switch ev.Name {
				case "left":
					curBrd.Left = side
					curSide = &curBrd.Left
				case "right":
					curBrd.Right = side
					curSide = &curBrd.Right
				case "top":
					curBrd.Top = side
					curSide = &curBrd.Top
				case "bottom":
					curBrd.Bottom = side
					curSide = &curBrd.Bottom
				case "diagonal":
					curBrd.Diagonal = side
					curSide = &curBrd.Diagonal
				}
			case "xf":
				if section == "cellXfs" {
					curXf = &xf{
						FontID:   attrInt(ev, "fontId", 0),
						FillID:   attrInt(ev, "fillId", 0),
						BorderID: attrInt(ev, "borderId", 0),
						NumFmtID: attrInt(ev, "numFmtId", 0),
					}
				}
			case "alignment":
				if curXf != nil {
					curXf.Align.Horizontal, _ = ev.Attr("horizontal")
					curXf.Align.Vertical, _ = ev.Attr("vertical")
					curXf.Align.WrapText = attrBool(ev, "wrapText", false)
				}
			}

		case sax.End:
			switch ev.Name {
			case "fonts", "fills", "borders", "cellXfs":
				section = ""
			case "font":
				if curFont != nil {
					id := len(r.fonts)
					r.fonts = append(r.fonts, *curFont)
					if _, ok := r.fontIDs[*curFont]; !ok {
						r.fontIDs[*curFont] = id
					}
					curFont = nil
				}
			case "fill":
				if curFill != nil {
					id := len(r.fills)
					r.fills = append(r.fills, *curFill)
					if _, ok := r.fillIDs[*curFill]; !ok {
						r.fillIDs[*curFill] = id
					}
					curFill = nil
				}
			case "border":
				if curBrd != nil {
					id := len(r.borders)
					r.borders = append(r.borders, *curBrd)
					if _, ok := r.borderIDs[*curBrd]; !ok {
						r.borderIDs[*curBrd] = id
					}
					curBrd = nil
				}
			case "left", "right", "top", "bottom", "diagonal":
				curSide = nil
			case "xf":
				if curXf != nil {
					id := len(r.xfs)
					r.xfs = append(r.xfs, *curXf)
					if _, ok := r.xfIDs[*curXf]; !ok {
						r.xfIDs[*curXf] = id
					}
					curXf = nil
				}
			}
		}
	}

	// A part with no tables at all still needs the reserved records.
	if len(r.xfs) == 0 {
		if len(r.fonts) == 0 {
			r.addFont(DefaultFont())
		}
		if len(r.fills) == 0 {
			r.addFill(Fill{Pattern: "none"})
			r.addFill(Fill{Pattern: "gray125"})
		}
		if len(r.borders) == 0 {
			r.addBorder(Border{})
		}
		r.addXf(xf{})
	}
	r.dirty = false
	return r, nil
}

func attrInt(ev sax.Event, name string, def int) int {
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

func attrBool(ev sax.Event, name string, def bool) bool {
	v, ok := ev.Attr(name)
	if !ok {
		return def
	}
	return v == "1" || v == "true"
}
