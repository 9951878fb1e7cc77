package styles

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteXML serialises the registry as a complete styles part. Table
// order is fixed (numFmts, fonts, fills, borders, cellStyleXfs,
// cellXfs, cellStyles) so output is deterministic.
func (r *Registry) WriteXML(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`)

	if len(r.numFmtCodes) > 0 {
		ids := make([]int, 0, len(r.numFmtCodes))
		for id := range r.numFmtCodes {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		fmt.Fprintf(&sb, `<numFmts count="%d">`, len(ids))
		for _, id := range ids {
			fmt.Fprintf(&sb, `<numFmt numFmtId="%d" formatCode="%s"/>`, id, escapeAttr(r.numFmtCodes[id]))
		}
		sb.WriteString(`</numFmts>`)
	}

	fmt.Fprintf(&sb, `<fonts count="%d">`, len(r.fonts))
	for _, f := range r.fonts {
		sb.WriteString(`<font>`)
		if f.Bold {
			sb.WriteString(`<b/>`)
		}
		if f.Italic {
			sb.WriteString(`<i/>`)
		}
		if f.Underline {
			sb.WriteString(`<u/>`)
		}
		if f.Strike {
			sb.WriteString(`<strike/>`)
		}
		fmt.Fprintf(&sb, `<sz val="%s"/>`, formatFloat(f.Size))
		if f.Color != "" {
			fmt.Fprintf(&sb, `<color rgb="%s"/>`, escapeAttr(f.Color))
		}
		fmt.Fprintf(&sb, `<name val="%s"/>`, escapeAttr(f.Name))
		sb.WriteString(`</font>`)
	}
	sb.WriteString(`</fonts>`)

	fmt.Fprintf(&sb, `<fills count="%d">`, len(r.fills))
	for _, f := range r.fills {
		sb.WriteString(`<fill><patternFill patternType="` + escapeAttr(f.Pattern) + `"`)
		if f.FgColor == "" && f.BgColor == "" {
			sb.WriteString(`/></fill>`)
			continue
		}
		sb.WriteString(`>`)
		if f.FgColor != "" {
			fmt.Fprintf(&sb, `<fgColor rgb="%s"/>`, escapeAttr(f.FgColor))
		}
		if f.BgColor != "" {
			fmt.Fprintf(&sb, `<bgColor rgb="%s"/>`, escapeAttr(f.BgColor))
		}
		sb.WriteString(`</patternFill></fill>`)
	}
	sb.WriteString(`</fills>`)

	fmt.Fprintf(&sb, `<borders count="%d">`, len(r.borders))
	for _, b := range r.borders {
		sb.WriteString(`<border>`)
		writeSide(&sb, "left", b.Left)
		writeSide(&sb, "right", b.Right)
		writeSide(&sb, "top", b.Top)
		writeSide(&sb, "bottom", b.Bottom)
		writeSide(&sb, "diagonal", b.Diagonal)
		sb.WriteString(`</border>`)
	}
	sb.WriteString(`</borders>`)

	sb.WriteString(`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>`)

	fmt.Fprintf(&sb, `<cellXfs count="%d">`, len(r.xfs))
	for _, x := range r.xfs {
		fmt.Fprintf(&sb, `<xf numFmtId="%d" fontId="%d" fillId="%d" borderId="%d" xfId="0"`,
			x.NumFmtID, x.FontID, x.FillID, x.BorderID)
		var applies []string
		if x.NumFmtID != 0 {
			applies = append(applies, `applyNumberFormat="1"`)
		}
		if x.FontID != 0 {
			applies = append(applies, `applyFont="1"`)
		}
		if x.FillID != 0 {
			applies = append(applies, `applyFill="1"`)
		}
		if x.BorderID != 0 {
			applies = append(applies, `applyBorder="1"`)
		}
		if x.Align != (Alignment{}) {
			applies = append(applies, `applyAlignment="1"`)
		}
		for _, a := range applies {
			sb.WriteString(" " + a)
		}
		if x.Align == (Alignment{}) {
			sb.WriteString(`/>`)
		} else {
			sb.WriteString(`><alignment`)
			if x.Align.Horizontal != "" {
				fmt.Fprintf(&sb, ` horizontal="%s"`, escapeAttr(x.Align.Horizontal))
			}
			if x.Align.Vertical != "" {
				fmt.Fprintf(&sb, ` vertical="%s"`, escapeAttr(x.Align.Vertical))
			}
			if x.Align.WrapText {
				sb.WriteString(` wrapText="1"`)
			}
			sb.WriteString(`/></xf>`)
		}
	}
	sb.WriteString(`</cellXfs>`)

	sb.WriteString(`<cellStyles count="1"><cellStyle name="Normal" xfId="0" builtinId="0"/></cellStyles>`)
	sb.WriteString(`</styleSheet>`)

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeSide(sb *strings.Builder, name string, s BorderSide) {
	if s.Style == "" {
		sb.WriteString("<" + name + "/>")
		return
	}
	fmt.Fprintf(sb, `<%s style="%s">`, name, escapeAttr(s.Style))
	if s.Color != "" {
		fmt.Fprintf(sb, `<color rgb="%s"/>`, escapeAttr(s.Color))
	}
	sb.WriteString("</" + name + ">")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escapeAttr(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
