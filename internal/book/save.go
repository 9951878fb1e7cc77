package book

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	nsMain = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRels = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relWorksheet = nsRels + "/worksheet"
	relStyles    = nsRels + "/styles"
	relStrings   = nsRels + "/sharedStrings"

	ctWorkbook = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	ctSheet    = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	ctStyles   = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	ctStrings  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	ctCore     = "application/vnd.openxmlformats-package.core-properties+xml"
	ctApp      = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
)

// Save writes the workbook back to the path it was opened from.
func (wb *Workbook) Save() error {
	if wb.path == "" {
		return ErrNoPath
	}
	return wb.SaveAs(wb.path)
}

// SaveAs writes the workbook to path. The output is assembled in a
// temp file in the destination directory and renamed into place so a
// failed save never leaves a half-written workbook. Parts whose
// content is unchanged are copied byte-for-byte from the source
// container; only dirty parts are regenerated.
func (wb *Workbook) SaveAs(path string) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()[:8]))

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(f)
	if err = wb.writeParts(zw); err != nil {
		zw.Close()
		return err
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		return err
	}
	if wb.path == "" {
		wb.path = path
	}
	return nil
}

func (wb *Workbook) writeParts(zw *zip.Writer) error {
	// Assign part names to sheets created in memory.
	used := make(map[string]bool)
	if wb.source != nil {
		for _, p := range wb.source.Parts() {
			used[p] = true
		}
	}
	for _, s := range wb.sheets {
		used[s.partName] = true
	}
	newSheet := false
	for _, s := range wb.sheets {
		if s.partName != "" {
			continue
		}
		newSheet = true
		for n := 1; ; n++ {
			cand := fmt.Sprintf("xl/worksheets/sheet%d.xml", n)
			if !used[cand] {
				s.partName = cand
				used[cand] = true
				break
			}
		}
	}

	structure := wb.structureDirty || newSheet || len(wb.removedParts) > 0
	writeStrings := wb.strings.Count() > 0
	if wb.source != nil && writeStrings && !wb.source.Has("xl/sharedStrings.xml") {
		structure = true // the new part needs rels and content type entries
	}
	if wb.source != nil && wb.styles.Dirty() && !wb.source.Has("xl/styles.xml") {
		structure = true
	}

	gen := map[string]func(io.Writer) error{}
	if wb.source == nil || structure {
		gen["[Content_Types].xml"] = func(w io.Writer) error { return wb.writeContentTypes(w, writeStrings) }
		gen["xl/workbook.xml"] = wb.writeWorkbookXML
		gen["xl/_rels/workbook.xml.rels"] = func(w io.Writer) error { return wb.writeWorkbookRels(w, writeStrings) }
		gen["docProps/app.xml"] = wb.writeAppProps
	}
	if wb.source == nil {
		gen["_rels/.rels"] = wb.writeRootRels
		gen["docProps/core.xml"] = wb.writeCoreProps
		gen["xl/styles.xml"] = wb.stylesWriter
	} else {
		if wb.propsDirty || !wb.source.Has("docProps/core.xml") {
			gen["docProps/core.xml"] = wb.writeCoreProps
		}
		if wb.styles.Dirty() || !wb.source.Has("xl/styles.xml") {
			gen["xl/styles.xml"] = wb.stylesWriter
		}
	}
	if writeStrings && (wb.source == nil || wb.strings.Dirty() || !wb.source.Has("xl/sharedStrings.xml")) {
		gen["xl/sharedStrings.xml"] = wb.strings.WriteXML
	}
	for _, s := range wb.sheets {
		if s.dirty || wb.source == nil || !wb.source.Has(s.partName) {
			gen[s.partName] = wb.sheetWriter(s)
		}
	}

	skip := make(map[string]bool, len(wb.removedParts))
	for _, p := range wb.removedParts {
		skip[p] = true
		skip[sheetRelsPart(p)] = true
	}

	// Source parts first, in archive order: regenerated, copied, or
	// dropped. New parts follow sorted for determinism.
	if wb.source != nil {
		for _, name := range wb.source.Parts() {
			if skip[name] {
				continue
			}
			if genFn, ok := gen[name]; ok {
				if err := writeGenerated(zw, name, genFn); err != nil {
					return err
				}
				delete(gen, name)
				continue
			}
			src, _ := wb.source.File(name)
			if err := zw.Copy(src); err != nil {
				return fmt.Errorf("copying %s: %w", name, err)
			}
		}
	}
	rest := make([]string, 0, len(gen))
	for name := range gen {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		if err := writeGenerated(zw, name, gen[name]); err != nil {
			return err
		}
	}
	return nil
}

func writeGenerated(zw *zip.Writer, name string, fn func(io.Writer) error) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func sheetRelsPart(part string) string {
	dir, base := filepath.Split(part)
	return dir + "_rels/" + base + ".rels"
}

func (wb *Workbook) stylesWriter(w io.Writer) error {
	return wb.styles.WriteXML(w)
}

func (wb *Workbook) writeContentTypes(w io.Writer, withStrings bool) error {
	defaults := map[string]string{}
	for k, v := range defaultCTDefaults() {
		defaults[k] = v
	}
	for k, v := range wb.ctDefaults {
		defaults[k] = v
	}

	overrides := map[string]string{}
	for part, ct := range wb.ctOverrides {
		overrides[part] = ct
	}
	for _, p := range wb.removedParts {
		delete(overrides, p)
	}
	overrides["xl/workbook.xml"] = ctWorkbook
	for _, s := range wb.sheets {
		overrides[s.partName] = ctSheet
	}
	overrides["xl/styles.xml"] = ctStyles
	if withStrings {
		overrides["xl/sharedStrings.xml"] = ctStrings
	} else {
		delete(overrides, "xl/sharedStrings.xml")
	}
	overrides["docProps/core.xml"] = ctCore
	overrides["docProps/app.xml"] = ctApp

	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	exts := sortedKeys(defaults)
	for _, e := range exts {
		fmt.Fprintf(&sb, `<Default Extension="%s" ContentType="%s"/>`, escape(e), escape(defaults[e]))
	}
	parts := sortedKeys(overrides)
	for _, p := range parts {
		fmt.Fprintf(&sb, `<Override PartName="/%s" ContentType="%s"/>`, escape(p), escape(overrides[p]))
	}
	sb.WriteString(`</Types>`)
	_, err := io.WriteString(w, sb.String())
	return err
}

func (wb *Workbook) writeRootRels(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	fmt.Fprintf(&sb, `<Relationship Id="rId1" Type="%s/officeDocument" Target="xl/workbook.xml"/>`, nsRels)
	sb.WriteString(`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>`)
	fmt.Fprintf(&sb, `<Relationship Id="rId3" Type="%s/extended-properties" Target="docProps/app.xml"/>`, nsRels)
	sb.WriteString(`</Relationships>`)
	_, err := io.WriteString(w, sb.String())
	return err
}

func (wb *Workbook) writeWorkbookRels(w io.Writer, withStrings bool) error {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	id := 0
	for _, s := range wb.sheets {
		id++
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s" Target="%s"/>`,
			id, relWorksheet, escape(strings.TrimPrefix(s.partName, "xl/")))
	}
	id++
	fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s" Target="styles.xml"/>`, id, relStyles)
	if withStrings {
		id++
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s" Target="sharedStrings.xml"/>`, id, relStrings)
	}
	for _, r := range wb.extraRels {
		id++
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s" Target="%s"/>`, id, escape(r.Type), escape(r.Target))
	}
	sb.WriteString(`</Relationships>`)
	_, err := io.WriteString(w, sb.String())
	return err
}

func (wb *Workbook) writeWorkbookXML(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<workbook xmlns="%s" xmlns:r="%s">`, nsMain, nsRels)
	fmt.Fprintf(&sb, `<bookViews><workbookView activeTab="%d"/></bookViews>`, wb.active)
	sb.WriteString(`<sheets>`)
	for i, s := range wb.sheets {
		fmt.Fprintf(&sb, `<sheet name="%s" sheetId="%d"`, escape(s.name), s.sheetID)
		if s.visibility != Visible {
			fmt.Fprintf(&sb, ` state="%s"`, s.visibility)
		}
		fmt.Fprintf(&sb, ` r:id="rId%d"/>`, i+1)
	}
	sb.WriteString(`</sheets>`)
	if len(wb.names) > 0 {
		sb.WriteString(`<definedNames>`)
		for _, dn := range wb.names {
			fmt.Fprintf(&sb, `<definedName name="%s"`, escape(dn.Name))
			if dn.LocalSheet >= 0 {
				fmt.Fprintf(&sb, ` localSheetId="%d"`, dn.LocalSheet)
			}
			if dn.Comment != "" {
				fmt.Fprintf(&sb, ` comment="%s"`, escape(dn.Comment))
			}
			if dn.Hidden {
				sb.WriteString(` hidden="1"`)
			}
			sb.WriteString(`>` + escape(dn.Reference) + `</definedName>`)
		}
		sb.WriteString(`</definedNames>`)
	}
	sb.WriteString(`</workbook>`)
	_, err := io.WriteString(w, sb.String())
	return err
}

func (wb *Workbook) writeCoreProps(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	writeProp(&sb, "dc:title", wb.props.Title)
	writeProp(&sb, "dc:subject", wb.props.Subject)
	writeProp(&sb, "dc:creator", wb.props.Creator)
	writeProp(&sb, "cp:keywords", wb.props.Keywords)
	writeProp(&sb, "dc:description", wb.props.Description)
	writeProp(&sb, "cp:lastModifiedBy", wb.props.LastModifiedBy)
	if wb.props.Created != "" {
		fmt.Fprintf(&sb, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, escape(wb.props.Created))
	}
	if wb.props.Modified != "" {
		fmt.Fprintf(&sb, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, escape(wb.props.Modified))
	}
	sb.WriteString(`</cp:coreProperties>`)
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeProp(sb *strings.Builder, tag, val string) {
	if val == "" {
		return
	}
	sb.WriteString("<" + tag + ">" + escape(val) + "</" + tag + ">")
}

func (wb *Workbook) writeAppProps(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">`)
	sb.WriteString(`<Application>sheetq</Application>`)
	fmt.Fprintf(&sb, `<HeadingPairs><vt:vector size="2" baseType="variant"><vt:variant><vt:lpstr>Worksheets</vt:lpstr></vt:variant><vt:variant><vt:i4>%d</vt:i4></vt:variant></vt:vector></HeadingPairs>`, len(wb.sheets))
	fmt.Fprintf(&sb, `<TitlesOfParts><vt:vector size="%d" baseType="lpstr">`, len(wb.sheets))
	for _, s := range wb.sheets {
		sb.WriteString(`<vt:lpstr>` + escape(s.name) + `</vt:lpstr>`)
	}
	sb.WriteString(`</vt:vector></TitlesOfParts></Properties>`)
	_, err := io.WriteString(w, sb.String())
	return err
}

// sheetWriter serialises one sheet part. Shared strings go through
// the table so duplicates reuse existing indices.
func (wb *Workbook) sheetWriter(s *Sheet) func(io.Writer) error {
	return func(w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(xmlHeader)
		fmt.Fprintf(&sb, `<worksheet xmlns="%s" xmlns:r="%s">`, nsMain, nsRels)

		if ur, ok := s.UsedRange(); ok {
			fmt.Fprintf(&sb, `<dimension ref="%s"/>`, ur)
		}
		if s.freeze != nil {
			sb.WriteString(`<sheetViews><sheetView workbookViewId="0">`)
			fmt.Fprintf(&sb, `<pane xSplit="%d" ySplit="%d"`, s.freeze.Cols, s.freeze.Rows)
			if s.freeze.TopLeft != "" {
				fmt.Fprintf(&sb, ` topLeftCell="%s"`, escape(s.freeze.TopLeft))
			}
			sb.WriteString(` state="frozen"/></sheetView></sheetViews>`)
		}

		cols := colSpecs(s)
		if len(cols) > 0 {
			sb.WriteString(`<cols>`)
			for _, c := range cols {
				fmt.Fprintf(&sb, `<col min="%d" max="%d"`, c.col, c.col)
				if c.haveWidth {
					fmt.Fprintf(&sb, ` width="%s" customWidth="1"`, formatFloatAttr(c.width))
				}
				if c.hidden {
					sb.WriteString(` hidden="1"`)
				}
				sb.WriteString(`/>`)
			}
			sb.WriteString(`</cols>`)
		}

		sb.WriteString(`<sheetData>`)
		for _, row := range s.Rows() {
			fmt.Fprintf(&sb, `<row r="%d"`, row.Row)
			if h, ok := s.rowHeights[row.Row]; ok {
				fmt.Fprintf(&sb, ` ht="%s" customHeight="1"`, formatFloatAttr(h))
			}
			if s.hiddenRows[row.Row] {
				sb.WriteString(` hidden="1"`)
			}
			sb.WriteString(`>`)
			for _, c := range row.Cells {
				if err := wb.writeCell(&sb, c); err != nil {
					return err
				}
			}
			sb.WriteString(`</row>`)
		}
		sb.WriteString(`</sheetData>`)

		if len(s.merged) > 0 {
			fmt.Fprintf(&sb, `<mergeCells count="%d">`, len(s.merged))
			for _, m := range s.merged {
				fmt.Fprintf(&sb, `<mergeCell ref="%s"/>`, m)
			}
			sb.WriteString(`</mergeCells>`)
		}
		sb.WriteString(`</worksheet>`)
		_, err := io.WriteString(w, sb.String())
		return err
	}
}

func (wb *Workbook) writeCell(sb *strings.Builder, c *Cell) error {
	fmt.Fprintf(sb, `<c r="%s"`, c.Ref)
	if c.StyleID != 0 {
		fmt.Fprintf(sb, ` s="%d"`, c.StyleID)
	}
	v := c.Value
	switch v.Kind {
	case KindEmpty:
		sb.WriteString(`/>`)
		return nil
	case KindString:
		idx, err := wb.strings.Add(v.Str)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, ` t="s"><v>%d</v></c>`, idx)
	case KindNumber:
		fmt.Fprintf(sb, `><v>%s</v></c>`, formatNumber(v.Num))
	case KindBool:
		b := "0"
		if v.Bool {
			b = "1"
		}
		fmt.Fprintf(sb, ` t="b"><v>%s</v></c>`, b)
	case KindError:
		fmt.Fprintf(sb, ` t="e"><v>%s</v></c>`, escape(v.Str))
	case KindFormula:
		cached := v.Cached
		if cached != nil && cached.Kind == KindString {
			sb.WriteString(` t="str"`)
		} else if cached != nil && cached.Kind == KindBool {
			sb.WriteString(` t="b"`)
		} else if cached != nil && cached.Kind == KindError {
			sb.WriteString(` t="e"`)
		}
		sb.WriteString(`><f>` + escape(v.Formula) + `</f>`)
		if cached != nil {
			switch cached.Kind {
			case KindNumber:
				fmt.Fprintf(sb, `<v>%s</v>`, formatNumber(cached.Num))
			case KindString, KindError:
				sb.WriteString(`<v>` + escape(cached.Str) + `</v>`)
			case KindBool:
				b := "0"
				if cached.Bool {
					b = "1"
				}
				sb.WriteString(`<v>` + b + `</v>`)
			}
		}
		sb.WriteString(`</c>`)
	}
	return nil
}

type colSpec struct {
	col       int
	width     float64
	haveWidth bool
	hidden    bool
}

func colSpecs(s *Sheet) []colSpec {
	set := map[int]*colSpec{}
	for c, w := range s.colWidths {
		set[c] = &colSpec{col: c, width: w, haveWidth: true}
	}
	for c := range s.hiddenCols {
		if sp, ok := set[c]; ok {
			sp.hidden = true
		} else {
			set[c] = &colSpec{col: c, hidden: true}
		}
	}
	out := make([]colSpec, 0, len(set))
	for _, sp := range set {
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].col < out[j].col })
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func formatFloatAttr(f float64) string {
	return fmt.Sprintf("%g", f)
}
