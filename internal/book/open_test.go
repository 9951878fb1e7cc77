package book

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/container"
	"github.com/fuabioo/sheetq/internal/sax"
)

// createTestFile builds a small workbook with excelize so opening
// exercises an independently produced file.
func createTestFile(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.xlsx")

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetCellValue("Sheet1", "A1", "Name"); err != nil {
		t.Fatalf("failed to set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Score"); err != nil {
		t.Fatalf("failed to set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "A2", "alice"); err != nil {
		t.Fatalf("failed to set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B2", 42); err != nil {
		t.Fatalf("failed to set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "A3", "bob"); err != nil {
		t.Fatalf("failed to set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "B3", 7.5); err != nil {
		t.Fatalf("failed to set cell: %v", err)
	}
	if err := f.SetCellValue("Sheet1", "C3", true); err != nil {
		t.Fatalf("failed to set cell: %v", err)
	}
	if err := f.SetCellFormula("Sheet1", "D2", "B2*2"); err != nil {
		t.Fatalf("failed to set formula: %v", err)
	}
	if err := f.MergeCell("Sheet1", "A5", "B6"); err != nil {
		t.Fatalf("failed to merge: %v", err)
	}

	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("failed to create sheet: %v", err)
	}
	if err := f.SetCellValue("Data", "A1", "alice"); err != nil {
		t.Fatalf("failed to set cell: %v", err)
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	return path
}

func TestOpen(t *testing.T) {
	path := createTestFile(t)

	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer wb.Close()

	if got := wb.SheetNames(); len(got) != 2 || got[0] != "Sheet1" || got[1] != "Data" {
		t.Errorf("SheetNames = %v", got)
	}

	s, err := wb.Sheet("Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Value(a1.MustRef("A2")); got.Kind != KindString || got.Str != "alice" {
		t.Errorf("A2 = %+v", got)
	}
	if got := s.Value(a1.MustRef("B2")); got.Kind != KindNumber || got.Num != 42 {
		t.Errorf("B2 = %+v", got)
	}
	if got := s.Value(a1.MustRef("C3")); got.Kind != KindBool || !got.Bool {
		t.Errorf("C3 = %+v", got)
	}
	if got := s.Value(a1.MustRef("D2")); got.Kind != KindFormula || got.Formula != "B2*2" {
		t.Errorf("D2 = %+v", got)
	}
	if merged := s.Merged(); len(merged) != 1 || merged[0].String() != "A5:B6" {
		t.Errorf("Merged = %v", merged)
	}

	// "alice" appears on both sheets and must share one table entry.
	d, _ := wb.Sheet("Data")
	if got := d.Value(a1.MustRef("A1")).Str; got != "alice" {
		t.Errorf("Data!A1 = %q", got)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open("/nonexistent/file.xlsx"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Open("file.txt"); !errors.Is(err, ErrNotXlsx) {
		t.Errorf("wrong extension = %v; want ErrNotXlsx", err)
	}

	if _, err := OpenBytes([]byte("not a zip archive at all")); !errors.Is(err, container.ErrCorrupt) {
		t.Errorf("garbage bytes = %v; want ErrCorrupt", err)
	}
}

// zipFixture assembles an archive from part name/content pairs.
func zipFixture(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func minimalParts() map[string]string {
	return map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`,
		"xl/workbook.xml": `<?xml version="1.0"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Only" sheetId="1" r:id="rId1"/></sheets>
</workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
</Relationships>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData><row r="1"><c r="A1"><v>1</v></c></row></sheetData>
</worksheet>`,
	}
}

func TestOpenMissingRequiredEntry(t *testing.T) {
	parts := minimalParts()
	delete(parts, "xl/workbook.xml")
	_, err := OpenBytes(zipFixture(t, parts))
	if !errors.Is(err, container.ErrMissingEntry) {
		t.Errorf("missing workbook part = %v; want ErrMissingEntry", err)
	}
}

func TestOpenMalformedSheetXML(t *testing.T) {
	parts := minimalParts()
	parts["xl/worksheets/sheet1.xml"] = `<worksheet><sheetData><row r="1">`
	_, err := OpenBytes(zipFixture(t, parts))
	if !errors.Is(err, sax.ErrParse) {
		t.Errorf("truncated sheet part = %v; want ErrParse", err)
	}
}

func TestOpenDanglingStyleWarns(t *testing.T) {
	parts := minimalParts()
	parts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData><row r="1"><c r="A1" s="99"><v>1</v></c></row></sheetData>
</worksheet>`
	wb, err := OpenBytes(zipFixture(t, parts))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer wb.Close()

	s, _ := wb.Sheet("Only")
	cell := s.Cell(a1.MustRef("A1"))
	if cell == nil || cell.StyleID != 0 {
		t.Errorf("cell style = %+v; want 0", cell)
	}
	warned := false
	for _, w := range wb.Warnings() {
		if w.Code == "dangling-style" {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected dangling-style warning, got %v", wb.Warnings())
	}
}

func TestOpenBadCellRefSkipsCell(t *testing.T) {
	parts := minimalParts()
	parts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData><row r="1"><c r="ZZZZ99"><v>1</v></c><c r="B1"><v>2</v></c></row></sheetData>
</worksheet>`
	wb, err := OpenBytes(zipFixture(t, parts))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer wb.Close()

	s, _ := wb.Sheet("Only")
	if s.CellCount() != 1 {
		t.Errorf("CellCount = %d; want 1", s.CellCount())
	}
	if len(wb.Warnings()) == 0 {
		t.Error("expected a warning for the unparseable reference")
	}
}

func TestOpenLargeFileUsesMmap(t *testing.T) {
	path := createTestFile(t)

	// Pad the archive past the mapping threshold with stored data.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	big := filepath.Join(t.TempDir(), "big.xlsx")
	out, err := os.Create(big)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	for _, f := range zr.File {
		if err := zw.Copy(f); err != nil {
			t.Fatal(err)
		}
	}
	pad, err := zw.CreateHeader(&zip.FileHeader{Name: "xl/media/pad.bin", Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	junk := make([]byte, 1<<20)
	for i := range junk {
		junk[i] = byte(i * 7)
	}
	for written := 0; written < container.MmapThreshold; written += len(junk) {
		if _, err := pad.Write(junk); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	wb, err := Open(big)
	if err != nil {
		t.Fatalf("Open large: %v", err)
	}
	defer wb.Close()

	if !wb.source.Mapped() {
		t.Error("expected memory-mapped access above the threshold")
	}
	s, _ := wb.Sheet("Sheet1")
	if got := s.Value(a1.MustRef("A2")).Str; got != "alice" {
		t.Errorf("A2 = %q", got)
	}
}

func TestOpenDanglingSharedStringIndex(t *testing.T) {
	parts := minimalParts()
	parts["xl/sharedStrings.xml"] = `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="1" uniqueCount="1"><si><t>kept</t></si></sst>`
	parts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData><row r="1"><c r="A1" t="s"><v>99</v></c><c r="B1" t="s"><v>0</v></c></row></sheetData>
</worksheet>`
	wb, err := OpenBytes(zipFixture(t, parts))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer wb.Close()

	s, _ := wb.Sheet("Only")
	if v := s.Value(a1.MustRef("A1")); !v.IsEmpty() {
		t.Errorf("A1 = %+v; want empty for dangling index", v)
	}
	if v := s.Value(a1.MustRef("B1")); v.Str != "kept" {
		t.Errorf("B1 = %+v; want the resolvable entry", v)
	}
	warned := false
	for _, w := range wb.Warnings() {
		if w.Code == "bad-shared-string" {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected bad-shared-string warning, got %v", wb.Warnings())
	}
}

func TestOpenSharedStringCellWithoutTable(t *testing.T) {
	parts := minimalParts()
	parts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData><row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1"><v>2</v></c></row></sheetData>
</worksheet>`
	wb, err := OpenBytes(zipFixture(t, parts))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer wb.Close()

	s, _ := wb.Sheet("Only")
	if v := s.Value(a1.MustRef("A1")); !v.IsEmpty() {
		t.Errorf("A1 = %+v; want empty when no string table exists", v)
	}
	if v := s.Value(a1.MustRef("B1")); v.Num != 2 {
		t.Errorf("B1 = %+v; want 2", v)
	}
	if len(wb.Warnings()) == 0 {
		t.Error("expected a warning for the unresolvable shared string")
	}
}

func TestReadCellDanglingSharedString(t *testing.T) {
	parts := minimalParts()
	parts["xl/sharedStrings.xml"] = `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="1" uniqueCount="1"><si><t>kept</t></si></sst>`
	parts["xl/worksheets/sheet1.xml"] = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData><row r="1"><c r="A1" t="s"><v>99</v></c><c r="B1" t="s"><v>0</v></c></row></sheetData>
</worksheet>`
	lw, err := OpenLazyBytes(zipFixture(t, parts))
	if err != nil {
		t.Fatalf("OpenLazyBytes: %v", err)
	}
	defer lw.Close()

	v, err := lw.ReadCell("Only", a1.MustRef("A1"))
	if err != nil {
		t.Fatalf("ReadCell A1: %v", err)
	}
	if !v.IsEmpty() {
		t.Errorf("A1 = %+v; want empty for dangling index", v)
	}
	v, err = lw.ReadCell("Only", a1.MustRef("B1"))
	if err != nil {
		t.Fatalf("ReadCell B1: %v", err)
	}
	if v.Str != "kept" {
		t.Errorf("B1 = %+v; want the resolvable entry", v)
	}
}

func TestOpenCorruptSharedStringsPart(t *testing.T) {
	parts := minimalParts()
	parts["xl/sharedStrings.xml"] = `<sst><si><t>truncated`
	wb, err := OpenBytes(zipFixture(t, parts))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer wb.Close()

	if len(wb.Warnings()) == 0 {
		t.Error("expected a warning for the unreadable string table")
	}
	s, _ := wb.Sheet("Only")
	if v := s.Value(a1.MustRef("A1")); v.Num != 1 {
		t.Errorf("A1 = %+v; want 1", v)
	}
}

func TestOpenWithStringCache(t *testing.T) {
	parts := minimalParts()
	parts["xl/sharedStrings.xml"] = `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2"><si><t>a</t></si><si><t>b</t></si></sst>`

	wb, err := OpenBytes(zipFixture(t, parts), WithStringCache(7))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer wb.Close()
	if got := wb.Strings().CacheCap(); got != 7 {
		t.Errorf("eager cache cap = %d; want 7", got)
	}

	lw, err := OpenLazyBytes(zipFixture(t, parts), WithStringCache(3))
	if err != nil {
		t.Fatalf("OpenLazyBytes: %v", err)
	}
	defer lw.Close()
	if got := lw.strings.CacheCap(); got != 3 {
		t.Errorf("lazy cache cap = %d; want 3", got)
	}
	if s, err := lw.strings.Resolve(1); err != nil || s != "b" {
		t.Errorf("Resolve(1) = %q, %v; want b", s, err)
	}
}
