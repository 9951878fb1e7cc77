package book

import (
	"fmt"
	"strings"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/container"
	"github.com/fuabioo/sheetq/internal/formula"
	"github.com/fuabioo/sheetq/internal/sst"
	"github.com/fuabioo/sheetq/internal/styles"
)

// Properties are the core document properties.
type Properties struct {
	Title          string `json:"title,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Creator        string `json:"creator,omitempty"`
	Keywords       string `json:"keywords,omitempty"`
	Description    string `json:"description,omitempty"`
	LastModifiedBy string `json:"last_modified_by,omitempty"`
	Created        string `json:"created,omitempty"`
	Modified       string `json:"modified,omitempty"`
}

// DefinedName is a workbook-scoped named reference. LocalSheet below
// zero means globally scoped.
type DefinedName struct {
	Name       string `json:"name"`
	Reference  string `json:"reference"`
	LocalSheet int    `json:"local_sheet"`
	Comment    string `json:"comment,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
}

// Stats summarises a workbook without mutating it.
type Stats struct {
	Sheets        int `json:"sheets"`
	Cells         int `json:"cells"`
	SharedStrings int `json:"shared_strings"`
	DefinedNames  int `json:"defined_names"`
}

type relEntry struct {
	ID     string
	Type   string
	Target string
}

// Workbook is the fully materialised document model.
type Workbook struct {
	path   string
	source *container.Handle

	props      Properties
	propsDirty bool

	sheets []*Sheet
	active int

	strings *sst.Table
	styles  *styles.Registry
	names   []DefinedName

	// Carried container metadata for copy-on-write saves.
	extraRels   []relEntry        // workbook rels other than sheets/styles/strings
	ctDefaults  map[string]string // extension -> content type
	ctOverrides map[string]string // part name -> content type

	structureDirty bool
	removedParts   []string // source parts dropped by sheet removal
	warnings       []Warning
}

// New creates an empty workbook with a single visible sheet.
func New() *Workbook {
	wb := &Workbook{
		strings:     sst.New(),
		styles:      styles.NewRegistry(),
		ctDefaults:  defaultCTDefaults(),
		ctOverrides: map[string]string{},
	}
	s := newSheet(wb, "Sheet1", 1)
	s.dirty = true
	wb.sheets = []*Sheet{s}
	wb.structureDirty = true
	return wb
}

func defaultCTDefaults() map[string]string {
	return map[string]string{
		"rels": "application/vnd.openxmlformats-package.relationships+xml",
		"xml":  "application/xml",
	}
}

// Path returns the backing file path, empty for in-memory workbooks.
func (wb *Workbook) Path() string { return wb.path }

// Strings exposes the shared string table for the writer.
func (wb *Workbook) Strings() *sst.Table { return wb.strings }

// Styles exposes the style registry.
func (wb *Workbook) Styles() *styles.Registry { return wb.styles }

// Warnings returns every non-fatal condition seen so far.
func (wb *Workbook) Warnings() []Warning { return wb.warnings }

func (wb *Workbook) warnf(code, format string, args ...interface{}) {
	wb.warnings = append(wb.warnings, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Props returns the document properties.
func (wb *Workbook) Props() Properties { return wb.props }

// SetProps replaces the document properties.
func (wb *Workbook) SetProps(p Properties) {
	wb.props = p
	wb.propsDirty = true
}

// Close releases the source container, if any.
func (wb *Workbook) Close() error {
	if wb.source != nil {
		return wb.source.Close()
	}
	return nil
}

// Sheets returns the sheets in tab order.
func (wb *Workbook) Sheets() []*Sheet {
	out := make([]*Sheet, len(wb.sheets))
	copy(out, wb.sheets)
	return out
}

// SheetNames returns names in tab order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		names[i] = s.name
	}
	return names
}

// Sheet looks a sheet up by name, case-insensitively.
func (wb *Workbook) Sheet(name string) (*Sheet, error) {
	if i := wb.sheetIndex(name); i >= 0 {
		return wb.sheets[i], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

func (wb *Workbook) sheetIndex(name string) int {
	for i, s := range wb.sheets {
		if strings.EqualFold(s.name, name) {
			return i
		}
	}
	return -1
}

// ValidateSheetName enforces the sheet naming rules: non-empty, at
// most 31 characters, none of : \ / ? * [ ], and no leading or
// trailing apostrophe.
func ValidateSheetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSheetName)
	}
	if len([]rune(name)) > 31 {
		return fmt.Errorf("%w: %q exceeds 31 characters", ErrInvalidSheetName, name)
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidSheetName, name)
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("%w: %q starts or ends with an apostrophe", ErrInvalidSheetName, name)
	}
	return nil
}

// AddSheet appends a new visible sheet.
func (wb *Workbook) AddSheet(name string) (*Sheet, error) {
	if err := ValidateSheetName(name); err != nil {
		return nil, err
	}
	if wb.sheetIndex(name) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSheet, name)
	}
	maxID := 0
	for _, s := range wb.sheets {
		if s.sheetID > maxID {
			maxID = s.sheetID
		}
	}
	s := newSheet(wb, name, maxID+1)
	s.dirty = true
	wb.sheets = append(wb.sheets, s)
	wb.structureDirty = true
	return s, nil
}

// RemoveSheet deletes a sheet. The last sheet, and the last visible
// sheet, cannot be removed.
func (wb *Workbook) RemoveSheet(name string) error {
	i := wb.sheetIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	if len(wb.sheets) == 1 {
		return ErrLastSheet
	}
	visible := 0
	for j, s := range wb.sheets {
		if j != i && s.visibility == Visible {
			visible++
		}
	}
	if visible == 0 {
		return fmt.Errorf("%w: removing %q", ErrLastVisible, name)
	}

	if part := wb.sheets[i].partName; part != "" {
		wb.removedParts = append(wb.removedParts, part)
	}
	wb.sheets = append(wb.sheets[:i], wb.sheets[i+1:]...)
	switch {
	case wb.active == i:
		wb.active = wb.firstVisible()
	case wb.active > i:
		wb.active--
	}
	wb.structureDirty = true
	return nil
}

// RenameSheet renames a sheet and rewrites every formula and defined
// name that qualifies references with the old name.
func (wb *Workbook) RenameSheet(oldName, newName string) error {
	i := wb.sheetIndex(oldName)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, oldName)
	}
	if err := ValidateSheetName(newName); err != nil {
		return err
	}
	if j := wb.sheetIndex(newName); j >= 0 && j != i {
		return fmt.Errorf("%w: %q", ErrDuplicateSheet, newName)
	}

	old := wb.sheets[i].name
	wb.sheets[i].name = newName
	wb.structureDirty = true
	wb.rewriteFormulas(formula.RenameSheet{Old: old, New: newName})
	return nil
}

// MoveSheet moves a sheet to tab position index.
func (wb *Workbook) MoveSheet(name string, index int) error {
	i := wb.sheetIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	if index < 0 || index >= len(wb.sheets) {
		return fmt.Errorf("%w: index %d", ErrBadPosition, index)
	}
	if index == i {
		return nil
	}
	s := wb.sheets[i]
	activeSheet := wb.sheets[wb.active]
	wb.sheets = append(wb.sheets[:i], wb.sheets[i+1:]...)
	rest := make([]*Sheet, 0, len(wb.sheets)+1)
	rest = append(rest, wb.sheets[:index]...)
	rest = append(rest, s)
	rest = append(rest, wb.sheets[index:]...)
	wb.sheets = rest
	for j, sh := range wb.sheets {
		if sh == activeSheet {
			wb.active = j
			break
		}
	}
	wb.structureDirty = true
	return nil
}

// SetVisibility changes a sheet's visibility. Hiding the only
// visible sheet is an error; hiding the active sheet activates the
// first remaining visible one.
func (wb *Workbook) SetVisibility(name string, v Visibility) error {
	i := wb.sheetIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	if v != Visible {
		visible := 0
		for j, s := range wb.sheets {
			if j != i && s.visibility == Visible {
				visible++
			}
		}
		if visible == 0 {
			return fmt.Errorf("%w: hiding %q", ErrLastVisible, name)
		}
	}
	wb.sheets[i].visibility = v
	if v != Visible && wb.active == i {
		wb.active = wb.firstVisible()
	}
	wb.structureDirty = true
	return nil
}

func (wb *Workbook) firstVisible() int {
	for i, s := range wb.sheets {
		if s.visibility == Visible {
			return i
		}
	}
	return 0
}

// ActiveSheet returns the active sheet.
func (wb *Workbook) ActiveSheet() *Sheet {
	if wb.active >= 0 && wb.active < len(wb.sheets) {
		return wb.sheets[wb.active]
	}
	return wb.sheets[0]
}

// SetActive activates a sheet by name; the sheet must be visible.
func (wb *Workbook) SetActive(name string) error {
	i := wb.sheetIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	if wb.sheets[i].visibility != Visible {
		return fmt.Errorf("%w: %q", ErrHiddenActive, name)
	}
	if wb.active != i {
		wb.active = i
		wb.structureDirty = true
	}
	return nil
}

// Structural edits. Each rewrites formulas across the whole book.

// InsertRows inserts count rows before row at on the named sheet.
func (wb *Workbook) InsertRows(sheet string, at, count int) error {
	s, err := wb.Sheet(sheet)
	if err != nil {
		return err
	}
	if at < 1 || at > a1.MaxRow || count < 1 {
		return fmt.Errorf("%w: insert %d rows at %d", ErrBadPosition, count, at)
	}
	s.shiftRows(at, count)
	wb.rewriteFormulas(formula.InsertRows{Sheet: s.name, At: at, Count: count})
	return nil
}

// DeleteRows removes rows [at, at+count-1] on the named sheet.
func (wb *Workbook) DeleteRows(sheet string, at, count int) error {
	s, err := wb.Sheet(sheet)
	if err != nil {
		return err
	}
	if at < 1 || count < 1 || at+count-1 > a1.MaxRow {
		return fmt.Errorf("%w: delete %d rows at %d", ErrBadPosition, count, at)
	}
	s.shiftRows(at, -count)
	wb.rewriteFormulas(formula.DeleteRows{Sheet: s.name, At: at, Count: count})
	return nil
}

// InsertCols inserts count columns before column at.
func (wb *Workbook) InsertCols(sheet string, at, count int) error {
	s, err := wb.Sheet(sheet)
	if err != nil {
		return err
	}
	if at < 1 || at > a1.MaxCol || count < 1 {
		return fmt.Errorf("%w: insert %d cols at %d", ErrBadPosition, count, at)
	}
	s.shiftCols(at, count)
	wb.rewriteFormulas(formula.InsertCols{Sheet: s.name, At: at, Count: count})
	return nil
}

// DeleteCols removes columns [at, at+count-1].
func (wb *Workbook) DeleteCols(sheet string, at, count int) error {
	s, err := wb.Sheet(sheet)
	if err != nil {
		return err
	}
	if at < 1 || count < 1 || at+count-1 > a1.MaxCol {
		return fmt.Errorf("%w: delete %d cols at %d", ErrBadPosition, count, at)
	}
	s.shiftCols(at, -count)
	wb.rewriteFormulas(formula.DeleteCols{Sheet: s.name, At: at, Count: count})
	return nil
}

// rewriteFormulas applies edit to every formula cell and every
// defined name reference.
func (wb *Workbook) rewriteFormulas(edit formula.Edit) {
	for _, s := range wb.sheets {
		for _, c := range s.cells {
			if c.Value.Kind != KindFormula {
				continue
			}
			if nf := formula.Rewrite(c.Value.Formula, s.name, edit); nf != c.Value.Formula {
				c.Value.Formula = nf
				c.Value.Cached = nil
				s.markDirty()
			}
		}
	}
	for i := range wb.names {
		// A defined name reference is always fully qualified.
		if nf := formula.Rewrite(wb.names[i].Reference, "", edit); nf != wb.names[i].Reference {
			wb.names[i].Reference = nf
			wb.structureDirty = true
		}
	}
}

// SetFormula validates and places a formula at ref on the named
// sheet. expr is given without the leading '='.
func (wb *Workbook) SetFormula(sheet string, ref a1.Ref, expr string) error {
	s, err := wb.Sheet(sheet)
	if err != nil {
		return err
	}
	if err := formula.Validate(expr); err != nil {
		return err
	}
	return s.SetValue(ref, Formula(expr, nil))
}

// Defined names.

// DefinedNames lists names in declaration order.
func (wb *Workbook) DefinedNames() []DefinedName {
	out := make([]DefinedName, len(wb.names))
	copy(out, wb.names)
	return out
}

// AddDefinedName registers a named reference.
func (wb *Workbook) AddDefinedName(dn DefinedName) error {
	if dn.Name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	for _, n := range wb.names {
		if strings.EqualFold(n.Name, dn.Name) && n.LocalSheet == dn.LocalSheet {
			return fmt.Errorf("%w: %q", ErrDuplicateName, dn.Name)
		}
	}
	if dn.LocalSheet >= len(wb.sheets) {
		return fmt.Errorf("%w: local sheet %d", ErrBadPosition, dn.LocalSheet)
	}
	if dn.LocalSheet < 0 {
		dn.LocalSheet = -1
	}
	wb.names = append(wb.names, dn)
	wb.structureDirty = true
	return nil
}

// RemoveDefinedName deletes a named reference by name.
func (wb *Workbook) RemoveDefinedName(name string) error {
	for i, n := range wb.names {
		if strings.EqualFold(n.Name, name) {
			wb.names = append(wb.names[:i], wb.names[i+1:]...)
			wb.structureDirty = true
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNameNotFound, name)
}

// Stats computes workbook statistics.
func (wb *Workbook) Stats() Stats {
	st := Stats{
		Sheets:        len(wb.sheets),
		SharedStrings: wb.strings.Count(),
		DefinedNames:  len(wb.names),
	}
	for _, s := range wb.sheets {
		st.Cells += len(s.cells)
	}
	return st
}
