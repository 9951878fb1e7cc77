// Package formula rewrites cell references inside formula text when
// the grid around them changes.
//
// Only references are recognised: A1-style cells and ranges, with
// optional $ anchors and an optional sheet qualifier (bare or
// quoted). Function names, defined names, literals and operators pass
// through untouched, as does anything inside a double-quoted string.
// No evaluation is performed.
package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fuabioo/sheetq/internal/a1"
)

// RefError replaces references whose target was deleted.
const RefError = "#REF!"

var ErrInvalid = errors.New("invalid formula")

// Edit is a structural change applied to every formula of a workbook.
type Edit interface {
	// rewrite adjusts the token in place. refErr reports that the
	// target no longer exists.
	rewrite(hostSheet string, t *refToken) (changed, refErr bool)
}

// InsertRows shifts references at or below At down by Count.
type InsertRows struct {
	Sheet string
	At    int
	Count int
}

// DeleteRows removes rows [At, At+Count-1]. References fully inside
// the span become #REF!; ranges crossing it shrink.
type DeleteRows struct {
	Sheet string
	At    int
	Count int
}

// InsertCols shifts references at or right of At by Count.
type InsertCols struct {
	Sheet string
	At    int
	Count int
}

// DeleteCols removes columns [At, At+Count-1].
type DeleteCols struct {
	Sheet string
	At    int
	Count int
}

// RenameSheet rewrites sheet qualifiers from Old to New.
type RenameSheet struct {
	Old string
	New string
}

// Move shifts the relative components of every reference, the
// adjustment applied to a formula copied or moved by (DeltaCols,
// DeltaRows). Anchored components stay put.
type Move struct {
	DeltaCols int
	DeltaRows int
}

// Rewrite applies edit to every reference in formula. hostSheet is
// the sheet owning the formula; unqualified references belong to it.
// The input is returned unchanged when no reference is affected.
func Rewrite(formula, hostSheet string, edit Edit) string {
	var out strings.Builder
	changedAny := false
	i := 0
	for i < len(formula) {
		c := formula[i]
		switch {
		case c == '"':
			j := skipString(formula, i)
			out.WriteString(formula[i:j])
			i = j
		case c == '\'' || c == '$' || isTokenByte(c):
			tok, j, ok := scanToken(formula, i)
			if !ok {
				out.WriteString(formula[i:j])
				i = j
				continue
			}
			if text, changed := applyEdit(edit, hostSheet, tok); changed {
				out.WriteString(text)
				changedAny = true
			} else {
				out.WriteString(tok.raw)
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	if !changedAny {
		return formula
	}
	return out.String()
}

// Validate checks formula for balanced quotes, brackets and
// parentheses. It is a structural check, not a grammar check.
func Validate(formula string) error {
	depth := 0
	i := 0
	for i < len(formula) {
		switch formula[i] {
		case '"':
			j, closed := scanStringLit(formula, i)
			if !closed {
				return fmt.Errorf("%w: unterminated string", ErrInvalid)
			}
			i = j
		case '(':
			depth++
			i++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced parentheses", ErrInvalid)
			}
			i++
		default:
			i++
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced parentheses", ErrInvalid)
	}
	return nil
}

// refPart is one endpoint of a reference.
type refPart struct {
	hasCol, colAbs bool
	hasRow, rowAbs bool
	col, row       int
}

func (p refPart) format() string {
	var sb strings.Builder
	if p.hasCol {
		if p.colAbs {
			sb.WriteByte('$')
		}
		sb.WriteString(a1.ColumnName(p.col))
	}
	if p.hasRow {
		if p.rowAbs {
			sb.WriteByte('$')
		}
		fmt.Fprintf(&sb, "%d", p.row)
	}
	return sb.String()
}

// refToken is a scanned reference, possibly sheet-qualified, possibly
// a range.
type refToken struct {
	raw      string
	sheet    string // parsed name, quotes stripped
	hasSheet bool
	a, b     refPart
	isRange  bool
}

func (t *refToken) qualifier() string {
	if !t.hasSheet {
		return ""
	}
	return a1.QuoteSheet(t.sheet) + "!"
}

func (t *refToken) format() string {
	s := t.qualifier() + t.a.format()
	if t.isRange {
		s += ":" + t.b.format()
	}
	return s
}

// applyEdit runs the edit over one token and formats the result.
func applyEdit(edit Edit, hostSheet string, t *refToken) (string, bool) {
	changed, refErr := edit.rewrite(hostSheet, t)
	if refErr {
		return t.qualifier() + RefError, true
	}
	if !changed {
		return "", false
	}
	return t.format(), true
}

func (e InsertRows) rewrite(hostSheet string, t *refToken) (bool, bool) {
	if !onSheet(e.Sheet, hostSheet, t) {
		return false, false
	}
	changed := false
	for _, p := range []*refPart{&t.a, &t.b} {
		if p.hasRow && p.row >= e.At {
			p.row = minInt(p.row+e.Count, a1.MaxRow)
			changed = true
		}
		if !t.isRange {
			break
		}
	}
	return changed, false
}

func (e DeleteRows) rewrite(hostSheet string, t *refToken) (bool, bool) {
	if !onSheet(e.Sheet, hostSheet, t) {
		return false, false
	}
	end := e.At + e.Count - 1
	lo, hi := &t.a, &t.a
	if t.isRange {
		hi = &t.b
	}
	if !lo.hasRow { // full-column span is immune
		return false, false
	}
	if lo.row >= e.At && hi.row <= end {
		return false, true
	}
	changed := false
	if shiftDeleted(&lo.row, e.At, end, e.Count, true) {
		changed = true
	}
	if t.isRange && shiftDeleted(&hi.row, e.At, end, e.Count, false) {
		changed = true
	}
	return changed, false
}

func (e InsertCols) rewrite(hostSheet string, t *refToken) (bool, bool) {
	if !onSheet(e.Sheet, hostSheet, t) {
		return false, false
	}
	changed := false
	for _, p := range []*refPart{&t.a, &t.b} {
		if p.hasCol && p.col >= e.At {
			p.col = minInt(p.col+e.Count, a1.MaxCol)
			changed = true
		}
		if !t.isRange {
			break
		}
	}
	return changed, false
}

func (e DeleteCols) rewrite(hostSheet string, t *refToken) (bool, bool) {
	if !onSheet(e.Sheet, hostSheet, t) {
		return false, false
	}
	end := e.At + e.Count - 1
	lo, hi := &t.a, &t.a
	if t.isRange {
		hi = &t.b
	}
	if !lo.hasCol { // full-row span is immune
		return false, false
	}
	if lo.col >= e.At && hi.col <= end {
		return false, true
	}
	changed := false
	if shiftDeleted(&lo.col, e.At, end, e.Count, true) {
		changed = true
	}
	if t.isRange && shiftDeleted(&hi.col, e.At, end, e.Count, false) {
		changed = true
	}
	return changed, false
}

func (e RenameSheet) rewrite(_ string, t *refToken) (bool, bool) {
	if !t.hasSheet || !strings.EqualFold(t.sheet, e.Old) {
		return false, false
	}
	t.sheet = e.New
	return true, false
}

func (e Move) rewrite(_ string, t *refToken) (bool, bool) {
	changed := false
	for _, p := range []*refPart{&t.a, &t.b} {
		if p.hasCol && !p.colAbs && e.DeltaCols != 0 {
			p.col += e.DeltaCols
			if p.col < 1 || p.col > a1.MaxCol {
				return false, true
			}
			changed = true
		}
		if p.hasRow && !p.rowAbs && e.DeltaRows != 0 {
			p.row += e.DeltaRows
			if p.row < 1 || p.row > a1.MaxRow {
				return false, true
			}
			changed = true
		}
		if !t.isRange {
			break
		}
	}
	return changed, false
}

// shiftDeleted adjusts one coordinate for a deletion of [at, end].
// isStart picks the clamp direction for endpoints inside the span.
func shiftDeleted(x *int, at, end, count int, isStart bool) bool {
	switch {
	case *x > end:
		*x -= count
		return true
	case *x >= at:
		if isStart {
			*x = at
		} else {
			*x = at - 1
		}
		return true
	}
	return false
}

// onSheet reports whether the token belongs to the edited sheet.
func onSheet(editSheet, hostSheet string, t *refToken) bool {
	ref := hostSheet
	if t.hasSheet {
		ref = t.sheet
	}
	return strings.EqualFold(ref, editSheet)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
