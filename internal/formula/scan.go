package formula

import (
	"github.com/fuabioo/sheetq/internal/a1"
)

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isTokenByte covers everything a bare identifier, sheet name or
// anchored reference may contain.
func isTokenByte(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_' || c == '.' || c == '$'
}

// scanStringLit consumes the double-quoted literal starting at i,
// honouring doubled-quote escapes. closed is false when the literal
// runs to the end of the input without a terminator.
func scanStringLit(s string, i int) (end int, closed bool) {
	j := i + 1
	for j < len(s) {
		if s[j] == '"' {
			if j+1 < len(s) && s[j+1] == '"' {
				j += 2
				continue
			}
			return j + 1, true
		}
		j++
	}
	return j, false
}

func skipString(s string, i int) int {
	end, _ := scanStringLit(s, i)
	return end
}

// scanQuotedName consumes a single-quoted sheet name starting at i,
// honouring doubled-quote escapes, and returns the unescaped name.
func scanQuotedName(s string, i int) (name string, end int, ok bool) {
	var sb []byte
	j := i + 1
	for j < len(s) {
		if s[j] == '\'' {
			if j+1 < len(s) && s[j+1] == '\'' {
				sb = append(sb, '\'')
				j += 2
				continue
			}
			return string(sb), j + 1, true
		}
		sb = append(sb, s[j])
		j++
	}
	return "", j, false
}

// parsePart parses one reference endpoint: [$]columns[$]row, columns
// only, or row only. The whole input must be consumed.
func parsePart(s string) (refPart, bool) {
	var p refPart
	i := 0
	leadingAbs := false
	if i < len(s) && s[i] == '$' {
		leadingAbs = true
		i++
	}
	j := i
	for j < len(s) && isAlpha(s[j]) {
		j++
	}
	if j > i {
		col, err := a1.ColumnNumber(s[i:j])
		if err != nil {
			return refPart{}, false
		}
		p.hasCol, p.col, p.colAbs = true, col, leadingAbs
		i = j
		if i < len(s) && s[i] == '$' {
			p.rowAbs = true
			i++
		}
	} else {
		p.rowAbs = leadingAbs
	}

	k := i
	row := 0
	for k < len(s) && isDigit(s[k]) {
		row = row*10 + int(s[k]-'0')
		if row > a1.MaxRow {
			return refPart{}, false
		}
		k++
	}
	if k > i {
		if row == 0 {
			return refPart{}, false
		}
		p.hasRow, p.row = true, row
		i = k
	}

	if i != len(s) {
		return refPart{}, false
	}
	if p.rowAbs && !p.hasRow {
		return refPart{}, false
	}
	if !p.hasCol && !p.hasRow {
		return refPart{}, false
	}
	return p, true
}

func compatible(a, b refPart) bool {
	return a.hasCol == b.hasCol && a.hasRow == b.hasRow
}

// scanRefBody parses a reference, optionally a range, starting at i.
// On failure end marks how far the raw copy should extend.
func scanRefBody(s string, i int) (a, b refPart, isRange bool, end int, ok bool) {
	j := i
	for j < len(s) && isTokenByte(s[j]) {
		j++
	}
	a, ok = parsePart(s[i:j])
	if !ok {
		return a, b, false, j, false
	}
	if j < len(s) && s[j] == ':' {
		k := j + 1
		for k < len(s) && isTokenByte(s[k]) {
			k++
		}
		if b2, ok2 := parsePart(s[j+1 : k]); ok2 && compatible(a, b2) {
			return a, b2, true, k, true
		}
	}
	// A lone column is a name and a lone row is a number literal;
	// only a full coordinate stands alone as a reference.
	if !a.hasCol || !a.hasRow {
		return a, b, false, j, false
	}
	return a, b, false, j, true
}

// scanToken scans one candidate reference at i. When ok is false the
// caller copies s[i:end] verbatim and resumes at end.
func scanToken(s string, i int) (*refToken, int, bool) {
	if s[i] == '\'' {
		name, j, closed := scanQuotedName(s, i)
		if !closed || j >= len(s) || s[j] != '!' {
			return nil, j, false
		}
		a, b, isRange, end, ok := scanRefBody(s, j+1)
		if !ok {
			return nil, end, false
		}
		return &refToken{raw: s[i:end], sheet: name, hasSheet: true, a: a, b: b, isRange: isRange}, end, true
	}

	run := i
	for run < len(s) && isTokenByte(s[run]) {
		run++
	}
	if run < len(s) && s[run] == '!' {
		a, b, isRange, end, ok := scanRefBody(s, run+1)
		if !ok {
			return nil, end, false
		}
		return &refToken{raw: s[i:end], sheet: s[i:run], hasSheet: true, a: a, b: b, isRange: isRange}, end, true
	}

	a, b, isRange, end, ok := scanRefBody(s, i)
	if !ok {
		return nil, end, false
	}
	// A parsable token followed by '(' is a function call, not a
	// reference (LOG10, ATAN2 and friends).
	if end < len(s) && s[end] == '(' {
		return nil, end, false
	}
	return &refToken{raw: s[i:end], a: a, b: b, isRange: isRange}, end, true
}
