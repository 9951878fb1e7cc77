// Package a1 parses and formats A1-style cell references and ranges.
package a1

import (
	"errors"
	"fmt"
	"strings"
)

// Grid limits of the xlsx format.
const (
	MaxCol = 16384   // column XFD
	MaxRow = 1048576 // 2^20
)

var (
	ErrInvalidRef   = errors.New("invalid cell reference")
	ErrInvalidRange = errors.New("invalid range")
)

// Ref is a 1-based cell coordinate.
type Ref struct {
	Col int
	Row int
}

// ParseRef parses a reference like "B7". Anchors ($) are not accepted
// here; formula-level parsing strips them first.
func ParseRef(s string) (Ref, error) {
	i := 0
	for i < len(s) && isColLetter(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	col, err := ColumnNumber(s[:i])
	if err != nil {
		return Ref{}, err
	}
	row := 0
	for _, c := range []byte(s[i:]) {
		if c < '0' || c > '9' {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
		}
		row = row*10 + int(c-'0')
		if row > MaxRow {
			return Ref{}, fmt.Errorf("%w: row out of bounds in %q", ErrInvalidRef, s)
		}
	}
	if row == 0 {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return Ref{Col: col, Row: row}, nil
}

// MustRef is a test and literal helper; it panics on invalid input.
func MustRef(s string) Ref {
	r, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Valid reports whether the coordinate lies inside the grid.
func (r Ref) Valid() bool {
	return r.Col >= 1 && r.Col <= MaxCol && r.Row >= 1 && r.Row <= MaxRow
}

func (r Ref) String() string {
	return ColumnName(r.Col) + fmt.Sprintf("%d", r.Row)
}

// ColumnNumber converts column letters to a 1-based index ("A"=1,
// "Z"=26, "AA"=27). Bijective base-26, no zero digit.
func ColumnNumber(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty column", ErrInvalidRef)
	}
	n := 0
	for _, c := range []byte(name) {
		if !isColLetter(c) {
			return 0, fmt.Errorf("%w: column %q", ErrInvalidRef, name)
		}
		if c >= 'a' {
			c -= 'a' - 'A'
		}
		n = n*26 + int(c-'A'+1)
		if n > MaxCol {
			return 0, fmt.Errorf("%w: column %q out of bounds", ErrInvalidRef, name)
		}
	}
	return n, nil
}

// ColumnName converts a 1-based column index to letters.
func ColumnName(n int) string {
	if n < 1 {
		return ""
	}
	var b [3]byte
	i := len(b)
	for n > 0 {
		n--
		i--
		b[i] = byte('A' + n%26)
		n /= 26
	}
	return string(b[i:])
}

func isColLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// quoteNeeded characters force a sheet qualifier into quotes.
const quoteNeeded = " '!\"#$%&()*+,-/:;<=>?@[\\]^`{|}~"

// QuoteSheet formats a sheet name for use as a formula qualifier,
// wrapping it in single quotes when required and doubling embedded
// quotes.
func QuoteSheet(name string) string {
	if name == "" {
		return name
	}
	if !strings.ContainsAny(name, quoteNeeded) && !startsWithDigit(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}
