package a1

import (
	"errors"
	"testing"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		col  int
		row  int
		want bool
	}{
		{"A1", 1, 1, true},
		{"Z1", 26, 1, true},
		{"AA1", 27, 1, true},
		{"b7", 2, 7, true},
		{"XFD1048576", 16384, 1048576, true},
		{"A0", 0, 0, false},
		{"1A", 0, 0, false},
		{"XFE1", 0, 0, false},
		{"A1048577", 0, 0, false},
		{"", 0, 0, false},
		{"A", 0, 0, false},
		{"12", 0, 0, false},
		{"A1B", 0, 0, false},
	}
	for _, tt := range tests {
		got, err := ParseRef(tt.in)
		if tt.want {
			if err != nil {
				t.Errorf("ParseRef(%q) error: %v", tt.in, err)
				continue
			}
			if got.Col != tt.col || got.Row != tt.row {
				t.Errorf("ParseRef(%q) = %v; want col %d row %d", tt.in, got, tt.col, tt.row)
			}
		} else if err == nil {
			t.Errorf("ParseRef(%q) = %v; want error", tt.in, got)
		}
	}
}

func TestRefRoundTrip(t *testing.T) {
	for _, s := range []string{"A1", "Z99", "AA10", "XFD1048576", "BC834"} {
		ref, err := ParseRef(s)
		if err != nil {
			t.Fatalf("ParseRef(%q): %v", s, err)
		}
		if got := ref.String(); got != s {
			t.Errorf("round trip %q = %q", s, got)
		}
	}
}

func TestColumnNumber(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"A", 1}, {"Z", 26}, {"AA", 27}, {"AZ", 52}, {"BA", 53}, {"ZZ", 702}, {"AAA", 703}, {"XFD", 16384},
	}
	for _, tt := range tests {
		n, err := ColumnNumber(tt.name)
		if err != nil {
			t.Errorf("ColumnNumber(%q) error: %v", tt.name, err)
			continue
		}
		if n != tt.n {
			t.Errorf("ColumnNumber(%q) = %d; want %d", tt.name, n, tt.n)
		}
		if back := ColumnName(tt.n); back != tt.name {
			t.Errorf("ColumnName(%d) = %q; want %q", tt.n, back, tt.name)
		}
	}

	if _, err := ColumnNumber("XFE"); !errors.Is(err, ErrInvalidRef) {
		t.Errorf("ColumnNumber(XFE) error = %v; want ErrInvalidRef", err)
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Data", "Data"},
		{"My Sheet", "'My Sheet'"},
		{"O'Brien", "'O''Brien'"},
		{"2024", "'2024'"},
		{"Sheet-1", "'Sheet-1'"},
	}
	for _, tt := range tests {
		if got := QuoteSheet(tt.in); got != tt.want {
			t.Errorf("QuoteSheet(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
