package a1

import "testing"

func TestParseRange(t *testing.T) {
	tests := []struct {
		in    string
		start Ref
		end   Ref
		ok    bool
	}{
		{"A1:B10", Ref{1, 1}, Ref{2, 10}, true},
		{"C3", Ref{3, 3}, Ref{3, 3}, true},
		{"A:B", Ref{1, 1}, Ref{2, MaxRow}, true},
		{"1:10", Ref{1, 1}, Ref{MaxCol, 10}, true},
		{"B2:A1", Ref{}, Ref{}, false},
		{"B:A", Ref{}, Ref{}, false},
		{"10:1", Ref{}, Ref{}, false},
		{"", Ref{}, Ref{}, false},
		{"A0:B2", Ref{}, Ref{}, false},
		{"A1:B2:C3", Ref{}, Ref{}, false},
	}
	for _, tt := range tests {
		got, err := ParseRange(tt.in)
		if !tt.ok {
			if err == nil {
				t.Errorf("ParseRange(%q) = %v; want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRange(%q) error: %v", tt.in, err)
			continue
		}
		if got.Start != tt.start || got.End != tt.end {
			t.Errorf("ParseRange(%q) = %v; want %v:%v", tt.in, got, tt.start, tt.end)
		}
	}
}

func TestRangeGeometry(t *testing.T) {
	r, err := ParseRange("B2:D5")
	if err != nil {
		t.Fatal(err)
	}
	if r.Width() != 3 || r.Height() != 4 || r.CellCount() != 12 {
		t.Errorf("B2:D5 geometry = %dx%d (%d cells)", r.Width(), r.Height(), r.CellCount())
	}
	if !r.Contains(Ref{3, 3}) || r.Contains(Ref{1, 3}) || r.Contains(Ref{3, 6}) {
		t.Error("Contains misclassified cells")
	}
	other, _ := ParseRange("D5:F9")
	if !r.Overlaps(other) {
		t.Error("expected overlap at D5")
	}
	disjoint, _ := ParseRange("E1:F4")
	if r.Overlaps(disjoint) {
		t.Error("unexpected overlap with E1:F4")
	}
}

func TestRangeString(t *testing.T) {
	for _, s := range []string{"A1:B10", "C3"} {
		r, err := ParseRange(s)
		if err != nil {
			t.Fatal(err)
		}
		if got := r.String(); got != s {
			t.Errorf("String() = %q; want %q", got, s)
		}
	}
}
