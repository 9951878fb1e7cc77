package formula

import (
	"errors"
	"testing"
)

func TestInsertRows(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		host    string
		edit    Edit
		want    string
	}{
		{
			name:    "range endpoint shifts",
			formula: "SUM(A1:A10)",
			host:    "Sheet1",
			edit:    InsertRows{Sheet: "Sheet1", At: 5, Count: 2},
			want:    "SUM(A1:A12)",
		},
		{
			name:    "ref before insertion unchanged",
			formula: "A4+B2",
			host:    "Sheet1",
			edit:    InsertRows{Sheet: "Sheet1", At: 5, Count: 2},
			want:    "A4+B2",
		},
		{
			name:    "ref at insertion point shifts",
			formula: "A5*2",
			host:    "Sheet1",
			edit:    InsertRows{Sheet: "Sheet1", At: 5, Count: 3},
			want:    "A8*2",
		},
		{
			name:    "other sheet untouched",
			formula: "A10",
			host:    "Sheet2",
			edit:    InsertRows{Sheet: "Sheet1", At: 1, Count: 5},
			want:    "A10",
		},
		{
			name:    "qualified ref follows its own sheet",
			formula: "Sheet1!A10+A10",
			host:    "Sheet2",
			edit:    InsertRows{Sheet: "Sheet1", At: 1, Count: 5},
			want:    "Sheet1!A15+A10",
		},
		{
			name:    "anchors preserved",
			formula: "$A$5+$A5+A$5",
			host:    "Sheet1",
			edit:    InsertRows{Sheet: "Sheet1", At: 5, Count: 1},
			want:    "$A$6+$A6+A$6",
		},
		{
			name:    "full column immune",
			formula: "SUM(A:A)",
			host:    "Sheet1",
			edit:    InsertRows{Sheet: "Sheet1", At: 1, Count: 4},
			want:    "SUM(A:A)",
		},
	}
	runRewriteTests(t, tests)
}

func TestDeleteRows(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		host    string
		edit    Edit
		want    string
	}{
		{
			name:    "deleted cell becomes ref error",
			formula: "A5+1",
			host:    "Sheet1",
			edit:    DeleteRows{Sheet: "Sheet1", At: 3, Count: 3},
			want:    "#REF!+1",
		},
		{
			name:    "ref after span shifts back",
			formula: "A9",
			host:    "Sheet1",
			edit:    DeleteRows{Sheet: "Sheet1", At: 3, Count: 3},
			want:    "A6",
		},
		{
			name:    "range shrinks on partial overlap",
			formula: "SUM(A1:A10)",
			host:    "Sheet1",
			edit:    DeleteRows{Sheet: "Sheet1", At: 8, Count: 5},
			want:    "SUM(A1:A7)",
		},
		{
			name:    "range fully deleted",
			formula: "SUM(A4:A5)",
			host:    "Sheet1",
			edit:    DeleteRows{Sheet: "Sheet1", At: 3, Count: 4},
			want:    "SUM(#REF!)",
		},
		{
			name:    "qualified ref error keeps qualifier",
			formula: "Data!B2",
			host:    "Sheet1",
			edit:    DeleteRows{Sheet: "Data", At: 1, Count: 5},
			want:    "Data!#REF!",
		},
		{
			name:    "row range shrinks",
			formula: "SUM(3:8)",
			host:    "Sheet1",
			edit:    DeleteRows{Sheet: "Sheet1", At: 5, Count: 10},
			want:    "SUM(3:4)",
		},
	}
	runRewriteTests(t, tests)
}

func TestInsertDeleteCols(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		host    string
		edit    Edit
		want    string
	}{
		{
			name:    "delete cols shrinks crossing range",
			formula: "SUM(A1:E1)",
			host:    "Sheet1",
			edit:    DeleteCols{Sheet: "Sheet1", At: 3, Count: 2}, // C:D
			want:    "SUM(A1:C1)",
		},
		{
			name:    "deleted column becomes ref error",
			formula: "C1*2",
			host:    "Sheet1",
			edit:    DeleteCols{Sheet: "Sheet1", At: 3, Count: 2},
			want:    "#REF!*2",
		},
		{
			name:    "insert shifts columns right",
			formula: "B2+C3",
			host:    "Sheet1",
			edit:    InsertCols{Sheet: "Sheet1", At: 2, Count: 2},
			want:    "D2+E3",
		},
		{
			name:    "full row immune to column delete",
			formula: "SUM(2:2)",
			host:    "Sheet1",
			edit:    DeleteCols{Sheet: "Sheet1", At: 1, Count: 3},
			want:    "SUM(2:2)",
		},
		{
			name:    "full column range shifts",
			formula: "SUM(C:D)",
			host:    "Sheet1",
			edit:    InsertCols{Sheet: "Sheet1", At: 2, Count: 1},
			want:    "SUM(D:E)",
		},
	}
	runRewriteTests(t, tests)
}

func TestRenameSheet(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		host    string
		edit    Edit
		want    string
	}{
		{
			name:    "bare qualifier",
			formula: "Old!A1+Other!A1",
			host:    "Sheet1",
			edit:    RenameSheet{Old: "Old", New: "Fresh"},
			want:    "Fresh!A1+Other!A1",
		},
		{
			name:    "quoted qualifier",
			formula: "'Old Name'!B2:C3",
			host:    "Sheet1",
			edit:    RenameSheet{Old: "Old Name", New: "NewName"},
			want:    "NewName!B2:C3",
		},
		{
			name:    "new name gains quotes",
			formula: "Data!A1",
			host:    "Sheet1",
			edit:    RenameSheet{Old: "Data", New: "My Data"},
			want:    "'My Data'!A1",
		},
		{
			name:    "unqualified refs untouched",
			formula: "A1+B2",
			host:    "Old",
			edit:    RenameSheet{Old: "Old", New: "Fresh"},
			want:    "A1+B2",
		},
		{
			name:    "case-insensitive match",
			formula: "OLD!A1",
			host:    "Sheet1",
			edit:    RenameSheet{Old: "old", New: "Fresh"},
			want:    "Fresh!A1",
		},
	}
	runRewriteTests(t, tests)
}

func TestMove(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		host    string
		edit    Edit
		want    string
	}{
		{
			name:    "relative components shift",
			formula: "A1+$B$2+C$3",
			host:    "Sheet1",
			edit:    Move{DeltaCols: 1, DeltaRows: 2},
			want:    "B3+$B$2+D$3",
		},
		{
			name:    "shift off the grid becomes ref error",
			formula: "A1",
			host:    "Sheet1",
			edit:    Move{DeltaCols: -1},
			want:    "#REF!",
		},
	}
	runRewriteTests(t, tests)
}

func TestRewriteLeavesNonRefsAlone(t *testing.T) {
	edit := InsertRows{Sheet: "Sheet1", At: 1, Count: 10}
	tests := []string{
		`IF(A1>0,"row A1:A10 stays","B2 too")`, // only real refs move, not strings
		`LOG10(42)`,
		`MyNamedRange*2`,
		`ATAN2(1,2)`,
	}
	want := []string{
		`IF(A11>0,"row A1:A10 stays","B2 too")`,
		`LOG10(42)`,
		`MyNamedRange*2`,
		`ATAN2(1,2)`,
	}
	for i, f := range tests {
		if got := Rewrite(f, "Sheet1", edit); got != want[i] {
			t.Errorf("Rewrite(%q) = %q; want %q", f, got, want[i])
		}
	}
}

func TestRewriteUnchangedReturnsSameText(t *testing.T) {
	f := "SUM(B2:B9)*'Other Sheet'!C1"
	got := Rewrite(f, "Sheet1", InsertRows{Sheet: "Elsewhere", At: 1, Count: 1})
	if got != f {
		t.Errorf("unchanged formula rewritten: %q", got)
	}
}

func TestValidate(t *testing.T) {
	valid := []string{
		`SUM(A1:A10)`,
		`IF(A1=")",1,2)`,
		`"just text"`,
		`A1+(B2*(C3-1))`,
	}
	for _, f := range valid {
		if err := Validate(f); err != nil {
			t.Errorf("Validate(%q) = %v; want nil", f, err)
		}
	}

	invalid := []string{
		`SUM(A1`,
		`A1)`,
		`"unterminated`,
		`((A1)`,
	}
	for _, f := range invalid {
		if err := Validate(f); !errors.Is(err, ErrInvalid) {
			t.Errorf("Validate(%q) = %v; want ErrInvalid", f, err)
		}
	}
}

func runRewriteTests(t *testing.T, tests []struct {
	name    string
	formula string
	host    string
	edit    Edit
	want    string
}) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rewrite(tt.formula, tt.host, tt.edit); got != tt.want {
				t.Errorf("Rewrite(%q) = %q; want %q", tt.formula, got, tt.want)
			}
		})
	}
}
