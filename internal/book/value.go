package book

import (
	"encoding/json"
	"strconv"
)

// Kind discriminates cell values.
type Kind int

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindBool
	KindError
	KindFormula
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindError:
		return "error"
	case KindFormula:
		return "formula"
	}
	return "unknown"
}

// Value is a typed cell value. The zero value is the empty cell.
type Value struct {
	Kind    Kind
	Str     string  // KindString text or KindError code
	Num     float64 // KindNumber
	Bool    bool    // KindBool
	Formula string  // KindFormula expression, without leading '='
	Cached  *Value  // last computed result of a formula, if known
}

func String(s string) Value     { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value    { return Value{Kind: KindNumber, Num: n} }
func Bool(b bool) Value         { return Value{Kind: KindBool, Bool: b} }
func ErrorValue(c string) Value { return Value{Kind: KindError, Str: c} }

func Formula(expr string, cached *Value) Value {
	return Value{Kind: KindFormula, Formula: expr, Cached: cached}
}

func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// Display renders the value the way a cell shows it. Integral
// numbers print without a decimal point; formulas show their cached
// result when one exists.
func (v Value) Display() string {
	switch v.Kind {
	case KindString, KindError:
		return v.Str
	case KindNumber:
		return formatNumber(v.Num)
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindFormula:
		if v.Cached != nil {
			return v.Cached.Display()
		}
		return "=" + v.Formula
	}
	return ""
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

/// MarshalJSON emits {"type": ..., "value": ...} the way the CLI
// formatters expect.
func (v Value) MarshalJSON() ([]byte, error) {
	out := struct {
		Type    string      `json:"type"`
		Value   interface{} `json:"value"`
		Formula string      `json:"formula,omitempty"`
	}{Type: v.Kind.String()}

	switch v.Kind {
	case KindEmpty:
		out.Value = nil
	case KindString, KindError:
		out.Value = v.Str
	case KindNumber:
		out.Value = v.Num
	case KindBool:
		out.Value = v.Bool
	case KindFormula:
		out.Formula = v.Formula
		if v.Cached != nil {
			out.Value = v.Cached.Display()
		}
	}
	return json.Marshal(out)
}
