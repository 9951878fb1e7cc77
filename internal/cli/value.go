package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fuabioo/sheetq/internal/book"
)

// parseValue turns a CLI string into a typed cell value. valueType
// "auto" infers: "=..." is a formula, numbers and TRUE/FALSE convert,
// everything else stays a string.
func parseValue(raw, valueType string) (book.Value, error) {
	switch strings.ToLower(valueType) {
	case "string":
		return book.String(raw), nil
	case "number":
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return book.Value{}, fmt.Errorf("not a number: %q", raw)
		}
		return book.Number(n), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return book.Value{}, fmt.Errorf("not a bool: %q", raw)
		}
		return book.Bool(b), nil
	case "formula":
		return book.Formula(strings.TrimPrefix(raw, "="), nil), nil
	case "auto", "":
		if strings.HasPrefix(raw, "=") {
			return book.Formula(strings.TrimPrefix(raw, "="), nil), nil
		}
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return book.Number(n), nil
		}
		switch strings.ToUpper(raw) {
		case "TRUE":
			return book.Bool(true), nil
		case "FALSE":
			return book.Bool(false), nil
		}
		return book.String(raw), nil
	default:
		return book.Value{}, fmt.Errorf("unknown value type: %s (valid: auto, string, number, bool, formula)", valueType)
	}
}
