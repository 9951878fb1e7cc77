package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

type createResult struct {
	File  string `json:"file"`
	Sheet string `json:"sheet"`
	Rows  int    `json:"rows"`
}

var createCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Create a new xlsx file",
	Long:  "Create a new xlsx file with optional headers and initial data.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])

		sheetName, err := cmd.Flags().GetString("sheet")
		if err != nil {
			return fmt.Errorf("failed to get sheet flag: %w", err)
		}
		headersStr, err := cmd.Flags().GetString("headers")
		if err != nil {
			return fmt.Errorf("failed to get headers flag: %w", err)
		}
		overwrite, err := cmd.Flags().GetBool("overwrite")
		if err != nil {
			return fmt.Errorf("failed to get overwrite flag: %w", err)
		}
		dataFile, err := cmd.Flags().GetString("data")
		if err != nil {
			return fmt.Errorf("failed to get data flag: %w", err)
		}

		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("file exists: %s (use --overwrite)", args[0])
			}
		}

		var headers []string
		if headersStr != "" {
			headers = strings.Split(headersStr, ",")
		}
		var rows [][]any
		if dataFile != "" {
			data, err := os.ReadFile(dataFile)
			if err != nil {
				return fmt.Errorf("failed to read data file: %w", err)
			}
			if err := json.Unmarshal(data, &rows); err != nil {
				return fmt.Errorf("failed to parse data file as JSON array: %w", err)
			}
		}

		wb := book.New()
		if sheetName != "" && sheetName != "Sheet1" {
			if err := wb.RenameSheet("Sheet1", sheetName); err != nil {
				return err
			}
		} else {
			sheetName = "Sheet1"
		}
		s, err := wb.Sheet(sheetName)
		if err != nil {
			return err
		}

		row := 1
		if len(headers) > 0 {
			for i, h := range headers {
				if err := s.SetValue(a1.Ref{Col: i + 1, Row: row}, book.String(h)); err != nil {
					return err
				}
			}
			row++
		}
		for _, r := range rows {
			for i, v := range r {
				val, err := anyToValue(v)
				if err != nil {
					return err
				}
				if err := s.SetValue(a1.Ref{Col: i + 1, Row: row}, val); err != nil {
					return err
				}
			}
			row++
		}

		if err := wb.SaveAs(path); err != nil {
			return err
		}

		result := createResult{File: args[0], Sheet: sheetName, Rows: row - 1}
		return output.Print(result, GetFormatFromCmd(cmd))
	},
}

// anyToValue maps decoded JSON values onto cell values.
func anyToValue(v any) (book.Value, error) {
	switch x := v.(type) {
	case nil:
		return book.Value{}, nil
	case string:
		return parseValue(x, "auto")
	case float64:
		return book.Number(x), nil
	case bool:
		return book.Bool(x), nil
	default:
		return book.Value{}, fmt.Errorf("unsupported cell value %T", v)
	}
}

func init() {
	createCmd.Flags().StringP("sheet", "s", "Sheet1", "Name for the first sheet")
	createCmd.Flags().StringP("headers", "H", "", "Comma-separated header row")
	createCmd.Flags().BoolP("overwrite", "o", false, "Overwrite existing file")
	createCmd.Flags().StringP("data", "d", "", "JSON file with initial data (array of arrays)")
	rootCmd.AddCommand(createCmd)
}
