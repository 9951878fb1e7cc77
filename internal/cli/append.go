package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

type appendResult struct {
	File     string `json:"file"`
	Sheet    string `json:"sheet"`
	FirstRow int    `json:"first_row"`
	Rows     int    `json:"rows"`
}

var appendCmd = &cobra.Command{
	Use:   "append <file> <data-file>",
	Short: "Append rows to a sheet",
	Long:  "Append rows from a JSON file below the used range of a sheet.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])

		sheet, err := cmd.Flags().GetString("sheet")
		if err != nil {
			return fmt.Errorf("failed to get sheet flag: %w", err)
		}

		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read data file: %w", err)
		}
		var rows [][]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("failed to parse data as JSON array: %w", err)
		}

		wb, err := book.Open(path)
		if err != nil {
			return err
		}
		defer wb.Close()

		if sheet == "" {
			sheet = wb.ActiveSheet().Name()
		}
		s, err := wb.Sheet(sheet)
		if err != nil {
			return err
		}

		start := 1
		if ur, ok := s.UsedRange(); ok {
			start = ur.End.Row + 1
		}
		row := start
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

		if err := wb.Save(); err != nil {
			return err
		}

		result := appendResult{File: args[0], Sheet: sheet, FirstRow: start, Rows: row - start}
		return output.Print(result, GetFormatFromCmd(cmd))
	},
}

func init() {
	appendCmd.Flags().StringP("sheet", "s", "", "Sheet name (default: active sheet)")
	rootCmd.AddCommand(appendCmd)
}
