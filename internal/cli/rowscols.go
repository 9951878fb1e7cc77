package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

func structuralEdit(cmd *cobra.Command, args []string, op string, rows bool) error {
	at, err := strconv.Atoi(args[1])
	if err != nil {
		if !rows {
			// Columns also accept letters.
			at, err = a1.ColumnNumber(args[1])
		}
		if err != nil {
			return fmt.Errorf("bad position %q: %w", args[1], err)
		}
	}
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}
	sheet, err := cmd.Flags().GetString("sheet")
	if err != nil {
		return err
	}

	path := resolveArg(cmd, args[0])
	wb, err := book.Open(path)
	if err != nil {
		return err
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.ActiveSheet().Name()
	}
	switch {
	case rows && op == "insert":
		err = wb.InsertRows(sheet, at, count)
	case rows:
		err = wb.DeleteRows(sheet, at, count)
	case op == "insert":
		err = wb.InsertCols(sheet, at, count)
	default:
		err = wb.DeleteCols(sheet, at, count)
	}
	if err != nil {
		return err
	}
	if err := wb.Save(); err != nil {
		return err
	}

	result := sheetOpResult{File: args[0], Op: op, Sheet: sheet, Sheets: wb.SheetNames()}
	return output.Print(result, GetFormatFromCmd(cmd))
}

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Insert or delete rows",
}

var rowsInsertCmd = &cobra.Command{
	Use:   "insert <file> <row>",
	Short: "Insert rows before the given row, shifting formulas",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return structuralEdit(cmd, args, "insert", true)
	},
}

var rowsDeleteCmd = &cobra.Command{
	Use:   "delete <file> <row>",
	Short: "Delete rows starting at the given row",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return structuralEdit(cmd, args, "delete", true)
	},
}

var colsCmd = &cobra.Command{
	Use:   "cols",
	Short: "Insert or delete columns",
}

var colsInsertCmd = &cobra.Command{
	Use:   "insert <file> <col>",
	Short: "Insert columns before the given column (number or letter)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return structuralEdit(cmd, args, "insert", false)
	},
}

var colsDeleteCmd = &cobra.Command{
	Use:   "delete <file> <col>",
	Short: "Delete columns starting at the given column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return structuralEdit(cmd, args, "delete", false)
	},
}

func init() {
	for _, c := range []*cobra.Command{rowsInsertCmd, rowsDeleteCmd, colsInsertCmd, colsDeleteCmd} {
		c.Flags().IntP("count", "n", 1, "Number of rows or columns")
		c.Flags().StringP("sheet", "s", "", "Sheet name (default: active sheet)")
	}
	rowsCmd.AddCommand(rowsInsertCmd, rowsDeleteCmd)
	colsCmd.AddCommand(colsInsertCmd, colsDeleteCmd)
	rootCmd.AddCommand(rowsCmd, colsCmd)
}
