package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

type writeResult struct {
	File  string     `json:"file"`
	Sheet string     `json:"sheet"`
	Ref   string     `json:"ref"`
	Value book.Value `json:"value"`
}

var writeCmd = &cobra.Command{
	Use:   "write <file> <cell> <value>",
	Short: "Write a value to a cell",
	Long:  "Write a value to a specific cell in an xlsx file. Use --sheet to specify sheet.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])

		sheet, err := cmd.Flags().GetString("sheet")
		if err != nil {
			return fmt.Errorf("failed to get sheet flag: %w", err)
		}
		valueType, err := cmd.Flags().GetString("type")
		if err != nil {
			return fmt.Errorf("failed to get type flag: %w", err)
		}

		ref, err := a1.ParseRef(args[1])
		if err != nil {
			return err
		}
		v, err := parseValue(args[2], valueType)
		if err != nil {
			return err
		}

		wb, err := book.Open(path)
		if err != nil {
			return err
		}
		defer wb.Close()

		if sheet == "" {
			sheet = wb.ActiveSheet().Name()
		}
		if v.Kind == book.KindFormula {
			err = wb.SetFormula(sheet, ref, v.Formula)
		} else {
			var s *book.Sheet
			s, err = wb.Sheet(sheet)
			if err == nil {
				err = s.SetValue(ref, v)
			}
		}
		if err != nil {
			return err
		}
		if err := wb.Save(); err != nil {
			return err
		}

		result := writeResult{File: args[0], Sheet: sheet, Ref: ref.String(), Value: v}
		return output.Print(result, GetFormatFromCmd(cmd))
	},
}

func init() {
	writeCmd.Flags().StringP("sheet", "s", "", "Sheet name (default: active sheet)")
	writeCmd.Flags().StringP("type", "t", "auto", "Value type: auto, string, number, bool, formula")
	rootCmd.AddCommand(writeCmd)
}
