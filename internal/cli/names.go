package cli

import (
	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

var namesCmd = &cobra.Command{
	Use:   "names <file.xlsx>",
	Short: "List defined names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])
		lw, err := book.OpenLazy(path)
		if err != nil {
			return err
		}
		defer lw.Close()

		return output.Print(lw.DefinedNames(), GetFormatFromCmd(cmd))
	},
}

var namesAddCmd = &cobra.Command{
	Use:   "add <file> <name> <reference>",
	Short: "Add a defined name",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sheet, err := cmd.Flags().GetString("sheet")
		if err != nil {
			return err
		}
		return withWorkbook(cmd, args[0], "name-add", args[1], func(wb *book.Workbook) error {
			local := -1
			if sheet != "" {
				s, err := wb.Sheet(sheet)
				if err != nil {
					return err
				}
				for i, cand := range wb.Sheets() {
					if cand == s {
						local = i
					}
				}
			}
			return wb.AddDefinedName(book.DefinedName{
				Name:       args[1],
				Reference:  args[2],
				LocalSheet: local,
			})
		})
	},
}

var namesRmCmd = &cobra.Command{
	Use:   "rm <file> <name>",
	Short: "Remove a defined name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkbook(cmd, args[0], "name-rm", args[1], func(wb *book.Workbook) error {
			return wb.RemoveDefinedName(args[1])
		})
	},
}

func init() {
	namesAddCmd.Flags().StringP("sheet", "s", "", "Scope the name to one sheet")
	namesCmd.AddCommand(namesAddCmd, namesRmCmd)
	rootCmd.AddCommand(namesCmd)
}
