package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

type sheetOpResult struct {
	File   string   `json:"file"`
	Op     string   `json:"op"`
	Sheet  string   `json:"sheet"`
	Sheets []string `json:"sheets"`
}

// withWorkbook opens, applies fn and saves in one motion.
func withWorkbook(cmd *cobra.Command, file, op, sheet string, fn func(*book.Workbook) error) error {
	path := resolveArg(cmd, file)
	wb, err := book.Open(path)
	if err != nil {
		return err
	}
	defer wb.Close()

	if err := fn(wb); err != nil {
		return err
	}
	if err := wb.Save(); err != nil {
		return err
	}

	result := sheetOpResult{File: file, Op: op, Sheet: sheet, Sheets: wb.SheetNames()}
	return output.Print(result, GetFormatFromCmd(cmd))
}

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Manage worksheets",
}

var sheetAddCmd = &cobra.Command{
	Use:   "add <file> <name>",
	Short: "Add a sheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkbook(cmd, args[0], "add", args[1], func(wb *book.Workbook) error {
			_, err := wb.AddSheet(args[1])
			return err
		})
	},
}

var sheetRmCmd = &cobra.Command{
	Use:   "rm <file> <name>",
	Short: "Remove a sheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkbook(cmd, args[0], "rm", args[1], func(wb *book.Workbook) error {
			return wb.RemoveSheet(args[1])
		})
	},
}

var sheetRenameCmd = &cobra.Command{
	Use:   "rename <file> <old> <new>",
	Short: "Rename a sheet, rewriting formulas that point at it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkbook(cmd, args[0], "rename", args[2], func(wb *book.Workbook) error {
			return wb.RenameSheet(args[1], args[2])
		})
	},
}

var sheetMoveCmd = &cobra.Command{
	Use:   "move <file> <name> <position>",
	Short: "Move a sheet to a zero-based tab position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		return withWorkbook(cmd, args[0], "move", args[1], func(wb *book.Workbook) error {
			return wb.MoveSheet(args[1], pos)
		})
	},
}

var sheetHideCmd = &cobra.Command{
	Use:   "hide <file> <name>",
	Short: "Hide a sheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		very, err := cmd.Flags().GetBool("very")
		if err != nil {
			return err
		}
		vis := book.Hidden
		if very {
			vis = book.VeryHidden
		}
		return withWorkbook(cmd, args[0], "hide", args[1], func(wb *book.Workbook) error {
			return wb.SetVisibility(args[1], vis)
		})
	},
}

var sheetShowCmd = &cobra.Command{
	Use:   "show <file> <name>",
	Short: "Make a sheet visible",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkbook(cmd, args[0], "show", args[1], func(wb *book.Workbook) error {
			return wb.SetVisibility(args[1], book.Visible)
		})
	},
}

func init() {
	sheetHideCmd.Flags().Bool("very", false, "Hide so only code can unhide")
	sheetCmd.AddCommand(sheetAddCmd, sheetRmCmd, sheetRenameCmd, sheetMoveCmd, sheetHideCmd, sheetShowCmd)
	rootCmd.AddCommand(sheetCmd)
}
