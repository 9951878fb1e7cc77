package cli

import (
	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

type cellResult struct {
	Sheet string     `json:"sheet"`
	Ref   string     `json:"ref"`
	Value book.Value `json:"value"`
}

var cellCmd = &cobra.Command{
	Use:   "cell <file.xlsx> [sheet] <address>",
	Short: "Get single cell value",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])
		lw, err := book.OpenLazy(path)
		if err != nil {
			return err
		}
		defer lw.Close()

		var sheet, address string
		if len(args) == 2 {
			// Only file and address provided, use the active sheet
			sheet = lw.ActiveSheet()
			address = args[1]
		} else {
			sheet = args[1]
			address = args[2]
		}

		ref, err := a1.ParseRef(address)
		if err != nil {
			return err
		}
		v, err := lw.ReadCell(sheet, ref)
		if err != nil {
			return err
		}

		return output.Print(cellResult{Sheet: sheet, Ref: ref.String(), Value: v}, GetFormatFromCmd(cmd))
	},
}

func init() {
	rootCmd.AddCommand(cellCmd)
}
