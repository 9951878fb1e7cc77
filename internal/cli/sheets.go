package cli

import (
	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

type sheetEntry struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	Active     bool   `json:"active"`
}

var sheetsCmd = &cobra.Command{
	Use:   "sheets <file.xlsx>",
	Short: "List all sheets in workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])
		// Listing needs only workbook metadata, not cell data.
		lw, err := book.OpenLazy(path)
		if err != nil {
			return err
		}
		defer lw.Close()

		active := lw.ActiveSheet()
		var entries []sheetEntry
		for _, name := range lw.SheetNames() {
			vis, err := lw.Visibility(name)
			if err != nil {
				return err
			}
			entries = append(entries, sheetEntry{
				Name:       name,
				Visibility: string(vis),
				Active:     name == active,
			})
		}

		return output.Print(entries, GetFormatFromCmd(cmd))
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}
