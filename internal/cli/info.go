package cli

import (
	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

// infoResult is the JSON shape of the info command.
type infoResult struct {
	File     string             `json:"file"`
	Stats    book.Stats         `json:"stats"`
	Props    book.Properties    `json:"properties"`
	Sheets   []sheetInfo        `json:"sheets"`
	Names    []book.DefinedName `json:"defined_names,omitempty"`
	Warnings []book.Warning     `json:"warnings,omitempty"`
}

type sheetInfo struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	Cells      int    `json:"cells"`
	UsedRange  string `json:"used_range,omitempty"`
	Active     bool   `json:"active"`
}

var infoCmd = &cobra.Command{
	Use:   "info <file.xlsx>",
	Short: "Get workbook metadata and per-sheet stats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])
		wb, err := book.Open(path)
		if err != nil {
			return err
		}
		defer wb.Close()

		res := infoResult{
			File:     args[0],
			Stats:    wb.Stats(),
			Props:    wb.Props(),
			Names:    wb.DefinedNames(),
			Warnings: wb.Warnings(),
		}
		active := wb.ActiveSheet()
		for _, s := range wb.Sheets() {
			si := sheetInfo{
				Name:       s.Name(),
				Visibility: string(s.Visibility()),
				Cells:      s.CellCount(),
				Active:     s == active,
			}
			if ur, ok := s.UsedRange(); ok {
				si.UsedRange = ur.String()
			}
			res.Sheets = append(res.Sheets, si)
		}

		return output.Print(res, GetFormatFromCmd(cmd))
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
