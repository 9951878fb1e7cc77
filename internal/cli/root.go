package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	formatFlag   string
	basepathFlag string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "sheetq",
	Short: "sheetq - streaming spreadsheet engine",
	Long:  `sheetq reads, edits and writes xlsx workbooks without loading whole sheets into memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, date string) error {

	// Build version string with commit and date
	versionStr := version
	if versionStr == "" {
		versionStr = "dev"
	}
	if commit != "" {
		versionStr += fmt.Sprintf(" (commit: %s)", commit)
	}
	if date != "" {
		versionStr += fmt.Sprintf(" built: %s", date)
	}

	return fang.Execute(ctx, rootCmd,
		fang.WithVersion(versionStr),
	)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format (json, csv, tsv)")
	rootCmd.PersistentFlags().StringVar(&basepathFlag, "basepath", "", "Base directory for relative file arguments")
}

// GetFormatFromCmd returns the output format selected for a command.
func GetFormatFromCmd(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("format")
	if err != nil || format == "" {
		return "json"
	}
	return format
}
