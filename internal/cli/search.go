package cli

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

var (
	searchIgnoreCase bool
	searchRegex      bool
	searchSheet      string
	searchMax        int
)

type searchHit struct {
	Sheet string     `json:"sheet"`
	Ref   string     `json:"ref"`
	Value book.Value `json:"value"`
}

var searchCmd = &cobra.Command{
	Use:   "search <file.xlsx> <pattern>",
	Short: "Search for cells matching pattern",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])
		lw, err := book.OpenLazy(path)
		if err != nil {
			return err
		}
		defer lw.Close()

		match, err := buildMatcher(args[1], searchIgnoreCase, searchRegex)
		if err != nil {
			return err
		}

		sheets := lw.SheetNames()
		if searchSheet != "" {
			sheets = []string{searchSheet}
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var hits []searchHit
	scan:
		for _, sheet := range sheets {
			ch, err := lw.StreamRows(ctx, sheet, nil)
			if err != nil {
				return err
			}
			for r := range ch {
				if r.Err != nil {
					return r.Err
				}
				for _, c := range r.Cells {
					if !match(c.Value.Display()) {
						continue
					}
					hits = append(hits, searchHit{Sheet: sheet, Ref: c.Ref.String(), Value: c.Value})
					if searchMax > 0 && len(hits) >= searchMax {
						cancel()
						for range ch {
						}
						break scan
					}
				}
			}
		}

		return output.Print(hits, GetFormatFromCmd(cmd))
	},
}

func buildMatcher(pattern string, ignoreCase, regex bool) (func(string) bool, error) {
	if regex {
		if ignoreCase {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern: %w", err)
		}
		return re.MatchString, nil
	}
	if ignoreCase {
		lower := strings.ToLower(pattern)
		return func(s string) bool { return strings.Contains(strings.ToLower(s), lower) }, nil
	}
	return func(s string) bool { return strings.Contains(s, pattern) }, nil
}

func init() {
	searchCmd.Flags().BoolVarP(&searchIgnoreCase, "ignore-case", "i", false, "Case-insensitive search")
	searchCmd.Flags().BoolVarP(&searchRegex, "regex", "r", false, "Treat pattern as regex")
	searchCmd.Flags().StringVarP(&searchSheet, "sheet", "s", "", "Search only in specific sheet")
	searchCmd.Flags().IntVarP(&searchMax, "max", "m", 0, "Maximum results (0 = unlimited)")
	rootCmd.AddCommand(searchCmd)
}
