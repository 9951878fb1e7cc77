package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fuabioo/sheetq/internal/a1"
	"github.com/fuabioo/sheetq/internal/book"
	"github.com/fuabioo/sheetq/internal/output"
)

var readCmd = &cobra.Command{
	Use:   "read <file.xlsx> [sheet] [range]",
	Short: "Read cell range",
	Long:  `Read cells from a range (e.g., A1:C10). If no range specified, streams the whole sheet.`,
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveArg(cmd, args[0])
		lw, err := book.OpenLazy(path)
		if err != nil {
			return err
		}
		defer lw.Close()

		sheet := ""
		rangeStr := ""
		if len(args) > 1 {
			// Could be sheet name or range
			if _, err := a1.ParseRange(args[1]); err == nil {
				rangeStr = args[1]
			} else {
				sheet = args[1]
			}
		}
		if len(args) > 2 {
			rangeStr = args[2]
		}
		if sheet == "" {
			sheet = lw.ActiveSheet()
		}

		var rng *a1.Range
		if rangeStr != "" {
			r, err := a1.ParseRange(rangeStr)
			if err != nil {
				return err
			}
			rng = &r
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		ch, err := lw.StreamRows(ctx, sheet, rng)
		if err != nil {
			return err
		}

		// A limit only applies to unbounded reads.
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		rows := ch
		truncated := new(bool)
		if rng == nil && limit > 0 {
			rows, truncated = limitRows(ctx, cancel, ch, limit)
		}

		first, last, _ := output.ColumnSpan(rng)
		if err := output.StreamRows(os.Stdout, GetFormatFromCmd(cmd), rows, first, last); err != nil {
			return err
		}
		if *truncated {
			fmt.Fprintf(os.Stderr, "Warning: Output truncated at limit (use --limit to adjust)\n")
		}
		return nil
	},
}

// limitRows forwards at most limit rows, cancelling the upstream scan
// once the limit is reached. Sends race against ctx so an abandoned
// consumer does not strand the forwarder. The flag reports truncation
// once the returned channel is closed.
func limitRows(ctx context.Context, cancel context.CancelFunc, ch <-chan book.RowResult, limit int) (<-chan book.RowResult, *bool) {
	truncated := new(bool)
	limited := make(chan book.RowResult)
	go func() {
		defer close(limited)
		n := 0
		for r := range ch {
			select {
			case limited <- r:
			case <-ctx.Done():
				return
			}
			if r.Err != nil {
				return
			}
			n++
			if n >= limit {
				*truncated = true
				cancel()
				for range ch {
				}
				return
			}
		}
	}()
	return limited, truncated
}

func init() {
	readCmd.Flags().IntP("limit", "l", 1000, "Maximum rows when no range specified (0 = unlimited)")
	rootCmd.AddCommand(readCmd)
}
