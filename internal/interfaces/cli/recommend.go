package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

type recommendTable struct{ *trade.Recommendation }

func (t recommendTable) TableHeaders() []string {
	return []string{"Rank", "Company", "Confidence", "Segment", "Signals"}
}

func (t recommendTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.Results))
	for _, r := range t.Results {
		methods := make([]string, 0, len(r.Scores))
		for m := range r.Scores {
			methods = append(methods, string(m))
		}
		sort.Strings(methods)
		signals := make([]string, 0, len(methods))
		for _, m := range methods {
			signals = append(signals, fmt.Sprintf("%s=%.2f", m, r.Scores[trade.Method(m)]))
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Rank),
			truncateString(r.Name, 40),
			colorizeScore(r.FinalConfidence),
			r.SegmentTag,
			strings.Join(signals, " "),
		})
	}
	return rows
}

// NewRecommendCmd creates `recommend COMPANY`.
func NewRecommendCmd() *cobra.Command {
	var (
		direction string
		topK      int
	)
	cmd := &cobra.Command{
		Use:   "recommend COMPANY",
		Short: "Predict likely new trading partners for a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			dir, ok := trade.ParseRecommendDirection(direction)
			if !ok {
				return errors.Newf(errors.ErrCodeValidation, "--direction must be sellers or buyers, got %q", direction)
			}
			if topK < 0 || topK > 100 {
				return errors.Newf(errors.ErrCodeValidation, "--top must be between 0 and 100, got %d", topK)
			}

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()
			rec, err := cc.Client.Counterparties().Recommend(ctx, args[0], dir, topK)
			if err != nil {
				return fmt.Errorf("recommend failed: %w", err)
			}

			if cc.OutputFormat == "json" || cc.OutputFormat == "yaml" {
				return PrintResult(cmd, rec)
			}
			out := cmd.OutOrStdout()
			if len(rec.Results) == 0 {
				fmt.Fprintf(out, "No %s predicted for %s.\n", rec.Direction, rec.Company)
				return nil
			}
			fmt.Fprintf(out, "Predicted %s for %s (%s)\n", rec.Direction, rec.Company, rec.Method)
			return PrintResult(cmd, recommendTable{rec})
		},
	}
	cmd.Flags().StringVarP(&direction, "direction", "d", "sellers", "who to recommend: sellers or buyers")
	cmd.Flags().IntVarP(&topK, "top", "k", 0, "number of results (0 uses the server default)")
	return cmd
}

//Personal.AI order the ending
