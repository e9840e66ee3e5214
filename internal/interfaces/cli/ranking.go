package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
)

type modelTable struct{ *ranking.ModelInfo }

func (t modelTable) TableHeaders() []string { return []string{"Field", "Value"} }

func (t modelTable) TableRows() [][]string {
	loaded := color.RedString("no")
	if t.Loaded {
		loaded = color.GreenString("yes")
	}
	rows := [][]string{
		{"Loaded", loaded},
		{"Version", t.Version},
		{"Source", t.Source},
		{"Modified", formatTime(t.ModTime)},
		{"Loaded At", formatTime(t.LoadedAt)},
		{"NDCG@" + strconv.Itoa(t.Metrics.EvalAtK), fmt.Sprintf("%.4f", t.Metrics.NDCG)},
		{"MRR", fmt.Sprintf("%.4f", t.Metrics.MRR)},
		{"Train/Valid Queries", fmt.Sprintf("%d/%d", t.Metrics.TrainQueries, t.Metrics.ValidQueries)},
	}
	if t.LastError != "" {
		rows = append(rows, []string{"Last Error", color.RedString(t.LastError)})
	}
	return rows
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// NewRankingCmd groups the learned-ranker lifecycle commands.
func NewRankingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Manage the learned ranking model",
	}
	cmd.AddCommand(newRankingTrainCmd(), newRankingModelCmd())
	return cmd
}

func newRankingTrainCmd() *cobra.Command {
	var reason, requestedBy string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Queue a training run on the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if requestedBy == "" {
				requestedBy = defaultRequester()
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			res, err := cc.Client.Ranking().Train(ctx, requestedBy, reason)
			if err != nil {
				return fmt.Errorf("train request failed: %w", err)
			}
			if cc.OutputFormat == "json" || cc.OutputFormat == "yaml" {
				return PrintResult(cmd, res)
			}
			PrintSuccess(cmd, fmt.Sprintf("training %s (event %s)", res.Status, res.EventID))
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "free-text reason recorded with the run")
	cmd.Flags().StringVar(&requestedBy, "requested-by", "", "requester recorded with the run (default: cli:$USER)")
	return cmd
}

func newRankingModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Show the model the API server is using",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cc)
			defer cancel()

			info, err := cc.Client.Ranking().Model(ctx)
			if err != nil {
				return fmt.Errorf("model lookup failed: %w", err)
			}
			if cc.OutputFormat == "json" || cc.OutputFormat == "yaml" {
				return PrintResult(cmd, info)
			}
			return PrintResult(cmd, modelTable{info})
		},
	}
}

func defaultRequester() string {
	if u := os.Getenv("USER"); u != "" {
		return "cli:" + u
	}
	return "cli"
}

//Personal.AI order the ending
