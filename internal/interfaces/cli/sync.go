package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/indexing"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// SyncRunner is the subset of indexing.Syncer the command drives.
type SyncRunner interface {
	Configured(t indexing.Target) bool
	Run(ctx context.Context, targets ...indexing.Target) (*indexing.Report, error)
}

// SyncerFactory opens the local stores and returns a runner plus a
// release func.
type SyncerFactory func(ctx context.Context, cc *CLIContext, progress func(indexing.Target, int)) (SyncRunner, func(), error)

type syncTable struct{ *indexing.Report }

func (t syncTable) TableHeaders() []string { return []string{"Target", "Written"} }

func (t syncTable) TableRows() [][]string {
	keys := make([]string, 0, len(t.Written))
	for k := range t.Written {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(t.Written[indexing.Target(k)])})
	}
	return rows
}

// NewSyncCmd creates `sync [TARGET...]`, which copies relational data into
// the graph, vector and text indexes directly.
func NewSyncCmd(factory SyncerFactory) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "sync [graph|embeddings|subcategories]...",
		Short: "Rebuild derived indexes from the relational store",
		Long:  "Rebuild derived indexes from the relational store. With no targets every\nconfigured target is synced. Runs locally against the configured stores.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if factory == nil {
				return errors.New(errors.ErrCodeServiceUnavailable, "sync is not available in this build")
			}
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			targets, err := parseTargets(args)
			if err != nil {
				return err
			}

			var (
				mu  sync.Mutex
				bar *progressbar.ProgressBar
			)
			if !quiet && cc.OutputFormat != "json" && cc.OutputFormat != "yaml" {
				bar = progressbar.NewOptions64(-1,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("syncing"),
					progressbar.OptionShowCount(),
					progressbar.OptionSpinnerType(14),
					progressbar.OptionClearOnFinish(),
				)
			}
			progress := func(t indexing.Target, n int) {
				if bar == nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				bar.Describe("syncing " + string(t))
				_ = bar.Add(n)
			}

			runner, release, err := factory(cmd.Context(), cc, progress)
			if err != nil {
				return fmt.Errorf("open stores: %w", err)
			}
			defer release()

			if len(targets) == 0 {
				for _, t := range indexing.AllTargets() {
					if runner.Configured(t) {
						targets = append(targets, t)
					}
				}
				if len(targets) == 0 {
					return errors.New(errors.ErrCodeValidation, "no sync target is configured")
				}
			}

			report, err := runner.Run(cmd.Context(), targets...)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			if err := PrintResult(cmd, syncTable{report}); err != nil {
				return err
			}
			if cc.OutputFormat != "json" && cc.OutputFormat != "yaml" {
				PrintSuccess(cmd, fmt.Sprintf("sync finished in %s", report.Duration.Round(1e6)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress indicator")
	return cmd
}

func parseTargets(args []string) ([]indexing.Target, error) {
	targets := make([]indexing.Target, 0, len(args))
	for _, a := range args {
		t, err := indexing.ParseTarget(a)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

//Personal.AI order the ending
