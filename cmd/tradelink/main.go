// CLI entry point for TradeLink-Intelligence.
package main

import (
	"context"
	"os"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/indexing"
	"github.com/turtacn/TradeLink-Intelligence/internal/bootstrap"
	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	deps := cli.Dependencies{
		NewSyncer: func(ctx context.Context, cc *cli.CLIContext, progress func(indexing.Target, int)) (cli.SyncRunner, func(), error) {
			s, release, err := bootstrap.OpenSyncer(ctx, cc.Config, cc.Logger, progress)
			if err != nil {
				return nil, nil, err
			}
			return s, release, nil
		},
		NewMigrator: func(cfg config.DatabaseConfig) cli.Migrator {
			return postgres.NewMigrator(cfg)
		},
	}
	// Execute already printed the error.
	if err := cli.Execute(deps); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
