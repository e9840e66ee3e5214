package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// Migrator applies relational schema migrations.
type Migrator interface {
	Up() error
	Down(steps int) error
	Status() (version uint, dirty bool, err error)
	Force(version int) error
}

// MigratorFactory builds a Migrator for the database section.
type MigratorFactory func(cfg config.DatabaseConfig) Migrator

type migrationStatus struct {
	Version uint `json:"version" yaml:"version"`
	Dirty   bool `json:"dirty" yaml:"dirty"`
}

func (s migrationStatus) TableHeaders() []string { return []string{"Version", "Dirty"} }
func (s migrationStatus) TableRows() [][]string {
	return [][]string{{strconv.FormatUint(uint64(s.Version), 10), strconv.FormatBool(s.Dirty)}}
}

// NewMigrateCmd creates `migrate up|down|status|force`.
func NewMigrateCmd(factory MigratorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply relational schema migrations",
	}

	open := func(cmd *cobra.Command) (Migrator, error) {
		if factory == nil {
			return nil, errors.New(errors.ErrCodeServiceUnavailable, "migrate is not available in this build")
		}
		cc, err := GetCLIContext(cmd)
		if err != nil {
			return nil, err
		}
		return factory(cc.Config.Database), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(cmd)
			if err != nil {
				return err
			}
			if err := m.Up(); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return errors.New(errors.ErrCodeValidation, "--steps must be at least 1")
			}
			m, err := open(cmd)
			if err != nil {
				return err
			}
			if err := m.Down(steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(down, &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open(cmd)
			if err != nil {
				return err
			}
			v, dirty, err := m.Status()
			if err != nil {
				return err
			}
			return PrintResult(cmd, migrationStatus{Version: v, Dirty: dirty})
		},
	}, &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Newf(errors.ErrCodeValidation, "invalid version %q", args[0])
			}
			m, err := open(cmd)
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("forced version %d", v))
			return nil
		},
	})
	return cmd
}

//Personal.AI order the ending
