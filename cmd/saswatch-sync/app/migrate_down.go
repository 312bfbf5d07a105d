package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back database migrations",
	Long: `Roll back database migrations. Without --num-steps this reverts ALL
migrations; with --num-steps it reverts only that many.`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	m, cfg, err := newMigrator(cmd)
	if err != nil {
		return err
	}

	steps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	action := "roll back ALL migrations"
	if steps > 0 {
		action = fmt.Sprintf("roll back %d migration(s)", steps)
	}
	ok, err := confirm(cmd, action, cfg)
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("Migration cancelled by user")
		return nil
	}

	slog.Info("Rolling back database migrations...")
	if steps > 0 {
		err = m.Steps(-int(steps))
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	slog.Info("Rollback complete")
	return nil
}
