package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/snuggle-app/snuggle-core/internal/infrastructure/persistence/postgres"
)

var errNotPostgres = errors.New("migrations are managed only for the postgres driver; sqlite applies its schema on open")

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or roll back PostgreSQL migrations",
		Long:  "Migrations run automatically when the store is opened. These commands report their state or undo the latest one.",
	}
	cmd.AddCommand(migrateStatusCmd(), migrateRollbackCmd())
	return cmd
}

func migrator() (*postgres.Migrator, error) {
	if appCtx.Postgres == nil {
		return nil, errNotPostgres
	}
	return postgres.NewMigrator(appCtx.Postgres), nil
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and when they were applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			list, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			type row struct {
				Version   int    `json:"version"`
				Name      string `json:"name"`
				Applied   bool   `json:"applied"`
				AppliedAt string `json:"applied_at,omitempty"`
			}
			rows := make([]row, 0, len(list))
			for _, mg := range list {
				r := row{Version: mg.Version, Name: mg.Name, Applied: mg.IsApplied}
				if mg.IsApplied {
					r.AppliedAt = mg.AppliedAt.Format("2006-01-02 15:04:05")
				}
				rows = append(rows, r)
			}
			health, err := appCtx.Postgres.Health(cmd.Context())
			if err != nil {
				return err
			}
			return emit(cmd, rows, func(w io.Writer) {
				if health.Healthy {
					fmt.Fprintf(w, "pool %d/%d connections, ping %s\n", health.AcquiredConns, health.MaxConns, health.PingLatency)
				} else {
					fmt.Fprintf(w, "database unhealthy: %s\n", health.Error)
				}
				for _, r := range rows {
					state := "pending"
					if r.Applied {
						state = "applied " + r.AppliedAt
					}
					fmt.Fprintf(w, "%03d  %-32s %s\n", r.Version, r.Name, state)
				}
			})
		},
	}
}

func migrateRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Undo the latest applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator()
			if err != nil {
				return err
			}
			if err := m.Rollback(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rolled back the latest migration")
			return nil
		},
	}
}
