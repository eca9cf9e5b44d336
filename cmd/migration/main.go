package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/config"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/database"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/logging"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go up
// > go run main.go status --db-driver=sqlite --db-dsn=phonebook.db
func main() {
	v := viper.New()
	root := &cobra.Command{
		Use:   "migration",
		Short: "Manage the phonebook database schema",
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withDatabase(v, func(ctx context.Context, sqlDB *sql.DB, driver string, log *zap.Logger) error {
				return database.Migrate(ctx, sqlDB, driver, log)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the most recent migration",
			RunE: withDatabase(v, func(ctx context.Context, sqlDB *sql.DB, driver string, log *zap.Logger) error {
				return database.Rollback(ctx, sqlDB, driver, log)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List all migrations and whether they have been applied",
			RunE: withDatabase(v, func(ctx context.Context, sqlDB *sql.DB, driver string, log *zap.Logger) error {
				statuses, err := database.Status(ctx, sqlDB, driver)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Printf("%5d  %-8s %s\n", s.Version, state, s.Path)
				}
				return nil
			}),
		},
	)
	if err := config.BindDatabaseFlags(root, v); err != nil {
		panic(err)
	}
	if err := root.Execute(); err != nil {
		panic(err)
	}
}

// withDatabase opens the configured database, runs f against it and closes it again.
func withDatabase(v *viper.Viper, f func(ctx context.Context, sqlDB *sql.DB, driver string, log *zap.Logger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		log, err := logging.NewLogger(cfg.Verbose)
		if err != nil {
			return err
		}
		defer log.Sync()

		sqlDB, err := database.CreateDatabase(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		return f(cmd.Context(), sqlDB, cfg.DBDriver, log)
	}
}
