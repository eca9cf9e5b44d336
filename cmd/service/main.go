package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/config"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/database"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/directory"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/logging"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/service"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 DBHOST=localhost GIN_MODE=release GIN_LOGGING=false go run main.go
// > go run main.go --db-driver=sqlite --db-dsn=phonebook.db --page-size=50
func main() {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "phonebook-service",
		Short: "Contact directory REST API",
		Long:  "Stores contact records and lets clients search, sort, page, create, edit and delete them.",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if cfg.Migrate {
				if err := database.Migrate(cmd.Context(), sqlDB, cfg.DBDriver, log.Named("migrations")); err != nil {
					return err
				}
			}

			store, err := directory.NewStore(sqlDB, cfg.DBDriver, cfg.PageSize, log.Named("store"))
			if err != nil {
				return err
			}

			router := service.SetupHttpRouter(store, log.Named("http"), cfg.GinLogging)
			log.Info("Listening", zap.String("laddr", cfg.Laddr), zap.String("driver", cfg.DBDriver))
			return router.Run(cfg.Laddr)
		},
	}
	if err := config.BindServerFlags(cmd, v); err != nil {
		panic(err)
	}
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
