package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/database"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/directory"
)

const (
	VerboseKey    = "verbose"
	ConfigKey     = "config"
	LaddrKey      = "laddr"
	DBDriverKey   = "db-driver"
	DBDSNKey      = "db-dsn"
	MigrateKey    = "migrate"
	PageSizeKey   = "page-size"
	GinLoggingKey = "gin-logging"
)

var (
	errInvalidPageSize = errors.New("invalid page size")
	errMissingDSN      = errors.New("missing database DSN")
)

// Config is the validated configuration of the phonebook service.
type Config struct {
	Verbose    bool
	Laddr      string
	DBDriver   string
	DBDSN      string
	Migrate    bool
	PageSize   int
	GinLogging bool
}

// BindDatabaseFlags registers the flags shared by all commands that open the database and binds
// them into v. Every flag can also be set in the config file or as an environment variable, e.g.
// DB_DRIVER for --db-driver.
func BindDatabaseFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.PersistentFlags().BoolP(VerboseKey, "v", false, "Whether to enable verbose logging")
	cmd.PersistentFlags().StringP(ConfigKey, "c", "", "Config file to use")
	cmd.PersistentFlags().String(DBDriverKey, database.DriverMySQL, "Database driver (mysql or sqlite)")
	cmd.PersistentFlags().String(DBDSNKey, defaultDSN(), "Database DSN (by default built from the DBUSER, DBPWD and DBHOST env variables)")
	return bind(cmd, v)
}

// BindServerFlags registers the database flags plus the flags of the HTTP server.
func BindServerFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.PersistentFlags().StringP(LaddrKey, "l", ":8080", "Listen address (port can also be set with `PORT` env variable)")
	cmd.PersistentFlags().Bool(MigrateKey, true, "Whether to run database migrations on startup")
	cmd.PersistentFlags().Int(PageSizeKey, directory.DefaultPageSize, "Number of records per page when a request does not ask for a page size")
	cmd.PersistentFlags().Bool(GinLoggingKey, true, "Whether to log every HTTP request")
	return BindDatabaseFlags(cmd, v)
}

func bind(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}

// defaultDSN builds a MySQL DSN from the environment, as the service has always been configured.
func defaultDSN() string {
	if os.Getenv("DBUSER") == "" && os.Getenv("DBHOST") == "" {
		return ""
	}
	return database.MySQLDSN(os.Getenv("DBUSER"), os.Getenv("DBPWD"), os.Getenv("DBHOST"))
}

// Load reads the config file, if one is set, and returns the validated configuration.
func Load(v *viper.Viper) (Config, error) {
	if v.GetString(ConfigKey) != "" {
		v.SetConfigFile(v.GetString(ConfigKey))
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Verbose:    v.GetBool(VerboseKey),
		Laddr:      v.GetString(LaddrKey),
		DBDriver:   v.GetString(DBDriverKey),
		DBDSN:      v.GetString(DBDSNKey),
		Migrate:    v.GetBool(MigrateKey),
		PageSize:   v.GetInt(PageSizeKey),
		GinLogging: v.GetBool(GinLoggingKey),
	}

	if port := os.Getenv("PORT"); port != "" && cfg.Laddr != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("could not parse PORT env variable: %w", err)
		}
		host, _, err := net.SplitHostPort(cfg.Laddr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid listen address: %w", err)
		}
		cfg.Laddr = net.JoinHostPort(host, strconv.Itoa(p))
	}

	switch cfg.DBDriver {
	case database.DriverMySQL, database.DriverSQLite:
	default:
		return Config{}, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, cfg.DBDriver)
	}
	if cfg.DBDSN == "" {
		return Config{}, errMissingDSN
	}
	if v.IsSet(PageSizeKey) && (cfg.PageSize < 1 || cfg.PageSize > directory.MaxPageSize) {
		return Config{}, fmt.Errorf("%w: %d (must be between 1 and %d)", errInvalidPageSize, cfg.PageSize, directory.MaxPageSize)
	}
	return cfg, nil
}
