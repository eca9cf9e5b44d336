package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported values for the database driver setting.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// mysqlDuplicateEntry is the MySQL server error number for a violated unique key.
const mysqlDuplicateEntry = 1062

// SQLiteLower is a SQL function available on SQLite connections that lower-cases text like MySQL's
// LOWER does. SQLite's built-in LOWER folds ASCII letters only.
const SQLiteLower = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(SQLiteLower, 1, unicodeLower)
}

func unicodeLower(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// ErrUnsupportedDriver is returned for any driver other than DriverMySQL and DriverSQLite.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// MySQLDSN builds the data source name for the phonebook schema on the given MySQL host.
func MySQLDSN(user string, password string, host string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = "phonebook"
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// CreateDatabase opens a connection pool for the given driver and data source name.
//
// MySQL connections always parse DATETIME columns into time.Time. SQLite pools are limited to a
// single connection, which keeps ":memory:" databases alive across calls and serializes writes.
func CreateDatabase(driver string, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("create mysql connector: %w", err)
		}
		return sql.OpenDB(connector), nil
	case DriverSQLite:
		sqlDB, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		return sqlDB, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// IsUniqueViolation reports whether err was caused by a write that violated a unique index.
func IsUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
