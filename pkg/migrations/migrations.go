package migrations

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	devenv "yamisign/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects the sql backend. Driver is "sqlite" (the default) for a
// local file or ":memory:", or "libsql" for a remote database at Url.
type Config struct {
	Driver    string `json:"driver" yaml:"driver"`
	File      string `json:"file" yaml:"file"`
	Url       string `json:"url" yaml:"url"`
	AuthToken string `json:"auth_token" yaml:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens the configured database without applying any schema.
func (c Config) OpenDB() (*sql.DB, error) {
	switch c.Driver {
	case "", "sqlite":
		if c.File == "" {
			return nil, wrapOpenDB(fmt.Errorf("a path was not specified"))
		}
		path, err := devenv.ResolvePath(c.File)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return OpenDB(path)
	case "libsql":
		return openLibsql(c.Url, c.AuthToken)
	default:
		return nil, wrapOpenDB(fmt.Errorf("unsupported sql driver '%s'", c.Driver))
	}
}

func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	return db, nil
}

func openLibsql(rawUrl, authToken string) (*sql.DB, error) {
	if rawUrl == "" {
		return nil, wrapOpenDB(fmt.Errorf("a libsql url was not specified"))
	}
	dsn, err := url.Parse(rawUrl)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	if authToken != "" {
		query := dsn.Query()
		query.Set("authToken", authToken)
		dsn.RawQuery = query.Encode()
	}

	db, err := sql.Open("libsql", dsn.String())
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

func wrapMigrate(err error) error {
	return fmt.Errorf("migrate db: %w", err)
}

// Migrate applies an idempotent schema (CREATE ... IF NOT EXISTS statements).
func Migrate(db *sql.DB, schema string) error {
	_, err := db.Exec(schema)
	if err != nil {
		return wrapMigrate(err)
	}
	return nil
}

func OpenAndMigrateDB(config Config, schema string) (*sql.DB, error) {
	db, err := config.OpenDB()
	if err != nil {
		return nil, err
	}
	err = Migrate(db, schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
