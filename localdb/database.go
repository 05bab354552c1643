package localdb

import (
	"fmt"
	"os"
	"path/filepath"

	// Registers the schema migrations with goose.
	_ "github.com/paddock/raceline/localdb/migrations"

	"github.com/jmoiron/sqlx"
	// SQLite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose"
)

// Config defines the embedded database configuration.
type Config struct {
	Source string `yaml:"source"`
}

func (c Config) applyDefaults() Config {
	if c.Source == "" {
		c.Source = "/var/lib/raceline/raceline.db"
	}
	return c
}

var _sqlxOpen = sqlx.Open

// New creates a new locally embedded SQLite database and migrates it to the
// latest schema.
func New(config Config) (*sqlx.DB, error) {
	config = config.applyDefaults()
	if err := ensureDir(filepath.Dir(config.Source)); err != nil {
		return nil, fmt.Errorf("ensure db source present: %s", err)
	}
	db, err := _sqlxOpen("sqlite3", config.Source+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %s", err)
	}
	// SQLite has concurrency issues where queries result in error if more than
	// one connection is accessing a table.
	db.SetMaxOpenConns(1)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect as sqlite3: %s", err)
	}
	if err := goose.Up(db.DB, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("perform db migration: %s", err)
	}
	return db, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	} else if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
