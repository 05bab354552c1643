package localdb

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
)

// Fixture returns a temporary test database for testing.
func Fixture() (*sqlx.DB, func()) {
	tmpdir, err := os.MkdirTemp("", "raceline-test-db-")
	if err != nil {
		panic(err)
	}
	db, err := New(Config{Source: filepath.Join(tmpdir, "test.db")})
	if err != nil {
		os.RemoveAll(tmpdir)
		panic(err)
	}
	return db, func() {
		db.Close()
		os.RemoveAll(tmpdir)
	}
}
