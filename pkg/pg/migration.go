package pg

import (
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/bancoapp/banco-ledger/pkg/logger"
)

// Migrate applies every pending goose migration found in dir.
func Migrate(cfg Config, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal(err)
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = goose.Up(db, dir); err != nil {
		logger.Fatal(err)
	}

	return nil
}
