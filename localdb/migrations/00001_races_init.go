package migrations

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(up00001, down00001)
}

func up00001(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS race (
			id          text      NOT NULL PRIMARY KEY,
			race_type   text      NOT NULL,
			track       text      NOT NULL,
			track_name  text      NOT NULL DEFAULT '',
			race_no     integer   NOT NULL,
			race_date   text      NOT NULL,
			start_time  timestamp NOT NULL,
			distance    integer   NOT NULL DEFAULT 0,
			grade       text      NOT NULL DEFAULT '',
			status      text      NOT NULL DEFAULT 'scheduled',
			updated_at  timestamp NOT NULL
		);

		CREATE INDEX IF NOT EXISTS race_start_time ON race (start_time);
		CREATE INDEX IF NOT EXISTS race_date_type ON race (race_date, race_type);

		CREATE TABLE IF NOT EXISTS entry (
			race_id     text      NOT NULL,
			entry_no    integer   NOT NULL,
			name        text      NOT NULL,
			rider       text      NOT NULL DEFAULT '',
			trainer     text      NOT NULL DEFAULT '',
			weight      text      NOT NULL DEFAULT '0',
			scratched   boolean   NOT NULL DEFAULT 0,
			updated_at  timestamp NOT NULL,
			PRIMARY KEY(race_id, entry_no)
		);

		CREATE TABLE IF NOT EXISTS result (
			race_id      text      NOT NULL,
			entry_no     integer   NOT NULL,
			rank         integer   NOT NULL,
			finish_time  text      NOT NULL DEFAULT '',
			win_payout   text      NOT NULL DEFAULT '0',
			place_payout text      NOT NULL DEFAULT '0',
			updated_at   timestamp NOT NULL,
			PRIMARY KEY(race_id, entry_no)
		);

		CREATE TABLE IF NOT EXISTS odds (
			time      timestamp NOT NULL,
			race_id   text      NOT NULL,
			entry_no  integer   NOT NULL,
			win       text      NOT NULL,
			place     text      NOT NULL,
			PRIMARY KEY(time, race_id, entry_no)
		);

		CREATE INDEX IF NOT EXISTS odds_race ON odds (race_id, time);
	`)
	return err
}

func down00001(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP TABLE odds;
		DROP TABLE result;
		DROP TABLE entry;
		DROP TABLE race;
	`)
	return err
}
