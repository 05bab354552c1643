package migrations

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(up00002, down00002)
}

func up00002(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS ingestion_failure (
			id             integer   NOT NULL PRIMARY KEY AUTOINCREMENT,
			job_type       text      NOT NULL,
			entity_type    text      NOT NULL,
			entity_id      text      NOT NULL,
			error_message  text      NOT NULL,
			error_detail   text      NOT NULL DEFAULT '',
			retry_count    integer   NOT NULL DEFAULT 0,
			max_retries    integer   NOT NULL,
			status         text      NOT NULL,
			next_retry_at  timestamp NOT NULL,
			created_at     timestamp NOT NULL,
			updated_at     timestamp NOT NULL,
			resolved_at    timestamp,
			metadata       text      NOT NULL DEFAULT '{}',
			CHECK (retry_count >= 0 AND retry_count <= max_retries)
		);

		CREATE INDEX IF NOT EXISTS ingestion_failure_retryable
			ON ingestion_failure (status, next_retry_at);
		CREATE INDEX IF NOT EXISTS ingestion_failure_entity
			ON ingestion_failure (job_type, entity_id);
	`)
	return err
}

func down00002(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE ingestion_failure;`)
	return err
}
