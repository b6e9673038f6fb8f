package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id              TEXT PRIMARY KEY,
    benchmark           TEXT NOT NULL,
    model               TEXT NOT NULL,
    status              TEXT NOT NULL,
    owner               TEXT NOT NULL DEFAULT '',
    created_at          DATETIME NOT NULL,
    started_at          DATETIME,
    finished_at         DATETIME,
    artifact_dir        TEXT,
    exit_code           INTEGER,
    error               TEXT,
    primary_metric_name TEXT,
    primary_metric      REAL,
    config              TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_owner ON runs (owner);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id              TEXT PRIMARY KEY,
    benchmark           TEXT NOT NULL,
    model               TEXT NOT NULL,
    status              TEXT NOT NULL,
    owner               TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL,
    started_at          TIMESTAMPTZ,
    finished_at         TIMESTAMPTZ,
    artifact_dir        TEXT,
    exit_code           INTEGER,
    error               TEXT,
    primary_metric_name TEXT,
    primary_metric      DOUBLE PRECISION,
    config              JSONB
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_owner ON runs (owner);
`

func schemaForDriver(driver string) (string, error) {
	switch driver {
	case SQLiteDriver:
		return sqliteSchema, nil
	case PostgresDriver:
		return postgresSchema, nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}
