package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"

	// import the postgres driver - "pgx"
	_ "github.com/jackc/pgx/v5/stdlib"

	// import the sqlite driver - "sqlite"
	_ "modernc.org/sqlite"

	"github.com/openbench/openbench/internal/serviceerrors"
	"github.com/openbench/openbench/pkg/api"
)

const (
	// These are the only drivers currently supported
	SQLiteDriver   = "sqlite"
	PostgresDriver = "pgx"
)

// SQLDatabaseConfig is the decoded form of the database section of the
// service configuration.
type SQLDatabaseConfig struct {
	Driver          string         `mapstructure:"driver"`
	URL             string         `mapstructure:"url"`
	ConnMaxLifetime *time.Duration `mapstructure:"conn_max_lifetime,omitempty"`
	MaxIdleConns    *int           `mapstructure:"max_idle_conns,omitempty"`
	MaxOpenConns    *int           `mapstructure:"max_open_conns,omitempty"`
	DatabaseName    string         `mapstructure:"database_name,omitempty"`
}

// SQLStore implements Store on database/sql with either the sqlite or the
// pgx driver. The pool is instrumented with otelsql so queries show up as
// spans.
type SQLStore struct {
	sqlConfig *SQLDatabaseConfig
	logger    *slog.Logger
	pool      *sql.DB
}

var _ Store = (*SQLStore)(nil)

// NewStore creates a new run record store from the raw database config map.
func NewStore(config map[string]any, logger *slog.Logger) (Store, error) {
	var sqlConfig SQLDatabaseConfig
	err := mapstructure.Decode(config, &sqlConfig)
	if err != nil {
		return nil, err
	}

	// check that the driver is supported
	switch sqlConfig.Driver {
	case SQLiteDriver, PostgresDriver:
	default:
		return nil, getUnsupportedDriverError(sqlConfig.Driver)
	}

	logger.Info("Creating run store", "driver", sqlConfig.Driver, "url", sqlConfig.URL)

	pool, err := otelsql.Open(sqlConfig.Driver, sqlConfig.URL,
		otelsql.WithDBSystem(sqlConfig.Driver),
		otelsql.WithDBName(sqlConfig.DatabaseName),
	)
	if err != nil {
		return nil, err
	}

	if sqlConfig.ConnMaxLifetime != nil {
		pool.SetConnMaxLifetime(*sqlConfig.ConnMaxLifetime)
	}
	if sqlConfig.MaxIdleConns != nil {
		pool.SetMaxIdleConns(*sqlConfig.MaxIdleConns)
	}
	if sqlConfig.MaxOpenConns != nil {
		pool.SetMaxOpenConns(*sqlConfig.MaxOpenConns)
	}

	s := &SQLStore{
		sqlConfig: &sqlConfig,
		logger:    logger,
		pool:      pool,
	}

	// ping the database to verify the DSN provided by the user is valid and
	// the server is accessible
	if err := s.Ping(1 * time.Second); err != nil {
		return nil, err
	}

	if err := s.ensureSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLStore) Ping(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.pool.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.pool.Close()
}

func (s *SQLStore) ensureSchema() error {
	schema, err := schemaForDriver(s.sqlConfig.Driver)
	if err != nil {
		return err
	}
	if _, err := s.pool.ExecContext(context.Background(), schema); err != nil {
		return err
	}
	return nil
}

const runColumns = `run_id, benchmark, model, status, owner, created_at, started_at,
	finished_at, artifact_dir, exit_code, error, primary_metric_name, primary_metric, config`

func (s *SQLStore) CreateRun(ctx context.Context, config *api.RunConfig, owner string) (*api.Run, error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to marshal run config")
	}

	run := &api.Run{
		RunID:     uuid.New().String(),
		Benchmark: config.Benchmark,
		Model:     config.Model,
		Status:    api.StatusQueued,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
		Config:    config,
	}

	query := rebind(s.sqlConfig.Driver,
		`INSERT INTO runs (run_id, benchmark, model, status, owner, created_at, config)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.pool.ExecContext(ctx, query,
		run.RunID, run.Benchmark, run.Model, string(run.Status), run.Owner,
		run.CreatedAt, string(configJSON))
	if err != nil {
		s.logger.Error("Failed to insert run", "error", err, "run_id", run.RunID)
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to create run")
	}

	s.logger.Info("Created run", "run_id", run.RunID, "benchmark", run.Benchmark, "model", run.Model)
	return run, nil
}

func (s *SQLStore) GetRun(ctx context.Context, id string, owner string) (*api.Run, error) {
	where := "run_id = ?"
	args := []any{id}
	if clause, ownerArgs := ownerClause(owner); clause != "" {
		where += " AND " + clause
		args = append(args, ownerArgs...)
	}

	query := rebind(s.sqlConfig.Driver,
		"SELECT "+runColumns+" FROM runs WHERE "+where)
	run, err := scanRun(s.pool.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, serviceerrors.NewStorageErrorWithCode(404, "run with id '%s' not found", id)
		}
		s.logger.Error("Failed to get run", "error", err, "run_id", id)
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to get run")
	}
	return run, nil
}

func (s *SQLStore) ListRuns(ctx context.Context, owner string, limit int) ([]api.RunSummary, error) {
	where := ""
	var args []any
	if clause, ownerArgs := ownerClause(owner); clause != "" {
		where = " WHERE " + clause
		args = append(args, ownerArgs...)
	}
	args = append(args, limit)

	query := rebind(s.sqlConfig.Driver,
		`SELECT run_id, benchmark, model, status, created_at, finished_at,
			primary_metric_name, primary_metric
		 FROM runs`+where+` ORDER BY created_at DESC LIMIT ?`)

	rows, err := s.pool.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to list runs", "error", err)
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to list runs")
	}
	defer rows.Close()

	var items []api.RunSummary
	for rows.Next() {
		var (
			summary    api.RunSummary
			status     string
			finishedAt sql.NullTime
			metricName sql.NullString
			metric     sql.NullFloat64
		)
		if err := rows.Scan(&summary.RunID, &summary.Benchmark, &summary.Model, &status,
			&summary.CreatedAt, &finishedAt, &metricName, &metric); err != nil {
			return nil, serviceerrors.NewStorageErrorWithError(err, "failed to scan run row")
		}
		summary.Status = api.RunStatus(status)
		if finishedAt.Valid {
			t := finishedAt.Time
			summary.FinishedAt = &t
		}
		summary.PrimaryMetricName = metricName.String
		if metric.Valid {
			v := metric.Float64
			summary.PrimaryMetric = &v
		}
		items = append(items, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, serviceerrors.NewStorageErrorWithError(err, "error iterating run rows")
	}
	return items, nil
}

func (s *SQLStore) UpdateRun(ctx context.Context, id string, update *RunUpdate) (*api.Run, error) {
	if update == nil || update.IsEmpty() {
		// an empty update is a pure read
		return s.GetRun(ctx, id, "")
	}

	var setParts []string
	var args []any
	addSet := func(column string, value any) {
		setParts = append(setParts, column+" = ?")
		args = append(args, value)
	}

	if update.Status != nil {
		addSet("status", string(*update.Status))
	}
	if update.StartedAt != nil {
		addSet("started_at", *update.StartedAt)
	}
	if update.FinishedAt != nil {
		addSet("finished_at", *update.FinishedAt)
	}
	if update.ArtifactDir != nil {
		addSet("artifact_dir", *update.ArtifactDir)
	}
	if update.ExitCode != nil {
		addSet("exit_code", *update.ExitCode)
	}
	if update.Error != nil {
		addSet("error", *update.Error)
	}
	if update.PrimaryMetricName != nil {
		addSet("primary_metric_name", *update.PrimaryMetricName)
	}
	if update.PrimaryMetric != nil {
		addSet("primary_metric", *update.PrimaryMetric)
	}
	args = append(args, id)

	query := rebind(s.sqlConfig.Driver,
		"UPDATE runs SET "+strings.Join(setParts, ", ")+" WHERE run_id = ?")
	result, err := s.pool.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to update run", "error", err, "run_id", id)
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to update run")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, serviceerrors.NewStorageErrorWithError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return nil, serviceerrors.NewStorageErrorWithCode(404, "run with id '%s' not found", id)
	}

	return s.GetRun(ctx, id, "")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*api.Run, error) {
	var (
		run         api.Run
		status      string
		startedAt   sql.NullTime
		finishedAt  sql.NullTime
		artifactDir sql.NullString
		exitCode    sql.NullInt64
		errMsg      sql.NullString
		metricName  sql.NullString
		metric      sql.NullFloat64
		configJSON  sql.NullString
	)

	err := row.Scan(&run.RunID, &run.Benchmark, &run.Model, &status, &run.Owner,
		&run.CreatedAt, &startedAt, &finishedAt, &artifactDir, &exitCode,
		&errMsg, &metricName, &metric, &configJSON)
	if err != nil {
		return nil, err
	}

	run.Status = api.RunStatus(status)
	if startedAt.Valid {
		t := startedAt.Time
		run.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	run.ArtifactDir = artifactDir.String
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}
	run.Error = errMsg.String
	run.PrimaryMetricName = metricName.String
	if metric.Valid {
		v := metric.Float64
		run.PrimaryMetric = &v
	}
	if configJSON.Valid && configJSON.String != "" {
		var config api.RunConfig
		if err := json.Unmarshal([]byte(configJSON.String), &config); err != nil {
			return nil, err
		}
		run.Config = &config
	}
	return &run, nil
}
