package api

import "time"

// ------------------------------------------------------------------------------------------------
// General naming conventions:
// ------------------------------------------------------------------------------------------------
// - ...Config - represents an object specified by the user when creating a resource.
// - ...Resource - represents an object stored in the database. This is the REST resource.
// - ...Summary - represents the trimmed-down form of a resource used in list views.
// ------------------------------------------------------------------------------------------------

// RunStatus represents the run lifecycle state enum
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCanceled  RunStatus = "canceled"
)

// Terminal reports whether the status is a terminal one. A run in a terminal
// status never transitions again.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// ConfigSchemaVersion is stamped into every RunConfig for forward compatibility
// of archived config.json artifacts.
const ConfigSchemaVersion = 1

// RunConfig is the immutable configuration a run was launched with. Benchmark
// and model are required; every other field contributes a CLI flag only when
// present.
type RunConfig struct {
	SchemaVersion  int      `json:"schema_version"`
	Benchmark      string   `json:"benchmark" validate:"required"`
	Model          string   `json:"model" validate:"required"`
	Limit          *int     `json:"limit,omitempty" validate:"omitempty,gt=0"`
	Temperature    *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP           *float64 `json:"top_p,omitempty" validate:"omitempty,gt=0,lte=1"`
	MaxTokens      *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Timeout        *int     `json:"timeout,omitempty" validate:"omitempty,gt=0"`
	Epochs         *int     `json:"epochs,omitempty" validate:"omitempty,gt=0"`
	MaxConnections *int     `json:"max_connections,omitempty" validate:"omitempty,gt=0"`
}

// RunCreate is the request body for submitting a run.
type RunCreate struct {
	Benchmark      string   `json:"benchmark" validate:"required"`
	Model          string   `json:"model" validate:"required"`
	Limit          *int     `json:"limit,omitempty" validate:"omitempty,gt=0"`
	Temperature    *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP           *float64 `json:"top_p,omitempty" validate:"omitempty,gt=0,lte=1"`
	MaxTokens      *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Timeout        *int     `json:"timeout,omitempty" validate:"omitempty,gt=0"`
	Epochs         *int     `json:"epochs,omitempty" validate:"omitempty,gt=0"`
	MaxConnections *int     `json:"max_connections,omitempty" validate:"omitempty,gt=0"`
}

// Config converts the request into the immutable config stored with the run.
func (rc *RunCreate) Config() *RunConfig {
	return &RunConfig{
		SchemaVersion:  ConfigSchemaVersion,
		Benchmark:      rc.Benchmark,
		Model:          rc.Model,
		Limit:          rc.Limit,
		Temperature:    rc.Temperature,
		TopP:           rc.TopP,
		MaxTokens:      rc.MaxTokens,
		Timeout:        rc.Timeout,
		Epochs:         rc.Epochs,
		MaxConnections: rc.MaxConnections,
	}
}

// Run is a single execution attempt of a benchmark against a model, together
// with its lifecycle record. Benchmark and Model are denormalized from the
// config for cheap list queries.
type Run struct {
	RunID             string     `json:"run_id"`
	Benchmark         string     `json:"benchmark"`
	Model             string     `json:"model"`
	Status            RunStatus  `json:"status"`
	Owner             string     `json:"owner,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	ArtifactDir       string     `json:"artifact_dir,omitempty"`
	ExitCode          *int       `json:"exit_code,omitempty"`
	Error             string     `json:"error,omitempty"`
	PrimaryMetricName string     `json:"primary_metric_name,omitempty"`
	PrimaryMetric     *float64   `json:"primary_metric,omitempty"`
	Config            *RunConfig `json:"config,omitempty"`
}

// RunSummary is the list-view projection of a run.
type RunSummary struct {
	RunID             string     `json:"run_id"`
	Benchmark         string     `json:"benchmark"`
	Model             string     `json:"model"`
	Status            RunStatus  `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	PrimaryMetricName string     `json:"primary_metric_name,omitempty"`
	PrimaryMetric     *float64   `json:"primary_metric,omitempty"`
}

// RunMeta is the file-based duplicate of the terminal facts, written to
// meta.json in the artifact directory once the process has truly exited. Its
// Status must match the final value persisted to the record store.
type RunMeta struct {
	ExitCode   int       `json:"exit_code"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`
}

// PrimaryMetric is the single headline score of a completed run.
type PrimaryMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// RunSummaryDoc is the parsed contents of summary.json.
type RunSummaryDoc struct {
	PrimaryMetric *PrimaryMetric     `json:"primary_metric,omitempty"`
	Categories    map[string]float64 `json:"categories,omitempty"`
}
