package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbench/openbench/internal/logging"
	"github.com/openbench/openbench/internal/serviceerrors"
	"github.com/openbench/openbench/internal/store"
	"github.com/openbench/openbench/pkg/api"
)

// memStore is an in-memory Store for exercising the engine without a
// database.
type memStore struct {
	mu   sync.Mutex
	seq  int
	runs map[string]*api.Run
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{runs: make(map[string]*api.Run)}
}

func (m *memStore) CreateRun(ctx context.Context, config *api.RunConfig, owner string) (*api.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	run := &api.Run{
		RunID:     fmt.Sprintf("run-%d", m.seq),
		Benchmark: config.Benchmark,
		Model:     config.Model,
		Status:    api.StatusQueued,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
		Config:    config,
	}
	m.runs[run.RunID] = run
	copied := *run
	return &copied, nil
}

func (m *memStore) GetRun(ctx context.Context, id string, owner string) (*api.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, serviceerrors.NewStorageErrorWithCode(404, "run with id '%s' not found", id)
	}
	copied := *run
	return &copied, nil
}

func (m *memStore) ListRuns(ctx context.Context, owner string, limit int) ([]api.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []api.RunSummary
	for _, run := range m.runs {
		items = append(items, api.RunSummary{RunID: run.RunID, Status: run.Status})
	}
	return items, nil
}

func (m *memStore) UpdateRun(ctx context.Context, id string, update *store.RunUpdate) (*api.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, serviceerrors.NewStorageErrorWithCode(404, "run with id '%s' not found", id)
	}
	if update.Status != nil {
		run.Status = *update.Status
	}
	if update.StartedAt != nil {
		run.StartedAt = update.StartedAt
	}
	if update.FinishedAt != nil {
		run.FinishedAt = update.FinishedAt
	}
	if update.ArtifactDir != nil {
		run.ArtifactDir = *update.ArtifactDir
	}
	if update.ExitCode != nil {
		run.ExitCode = update.ExitCode
	}
	if update.Error != nil {
		run.Error = *update.Error
	}
	if update.PrimaryMetricName != nil {
		run.PrimaryMetricName = *update.PrimaryMetricName
	}
	if update.PrimaryMetric != nil {
		run.PrimaryMetric = update.PrimaryMetric
	}
	copied := *run
	return &copied, nil
}

func (m *memStore) Ping(timeout time.Duration) error { return nil }
func (m *memStore) Close() error                     { return nil }

// scriptBuilder runs a fixed shell script regardless of config, standing in
// for the evaluation CLI.
type scriptBuilder struct {
	script string
	env    []string
	err    error
}

func (b *scriptBuilder) Build(config *api.RunConfig) (*Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Command{Args: []string{"/bin/sh", "-c", b.script}, Env: b.env}, nil
}

func testEngine(t *testing.T, builder CommandBuilder, opts ...EngineOption) (*Engine, *memStore) {
	t.Helper()
	s := newMemStore()
	artifacts := NewArtifactStore(t.TempDir())
	logger := logging.FallbackLogger()
	return NewEngine(s, artifacts, builder, logger, opts...), s
}

func testRunConfig() *api.RunConfig {
	return &api.RunConfig{
		SchemaVersion: api.ConfigSchemaVersion,
		Benchmark:     "mmlu",
		Model:         "test-model",
	}
}

func waitTerminal(t *testing.T, e *Engine, s *memStore, runID string) *api.Run {
	t.Helper()
	e.Wait()
	run, err := s.GetRun(context.Background(), runID, "")
	require.NoError(t, err)
	require.True(t, run.Status.Terminal(), "run is not terminal: %s", run.Status)
	return run
}

func TestEngineCompletedRun(t *testing.T) {
	builder := &scriptBuilder{script: `echo 'RESULTS: {"benchmark":"mmlu","model":"test-model","accuracy":0.75,"categories":{"stem":0.7}}'`}
	e, s := testEngine(t, builder)

	run, err := e.Submit(context.Background(), testRunConfig(), "")
	require.NoError(t, err)
	assert.Equal(t, api.StatusQueued, run.Status)

	final := waitTerminal(t, e, s, run.RunID)
	assert.Equal(t, api.StatusCompleted, final.Status)
	require.NotNil(t, final.ExitCode)
	assert.Equal(t, 0, *final.ExitCode)
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.FinishedAt)
	assert.Empty(t, final.Error)
	assert.Equal(t, "accuracy", final.PrimaryMetricName)
	require.NotNil(t, final.PrimaryMetric)
	assert.Equal(t, 0.75, *final.PrimaryMetric)

	// every artifact of a completed run is in place
	paths, err := e.Artifacts().ListArtifacts(run.RunID)
	require.NoError(t, err)
	assert.Contains(t, paths, "config.json")
	assert.Contains(t, paths, "command.txt")
	assert.Contains(t, paths, "stdout.log")
	assert.Contains(t, paths, "stderr.log")
	assert.Contains(t, paths, "meta.json")
	assert.Contains(t, paths, "summary.json")
}

func TestEngineSilentFailure(t *testing.T) {
	// exit 0 with a known failure signature must not count as completed
	builder := &scriptBuilder{script: `echo "AuthenticationError: Incorrect API key provided"; exit 0`}
	e, s := testEngine(t, builder)

	run, err := e.Submit(context.Background(), testRunConfig(), "")
	require.NoError(t, err)

	final := waitTerminal(t, e, s, run.RunID)
	assert.Equal(t, api.StatusFailed, final.Status)
	require.NotNil(t, final.ExitCode)
	assert.Equal(t, 0, *final.ExitCode)
	assert.Contains(t, final.Error, "AuthenticationError")
}

func TestEngineNonZeroExit(t *testing.T) {
	builder := &scriptBuilder{script: `echo "boom" >&2; exit 3`}
	e, s := testEngine(t, builder)

	run, err := e.Submit(context.Background(), testRunConfig(), "")
	require.NoError(t, err)

	final := waitTerminal(t, e, s, run.RunID)
	assert.Equal(t, api.StatusFailed, final.Status)
	require.NotNil(t, final.ExitCode)
	assert.Equal(t, 3, *final.ExitCode)
	assert.Equal(t, "boom", final.Error)
}

func TestEngineMissingConfig(t *testing.T) {
	builder := &scriptBuilder{script: "true"}
	e, s := testEngine(t, builder)

	run, err := e.Submit(context.Background(), &api.RunConfig{}, "")
	require.NoError(t, err)

	final := waitTerminal(t, e, s, run.RunID)
	assert.Equal(t, api.StatusFailed, final.Status)
	assert.Equal(t, "No configuration provided", final.Error)
	assert.Nil(t, final.ExitCode)

	// the run must fail before any artifact directory exists
	_, err = os.Stat(e.Artifacts().Dir(run.RunID))
	assert.True(t, os.IsNotExist(err))
}

func TestEngineBuilderError(t *testing.T) {
	builder := &scriptBuilder{err: fmt.Errorf("no tool available")}
	e, s := testEngine(t, builder)

	run, err := e.Submit(context.Background(), testRunConfig(), "")
	require.NoError(t, err)

	final := waitTerminal(t, e, s, run.RunID)
	assert.Equal(t, api.StatusFailed, final.Status)
	assert.Equal(t, "no tool available", final.Error)
}

func TestEngineCredentialEnvWins(t *testing.T) {
	builder := &scriptBuilder{
		script: `echo "key=$API_KEY"`,
		env:    []string{"API_KEY=from-command"},
	}
	e, s := testEngine(t, builder, WithCredentialEnv(map[string]string{"API_KEY": "from-secrets"}))

	run, err := e.Submit(context.Background(), testRunConfig(), "")
	require.NoError(t, err)
	waitTerminal(t, e, s, run.RunID)

	stdout, _ := e.Artifacts().ReadLogs(e.Artifacts().Dir(run.RunID))
	assert.Contains(t, stdout, "key=from-secrets")
}

func TestEngineCancelRunningProcess(t *testing.T) {
	builder := &scriptBuilder{script: "sleep 30"}
	e, s := testEngine(t, builder, WithGracePeriod(200*time.Millisecond))

	run, err := e.Submit(context.Background(), testRunConfig(), "")
	require.NoError(t, err)

	requireRegistered(t, e, run.RunID)
	assert.True(t, e.Cancel(context.Background(), run.RunID))

	final := waitTerminal(t, e, s, run.RunID)
	assert.Equal(t, api.StatusCanceled, final.Status)
	assert.NotNil(t, final.FinishedAt)

	// meta.json mirrors the canceled status
	data, err := os.ReadFile(filepath.Join(e.Artifacts().Dir(run.RunID), "meta.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"canceled"`)
}

func TestEngineCancelIsIdempotent(t *testing.T) {
	builder := &scriptBuilder{script: "sleep 30"}
	e, s := testEngine(t, builder, WithGracePeriod(200*time.Millisecond))

	run, err := e.Submit(context.Background(), testRunConfig(), "")
	require.NoError(t, err)

	requireRegistered(t, e, run.RunID)
	assert.True(t, e.Cancel(context.Background(), run.RunID))
	// second cancel finds no registered process and is a no-op
	assert.False(t, e.Cancel(context.Background(), run.RunID))

	final := waitTerminal(t, e, s, run.RunID)
	assert.Equal(t, api.StatusCanceled, final.Status)
}

func TestEngineCancelUnknownRun(t *testing.T) {
	builder := &scriptBuilder{script: "true"}
	e, _ := testEngine(t, builder)
	assert.False(t, e.Cancel(context.Background(), "no-such-run"))
}

func TestEngineCancelFinishedRunIsNoop(t *testing.T) {
	builder := &scriptBuilder{script: "true"}
	e, s := testEngine(t, builder)

	run, err := e.Submit(context.Background(), testRunConfig(), "")
	require.NoError(t, err)

	final := waitTerminal(t, e, s, run.RunID)
	assert.Equal(t, api.StatusCompleted, final.Status)
	assert.False(t, e.Cancel(context.Background(), run.RunID))

	// the terminal status is untouched by the late cancel, and meta.json
	// still agrees with the record
	after, err := s.GetRun(context.Background(), run.RunID, "")
	require.NoError(t, err)
	assert.Equal(t, final.Status, after.Status)

	data, err := os.ReadFile(filepath.Join(e.Artifacts().Dir(run.RunID), "meta.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"completed"`)
}

// requireRegistered waits for the run's process to appear in the registry.
func requireRegistered(t *testing.T, e *Engine, runID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := e.registry.Get(runID); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("process for run %s never registered", runID)
}
