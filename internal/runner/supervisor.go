package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/openbench/openbench/internal/metrics"
	"github.com/openbench/openbench/internal/store"
	"github.com/openbench/openbench/pkg/api"
)

// DefaultGracePeriod is how long a canceled process gets to exit after
// SIGTERM before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Engine is the run execution engine. Submit launches one supervising
// goroutine per run; the goroutine owns every filesystem artifact of its run
// and is the only writer of RUNNING and terminal statuses. The registry and
// canceled-set are the only state shared with concurrent cancellers.
type Engine struct {
	store      store.Store
	artifacts  *ArtifactStore
	builder    CommandBuilder
	registry   *Registry
	classifier *Classifier
	logger     *slog.Logger

	// credentialEnv entries are appended to the subprocess environment after
	// the host environment and the command's own entries, so they win on key
	// collision.
	credentialEnv map[string]string
	grace         time.Duration

	wg sync.WaitGroup
}

type EngineOption func(*Engine)

// WithCredentialEnv injects caller-supplied credential variables (API keys)
// into every run subprocess environment.
func WithCredentialEnv(env map[string]string) EngineOption {
	return func(e *Engine) {
		e.credentialEnv = env
	}
}

// WithClassifier replaces the default failure classifier.
func WithClassifier(c *Classifier) EngineOption {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithGracePeriod overrides the SIGTERM-to-SIGKILL grace period.
func WithGracePeriod(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.grace = d
	}
}

// NewEngine creates a run execution engine.
func NewEngine(s store.Store, artifacts *ArtifactStore, builder CommandBuilder, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      s,
		artifacts:  artifacts,
		builder:    builder,
		registry:   NewRegistry(),
		classifier: NewClassifier(),
		logger:     logger,
		grace:      DefaultGracePeriod,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit creates a QUEUED run record and launches its supervisor goroutine.
// Admission is unconditional; no run queues behind another. Execution errors
// never propagate to the caller, they become terminal run states.
func (e *Engine) Submit(ctx context.Context, config *api.RunConfig, owner string) (*api.Run, error) {
	run, err := e.store.CreateRun(ctx, config, owner)
	if err != nil {
		return nil, err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.execute(run)
	}()

	return run, nil
}

// Get returns a run by id, scoped to the owner when one is given.
func (e *Engine) Get(ctx context.Context, runID string, owner string) (*api.Run, error) {
	return e.store.GetRun(ctx, runID, owner)
}

// List returns at most limit run summaries, newest first.
func (e *Engine) List(ctx context.Context, owner string, limit int) ([]api.RunSummary, error) {
	return e.store.ListRuns(ctx, owner, limit)
}

// Artifacts exposes the engine's artifact store for read accessors.
func (e *Engine) Artifacts() *ArtifactStore {
	return e.artifacts
}

// Wait blocks until every in-flight supervisor goroutine has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// execute drives one run through NOT_STARTED -> RUNNING -> terminal.
func (e *Engine) execute(run *api.Run) {
	logger := e.logger.With("run_id", run.RunID)

	if run.Config == nil || run.Config.Benchmark == "" || run.Config.Model == "" {
		// fail before any artifact directory exists
		e.finishFailed(run.RunID, "No configuration provided")
		return
	}

	dir, err := e.artifacts.EnsureDir(run.RunID)
	if err != nil {
		e.finishFailed(run.RunID, err.Error())
		return
	}
	if err := e.artifacts.WriteConfig(dir, run.Config); err != nil {
		e.finishFailed(run.RunID, err.Error())
		return
	}

	command, err := e.builder.Build(run.Config)
	if err != nil {
		e.finishFailed(run.RunID, err.Error())
		return
	}
	if err := e.artifacts.WriteCommand(dir, CommandString(command.Args)); err != nil {
		e.finishFailed(run.RunID, err.Error())
		return
	}

	started := time.Now().UTC()
	running := api.StatusRunning
	if _, err := e.store.UpdateRun(context.Background(), run.RunID, &store.RunUpdate{
		Status:      &running,
		StartedAt:   &started,
		ArtifactDir: &dir,
	}); err != nil {
		e.finishFailed(run.RunID, err.Error())
		return
	}

	stdout, stderr, err := e.artifacts.OpenLogs(dir)
	if err != nil {
		e.finishFailed(run.RunID, err.Error())
		return
	}

	cmd := exec.Command(command.Args[0], command.Args[1:]...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = e.processEnv(command.Env)

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		e.finishFailed(run.RunID, err.Error())
		return
	}

	logger.Info("Run process started", "pid", cmd.Process.Pid, "artifact_dir", dir)
	metrics.RunsStarted.Inc()
	handle := e.registry.Register(run.RunID, cmd)

	// the only long-blocking step; it blocks this goroutine alone
	waitErr := cmd.Wait()
	handle.markDone()
	stdout.Close()
	stderr.Close()
	e.registry.Deregister(run.RunID)

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	// A canceled marker set at any point up to here wins over whatever the
	// process did. The cancellation path has already persisted CANCELED;
	// only meta.json remains to be written.
	if e.registry.ConsumeCanceled(run.RunID) {
		logger.Info("Run canceled; recording meta", "exit_code", exitCode)
		if err := e.artifacts.WriteMeta(dir, &api.RunMeta{
			ExitCode:   exitCode,
			FinishedAt: time.Now().UTC(),
			Status:     api.StatusCanceled,
		}); err != nil {
			logger.Error("Failed to write meta.json for canceled run", "error", err)
		}
		return
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// wait itself failed, not the process
		e.finishFailed(run.RunID, waitErr.Error())
		return
	}

	stdoutContent, stderrContent := e.artifacts.ReadLogs(dir)
	status, errMsg := e.classifier.Classify(exitCode, stdoutContent, stderrContent)

	finished := time.Now().UTC()
	if err := e.artifacts.WriteMeta(dir, &api.RunMeta{
		ExitCode:   exitCode,
		FinishedAt: finished,
		Status:     status,
	}); err != nil {
		logger.Error("Failed to write meta.json", "error", err)
	}

	update := &store.RunUpdate{
		Status:     &status,
		FinishedAt: &finished,
		ExitCode:   &exitCode,
	}
	if errMsg != "" {
		update.Error = &errMsg
	}

	if status == api.StatusCompleted {
		// best-effort: a summary failure never fails the run
		doc, err := ParseAndWriteSummary(dir)
		if err != nil {
			logger.Warn("Summary parsing failed", "error", err)
		} else if doc.PrimaryMetric != nil {
			update.PrimaryMetricName = &doc.PrimaryMetric.Name
			update.PrimaryMetric = &doc.PrimaryMetric.Value
		}
	}

	if _, err := e.store.UpdateRun(context.Background(), run.RunID, update); err != nil {
		logger.Error("Failed to persist terminal status", "status", status, "error", err)
		return
	}
	metrics.RunsFinished.WithLabelValues(string(status)).Inc()
	logger.Info("Run finished", "status", status, "exit_code", exitCode)
}

// Cancel attempts to stop an in-flight process. It reports false when no
// process is registered for the run id, which is a normal outcome and not a
// fault: the run is unknown, already terminal, or already canceled.
func (e *Engine) Cancel(ctx context.Context, runID string) bool {
	// Mark before sending any signal. The supervisor checks the marker only
	// after its wait resolves, so this ordering closes the race where the
	// process exits between our signal and its completion handling. The mark
	// succeeds only while the process is still registered; a run that finished
	// naturally in the meantime keeps its own terminal status.
	handle, ok := e.registry.MarkCanceled(runID)
	if !ok {
		metrics.CancelRequests.WithLabelValues("noop").Inc()
		return false
	}

	if err := handle.Cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// On some platforms we may lack permission to signal the process.
		// The run is still canceled; the process finishes unobserved.
		e.logger.Warn("Failed to signal run process", "run_id", runID, "error", err)
	} else {
		select {
		case <-handle.Done():
		case <-time.After(e.grace):
			if err := handle.Cmd.Process.Kill(); err != nil {
				e.logger.Warn("Failed to kill run process", "run_id", runID, "error", err)
			}
		}
	}

	e.registry.Deregister(runID)

	now := time.Now().UTC()
	canceled := api.StatusCanceled
	if _, err := e.store.UpdateRun(ctx, runID, &store.RunUpdate{
		Status:     &canceled,
		FinishedAt: &now,
	}); err != nil {
		e.logger.Error("Failed to persist canceled status", "run_id", runID, "error", err)
	}

	metrics.CancelRequests.WithLabelValues("canceled").Inc()
	metrics.RunsFinished.WithLabelValues(string(api.StatusCanceled)).Inc()
	e.logger.Info("Run canceled", "run_id", runID)
	return true
}

// finishFailed persists FAILED with the given diagnostic. Used for every
// exception path around process creation and waiting.
func (e *Engine) finishFailed(runID string, errMsg string) {
	e.registry.Deregister(runID)

	now := time.Now().UTC()
	failed := api.StatusFailed
	if _, err := e.store.UpdateRun(context.Background(), runID, &store.RunUpdate{
		Status:     &failed,
		FinishedAt: &now,
		Error:      &errMsg,
	}); err != nil {
		e.logger.Error("Failed to persist failed status", "run_id", runID, "error", err)
		return
	}
	metrics.RunsFinished.WithLabelValues(string(api.StatusFailed)).Inc()
	e.logger.Warn("Run failed", "run_id", runID, "error", errMsg)
}

// processEnv merges the host environment, the command's own entries, and the
// credential variables; later entries win on collision.
func (e *Engine) processEnv(commandEnv []string) []string {
	env := append(os.Environ(), commandEnv...)
	for k, v := range e.credentialEnv {
		env = append(env, k+"="+v)
	}
	return env
}
