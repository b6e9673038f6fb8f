package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/openbench/openbench/internal/logging"
	"github.com/openbench/openbench/internal/serviceerrors"
	"github.com/openbench/openbench/internal/store"
	"github.com/openbench/openbench/pkg/api"
)

func testConfig() map[string]any {
	return map[string]any{
		"driver":        "sqlite",
		"url":           "file::memory:?mode=memory&cache=shared",
		"database_name": "openbench",
	}
}

func intPtr(v int) *int { return &v }

// TestStore walks a run record through its full lifecycle against an
// in-memory sqlite database.
func TestStore(t *testing.T) {
	var logger = logging.FallbackLogger()
	var s store.Store
	var runID string
	ctx := context.Background()

	t.Run("NewStore creates a new store instance", func(t *testing.T) {
		created, err := store.NewStore(testConfig(), logger)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		s = created
	})

	t.Run("NewStore rejects unknown drivers", func(t *testing.T) {
		config := testConfig()
		config["driver"] = "oracle"
		if _, err := store.NewStore(config, logger); err == nil {
			t.Fatalf("Expected an error for an unsupported driver")
		}
	})

	t.Run("CreateRun inserts a queued run", func(t *testing.T) {
		config := &api.RunConfig{
			SchemaVersion: api.ConfigSchemaVersion,
			Benchmark:     "mmlu",
			Model:         "gpt-4o",
			Limit:         intPtr(10),
		}
		run, err := s.CreateRun(ctx, config, "")
		if err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		if run.RunID == "" {
			t.Fatalf("Run ID is empty")
		}
		if run.Status != api.StatusQueued {
			t.Fatalf("Expected status %s, got %s", api.StatusQueued, run.Status)
		}
		runID = run.RunID
	})

	t.Run("GetRun returns the run with its config", func(t *testing.T) {
		run, err := s.GetRun(ctx, runID, "")
		if err != nil {
			t.Fatalf("Failed to get run: %v", err)
		}
		if run.RunID != runID {
			t.Fatalf("Run ID mismatch: %s != %s", run.RunID, runID)
		}
		if run.Config == nil || run.Config.Benchmark != "mmlu" {
			t.Fatalf("Run config not round-tripped: %+v", run.Config)
		}
		if run.Config.Limit == nil || *run.Config.Limit != 10 {
			t.Fatalf("Run config limit not round-tripped: %+v", run.Config.Limit)
		}
		if run.StartedAt != nil || run.FinishedAt != nil || run.ExitCode != nil {
			t.Fatalf("New run carries lifecycle fields it should not have")
		}
	})

	t.Run("GetRun reports 404 for an unknown id", func(t *testing.T) {
		_, err := s.GetRun(ctx, "no-such-run", "")
		se, ok := err.(*serviceerrors.StorageError)
		if !ok || se.Code != 404 {
			t.Fatalf("Expected a 404 storage error, got %v", err)
		}
	})

	t.Run("UpdateRun writes only the supplied fields", func(t *testing.T) {
		status := api.StatusRunning
		started := time.Now().UTC()
		dir := "data/runs/" + runID
		run, err := s.UpdateRun(ctx, runID, &store.RunUpdate{
			Status:      &status,
			StartedAt:   &started,
			ArtifactDir: &dir,
		})
		if err != nil {
			t.Fatalf("Failed to update run: %v", err)
		}
		if run.Status != api.StatusRunning {
			t.Fatalf("Expected status %s, got %s", api.StatusRunning, run.Status)
		}
		if run.StartedAt == nil {
			t.Fatalf("StartedAt was not persisted")
		}
		if run.FinishedAt != nil {
			t.Fatalf("FinishedAt was set by a partial update")
		}
		if run.ArtifactDir != dir {
			t.Fatalf("ArtifactDir mismatch: %s != %s", run.ArtifactDir, dir)
		}
	})

	t.Run("UpdateRun with no fields is a pure read", func(t *testing.T) {
		run, err := s.UpdateRun(ctx, runID, &store.RunUpdate{})
		if err != nil {
			t.Fatalf("Failed to read run through empty update: %v", err)
		}
		if run.Status != api.StatusRunning {
			t.Fatalf("Empty update changed the run: %+v", run)
		}
	})

	t.Run("UpdateRun reports 404 for an unknown id", func(t *testing.T) {
		status := api.StatusFailed
		_, err := s.UpdateRun(ctx, "no-such-run", &store.RunUpdate{Status: &status})
		se, ok := err.(*serviceerrors.StorageError)
		if !ok || se.Code != 404 {
			t.Fatalf("Expected a 404 storage error, got %v", err)
		}
	})

	t.Run("UpdateRun persists a terminal result", func(t *testing.T) {
		status := api.StatusCompleted
		finished := time.Now().UTC()
		metricName := "accuracy"
		metric := 0.82
		run, err := s.UpdateRun(ctx, runID, &store.RunUpdate{
			Status:            &status,
			FinishedAt:        &finished,
			ExitCode:          intPtr(0),
			PrimaryMetricName: &metricName,
			PrimaryMetric:     &metric,
		})
		if err != nil {
			t.Fatalf("Failed to finish run: %v", err)
		}
		if run.Status != api.StatusCompleted || run.ExitCode == nil || *run.ExitCode != 0 {
			t.Fatalf("Terminal fields not persisted: %+v", run)
		}
		if run.PrimaryMetric == nil || *run.PrimaryMetric != 0.82 {
			t.Fatalf("Primary metric not persisted: %+v", run.PrimaryMetric)
		}
	})

	t.Run("ListRuns orders by creation time descending and honours the limit", func(t *testing.T) {
		time.Sleep(10 * time.Millisecond)
		newer, err := s.CreateRun(ctx, &api.RunConfig{
			SchemaVersion: api.ConfigSchemaVersion,
			Benchmark:     "gsm8k",
			Model:         "gpt-4o",
		}, "")
		if err != nil {
			t.Fatalf("Failed to create second run: %v", err)
		}

		items, err := s.ListRuns(ctx, "", 1)
		if err != nil {
			t.Fatalf("Failed to list runs: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("Expected 1 run, got %d", len(items))
		}
		if items[0].RunID != newer.RunID {
			t.Fatalf("Expected newest run first, got %s", items[0].RunID)
		}
	})

	t.Run("Owner scoping hides other owners but not legacy rows", func(t *testing.T) {
		owned, err := s.CreateRun(ctx, &api.RunConfig{
			SchemaVersion: api.ConfigSchemaVersion,
			Benchmark:     "arc",
			Model:         "claude-sonnet",
		}, "alice")
		if err != nil {
			t.Fatalf("Failed to create owned run: %v", err)
		}

		if _, err := s.GetRun(ctx, owned.RunID, "alice"); err != nil {
			t.Fatalf("Owner cannot see own run: %v", err)
		}

		_, err = s.GetRun(ctx, owned.RunID, "bob")
		se, ok := err.(*serviceerrors.StorageError)
		if !ok || se.Code != 404 {
			t.Fatalf("Expected a 404 for a foreign owner, got %v", err)
		}

		// rows with no owner predate owner scoping and stay visible to all
		if _, err := s.GetRun(ctx, runID, "bob"); err != nil {
			t.Fatalf("Legacy ownerless run hidden from scoped owner: %v", err)
		}

		items, err := s.ListRuns(ctx, "bob", 50)
		if err != nil {
			t.Fatalf("Failed to list runs for bob: %v", err)
		}
		for _, item := range items {
			if item.RunID == owned.RunID {
				t.Fatalf("Foreign owner's run leaked into listing")
			}
		}
	})

	t.Run("Close shuts the pool down", func(t *testing.T) {
		if err := s.Close(); err != nil {
			t.Fatalf("Failed to close store: %v", err)
		}
	})
}
