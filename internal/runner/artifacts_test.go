package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbench/openbench/pkg/api"
)

func TestArtifactStoreLayout(t *testing.T) {
	a := NewArtifactStore(t.TempDir())

	dir, err := a.EnsureDir("run-1")
	require.NoError(t, err)
	assert.Equal(t, a.Dir("run-1"), dir)

	require.NoError(t, a.WriteConfig(dir, &api.RunConfig{Benchmark: "mmlu", Model: "m"}))
	require.NoError(t, a.WriteCommand(dir, "bench eval mmlu --model m"))

	command, err := a.ReadCommand("run-1")
	require.NoError(t, err)
	assert.Equal(t, "bench eval mmlu --model m", command)
}

func TestLogTail(t *testing.T) {
	a := NewArtifactStore(t.TempDir())
	dir, err := a.EnsureDir("run-1")
	require.NoError(t, err)

	content := "one\ntwo\nthree\nfour\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stdout.log"), []byte(content), 0o644))

	tail, err := a.LogTail("run-1", "", 2)
	require.NoError(t, err)
	assert.Equal(t, "three\nfour\n", tail)

	// n larger than the file returns everything
	tail, err = a.LogTail("run-1", "stdout.log", 100)
	require.NoError(t, err)
	assert.Equal(t, content, tail)

	// missing file is an error
	_, err = a.LogTail("run-1", "stderr.log", 2)
	assert.Error(t, err)
}

func TestLogTailRejectsPathTraversal(t *testing.T) {
	a := NewArtifactStore(t.TempDir())

	_, err := a.LogTail("run-1", "../other/stdout.log", 10)
	assert.Error(t, err)
	_, err = a.LogTail("run-1", `..\other`, 10)
	assert.Error(t, err)
}

func TestListArtifacts(t *testing.T) {
	a := NewArtifactStore(t.TempDir())
	dir, err := a.EnsureDir("run-1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "stdout.log"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "results.json"), []byte("{}"), 0o644))

	paths, err := a.ListArtifacts("run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"logs/results.json", "stdout.log"}, paths)
}

func TestListArtifactsMissingRun(t *testing.T) {
	a := NewArtifactStore(t.TempDir())
	paths, err := a.ListArtifacts("nope")
	require.NoError(t, err)
	assert.Nil(t, paths)
}

func TestWriteAndReadMeta(t *testing.T) {
	a := NewArtifactStore(t.TempDir())
	dir, err := a.EnsureDir("run-1")
	require.NoError(t, err)

	require.NoError(t, a.WriteMeta(dir, &api.RunMeta{
		ExitCode: 0,
		Status:   api.StatusCompleted,
	}))

	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"completed"`)
}

func TestReadSummaryAbsent(t *testing.T) {
	a := NewArtifactStore(t.TempDir())
	_, err := a.EnsureDir("run-1")
	require.NoError(t, err)

	doc, err := a.ReadSummary("run-1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}
