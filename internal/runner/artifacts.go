package runner

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/openbench/openbench/pkg/api"
)

const (
	configFile  = "config.json"
	commandFile = "command.txt"
	stdoutLog   = "stdout.log"
	stderrLog   = "stderr.log"
	metaFile    = "meta.json"
	summaryFile = "summary.json"

	// DefaultLogTailLines is used when a log tail request gives no line count.
	DefaultLogTailLines = 100
)

// ArtifactStore manages the per-run directories under a single runs root.
// Every run owns exactly one directory; no artifact is ever shared between
// runs.
type ArtifactStore struct {
	root string
}

func NewArtifactStore(root string) *ArtifactStore {
	return &ArtifactStore{root: root}
}

// Dir returns the artifact directory path for a run without creating it.
func (a *ArtifactStore) Dir(runID string) string {
	return filepath.Join(a.root, runID)
}

// EnsureDir creates the run's artifact directory on first use.
func (a *ArtifactStore) EnsureDir(runID string) (string, error) {
	dir := a.Dir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	return dir, nil
}

// WriteConfig serializes the run config to config.json for reproducibility.
func (a *ArtifactStore) WriteConfig(dir string, config *api.RunConfig) error {
	return writeJSON(filepath.Join(dir, configFile), config)
}

// WriteCommand records the shell-quoted command line to command.txt.
func (a *ArtifactStore) WriteCommand(dir string, command string) error {
	return os.WriteFile(filepath.Join(dir, commandFile), []byte(command+"\n"), 0o644)
}

// WriteMeta writes meta.json, the file-based duplicate of the terminal facts.
// It is written exactly once, after the process has truly exited, and its
// status must match what the record store holds for the run.
func (a *ArtifactStore) WriteMeta(dir string, meta *api.RunMeta) error {
	return writeJSON(filepath.Join(dir, metaFile), meta)
}

// OpenLogs creates the stdout and stderr log files for a starting process.
func (a *ArtifactStore) OpenLogs(dir string) (stdout, stderr *os.File, err error) {
	stdout, err = os.Create(filepath.Join(dir, stdoutLog))
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout log: %w", err)
	}
	stderr, err = os.Create(filepath.Join(dir, stderrLog))
	if err != nil {
		stdout.Close()
		return nil, nil, fmt.Errorf("create stderr log: %w", err)
	}
	return stdout, stderr, nil
}

// ReadLogs returns the full captured stdout and stderr contents.
func (a *ArtifactStore) ReadLogs(dir string) (stdout, stderr string) {
	outBytes, _ := os.ReadFile(filepath.Join(dir, stdoutLog))
	errBytes, _ := os.ReadFile(filepath.Join(dir, stderrLog))
	return string(outBytes), string(errBytes)
}

// LogTail returns the last n lines of the named log file. An empty name means
// stdout.log; n <= 0 means DefaultLogTailLines. Log names containing path
// separators are rejected.
func (a *ArtifactStore) LogTail(runID string, logName string, n int) (string, error) {
	if logName == "" {
		logName = stdoutLog
	}
	if strings.ContainsAny(logName, `/\`) || logName == ".." {
		return "", fmt.Errorf("invalid log name %q", logName)
	}
	if n <= 0 {
		n = DefaultLogTailLines
	}

	data, err := os.ReadFile(filepath.Join(a.Dir(runID), logName))
	if err != nil {
		return "", err
	}

	lines := strings.SplitAfter(string(data), "\n")
	if last := len(lines) - 1; last >= 0 && lines[last] == "" {
		lines = lines[:last]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, ""), nil
}

// ReadCommand returns the recorded command string for a run.
func (a *ArtifactStore) ReadCommand(runID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(a.Dir(runID), commandFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ListArtifacts returns every file under the run directory, including files
// in subdirectories the process created, as sorted slash-separated paths
// relative to the run root.
func (a *ArtifactStore) ListArtifacts(runID string) ([]string, error) {
	dir := a.Dir(runID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadSummary returns the parsed summary.json for a run, or nil when the run
// produced none.
func (a *ArtifactStore) ReadSummary(runID string) (*api.RunSummaryDoc, error) {
	data, err := os.ReadFile(filepath.Join(a.Dir(runID), summaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc api.RunSummaryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
