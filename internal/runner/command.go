package runner

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/openbench/openbench/pkg/api"
)

const (
	// mockDefaultSamples is the sample count assumed in mock mode when the
	// config carries no limit.
	mockDefaultSamples = 5
	// mockMaxSeconds caps how long a simulated run works.
	mockMaxSeconds = 10
	// mockSeed fixes the simulator RNG so repeated runs of the same config
	// produce identical results.
	mockSeed = 42

	simulatorBinary = "benchsim"
)

// Command is a fully resolved process invocation: the argument vector and any
// extra environment entries the process needs. Arguments are always passed as
// a discrete vector; they are never joined into a shell string for execution.
type Command struct {
	Args []string
	Env  []string
}

// CommandBuilder turns a run configuration into an executable command.
type CommandBuilder interface {
	Build(config *api.RunConfig) (*Command, error)
}

// ToolCommandBuilder builds commands for the external evaluation CLI,
// falling back to the bundled simulator when the CLI is not installed.
type ToolCommandBuilder struct {
	// Tool is the evaluation CLI name probed for on PATH.
	Tool string
	// SimulatorPath overrides simulator resolution; empty means look next to
	// the current executable, then on PATH.
	SimulatorPath string
	// ForceMock skips the PATH probe and always builds a simulator command.
	ForceMock bool
}

var _ CommandBuilder = (*ToolCommandBuilder)(nil)

// Build selects real or mock mode. Callers get the same contract either way.
func (b *ToolCommandBuilder) Build(config *api.RunConfig) (*Command, error) {
	if !b.ForceMock && b.toolAvailable() {
		return b.buildReal(config), nil
	}
	return b.buildMock(config)
}

func (b *ToolCommandBuilder) toolAvailable() bool {
	_, err := exec.LookPath(b.Tool)
	return err == nil
}

// buildReal emits `<tool> eval <benchmark> --model <model>` followed by one
// flag pair per present optional field, in a fixed order.
func (b *ToolCommandBuilder) buildReal(config *api.RunConfig) *Command {
	args := []string{b.Tool, "eval", config.Benchmark, "--model", config.Model}

	if config.Limit != nil {
		args = append(args, "--limit", strconv.Itoa(*config.Limit))
	}
	if config.Temperature != nil {
		args = append(args, "--temperature", formatFloat(*config.Temperature))
	}
	if config.TopP != nil {
		args = append(args, "--top-p", formatFloat(*config.TopP))
	}
	if config.MaxTokens != nil {
		args = append(args, "--max-tokens", strconv.Itoa(*config.MaxTokens))
	}
	if config.Timeout != nil {
		args = append(args, "--timeout", strconv.Itoa(*config.Timeout))
	}
	if config.Epochs != nil {
		args = append(args, "--epochs", strconv.Itoa(*config.Epochs))
	}
	if config.MaxConnections != nil {
		args = append(args, "--max-connections", strconv.Itoa(*config.MaxConnections))
	}

	return &Command{Args: args}
}

// buildMock builds a simulator invocation. Run parameters cross into the
// simulator only through environment variables, never through generated
// program text.
func (b *ToolCommandBuilder) buildMock(config *api.RunConfig) (*Command, error) {
	simulator, err := b.resolveSimulator()
	if err != nil {
		return nil, err
	}

	limit := mockDefaultSamples
	if config.Limit != nil {
		limit = *config.Limit
	}
	seconds := min(limit, mockMaxSeconds)

	return &Command{
		Args: []string{simulator},
		Env: []string{
			"BENCHSIM_BENCHMARK=" + config.Benchmark,
			"BENCHSIM_MODEL=" + config.Model,
			"BENCHSIM_LIMIT=" + strconv.Itoa(limit),
			"BENCHSIM_SECONDS=" + strconv.Itoa(seconds),
			"BENCHSIM_SEED=" + strconv.Itoa(mockSeed),
		},
	}, nil
}

func (b *ToolCommandBuilder) resolveSimulator() (string, error) {
	if b.SimulatorPath != "" {
		return b.SimulatorPath, nil
	}
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), simulatorBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath(simulatorBinary); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("neither %q nor the %q simulator is available", b.Tool, simulatorBinary)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CommandString renders the argument vector as a shell-safe string for the
// command.txt audit artifact. It is never handed to a shell by this package.
func CommandString(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsFunc(arg, func(r rune) bool {
		return !strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@%+=:,./_-", r)
	}) {
		return arg
	}
	// POSIX single quoting: close, escape the quote, reopen.
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}
