package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openbench/openbench/pkg/api"
)

func TestClassifyCleanCompletion(t *testing.T) {
	c := NewClassifier()
	status, msg := c.Classify(0, "Processing sample 5/5...\nRESULTS: {}", "")
	assert.Equal(t, api.StatusCompleted, status)
	assert.Empty(t, msg)
}

func TestClassifySilentFailure(t *testing.T) {
	c := NewClassifier()
	stdout := strings.Join([]string{
		"Starting benchmark: mmlu",
		"AuthenticationError: Incorrect API key provided",
		"Check your credentials and try again",
	}, "\n")

	status, msg := c.Classify(0, stdout, "")
	assert.Equal(t, api.StatusFailed, status)
	assert.Contains(t, msg, "AuthenticationError: Incorrect API key provided")
	assert.Contains(t, msg, "Check your credentials")
}

func TestClassifyNonZeroExitUsesStderrTail(t *testing.T) {
	c := NewClassifier()
	status, msg := c.Classify(1, "", "boom")
	assert.Equal(t, api.StatusFailed, status)
	assert.Equal(t, "boom", msg)
}

func TestClassifyNonZeroExitNoOutput(t *testing.T) {
	c := NewClassifier()
	status, msg := c.Classify(2, "", "")
	assert.Equal(t, api.StatusFailed, status)
	assert.Equal(t, "Process exited with code 2", msg)
}

func TestClassifySignatureInStderr(t *testing.T) {
	c := NewClassifier()
	status, msg := c.Classify(1, "", "RateLimitError: too many requests\nretry later")
	assert.Equal(t, api.StatusFailed, status)
	assert.Contains(t, msg, "RateLimitError: too many requests")
}

func TestExtractMarkedErrorSkipsPanelBorders(t *testing.T) {
	content := strings.Join([]string{
		"╭──────────────╮",
		"│ Error code: 404 - model not found │",
		"╰──────────────╯",
		"model_not_found",
	}, "\n")

	msg := extractMarkedError(content, "Error code:")
	assert.Contains(t, msg, "Error code: 404")
	assert.NotContains(t, msg, "╭")
	assert.NotContains(t, msg, "╰")
}

func TestExtractMarkedErrorWindowIsBounded(t *testing.T) {
	lines := []string{"Error: something broke"}
	for i := 0; i < 10; i++ {
		lines = append(lines, "detail line")
	}
	msg := extractMarkedError(strings.Join(lines, "\n"), "Error:")
	assert.Equal(t, 5, len(strings.Split(msg, "\n")))
}

func TestExtractMarkedErrorInterruptedTask(t *testing.T) {
	content := "Task interrupted (no samples completed)\n─────\n│\n"
	msg := extractMarkedError(content, "Task interrupted (no samples completed")
	assert.Equal(t, "Task interrupted (no samples completed)", msg)
}

func TestClassifyTruncatesLongStderr(t *testing.T) {
	c := NewClassifier()
	long := strings.Repeat("x", 3000)
	status, msg := c.Classify(1, "", long)
	assert.Equal(t, api.StatusFailed, status)
	assert.Equal(t, 1000, len(msg))
}
