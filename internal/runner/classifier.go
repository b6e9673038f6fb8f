package runner

import (
	"fmt"
	"strings"

	"github.com/openbench/openbench/pkg/api"
)

// The evaluation CLI sometimes exits 0 even when no sample was evaluated
// (bad credentials, unknown model, rate limiting). The classifier scans the
// captured output for known failure signatures so those runs are not reported
// as COMPLETED.

// ExtractFunc pulls a human-readable error message out of the stream that
// matched a pattern. Returning "" falls back to a generic message.
type ExtractFunc func(content string, pattern string) string

// Rule pairs a failure signature with its message extractor. Rules are
// evaluated in order; the first match wins.
type Rule struct {
	Pattern string
	Extract ExtractFunc
}

// DefaultRules lists the known silent-failure signatures of the evaluation
// tool.
func DefaultRules() []Rule {
	patterns := []string{
		"Task interrupted (no samples completed",
		"Error code:",
		"NotFoundError:",
		"does not exist or you do not have access",
		"model_not_found",
		"AuthenticationError:",
		"PermissionDeniedError:",
		"RateLimitError:",
	}
	rules := make([]Rule, len(patterns))
	for i, p := range patterns {
		rules[i] = Rule{Pattern: p, Extract: extractMarkedError}
	}
	return rules
}

// Classifier decides the terminal status of an exited process from its exit
// code and captured output.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier from the given rules, defaulting to
// DefaultRules when none are supplied.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify applies the decision table:
//
//	exit 0, no signature  -> COMPLETED
//	exit 0, signature     -> FAILED with the extracted message
//	exit != 0             -> FAILED with the extracted message, else the
//	                         stderr tail, else a generic exit-code message
func (c *Classifier) Classify(exitCode int, stdout, stderr string) (api.RunStatus, string) {
	matched, errMsg := c.detect(stdout, stderr)

	switch {
	case exitCode == 0 && !matched:
		return api.StatusCompleted, ""
	case exitCode == 0:
		if errMsg == "" {
			errMsg = "Benchmark failed but returned exit code 0"
		}
		return api.StatusFailed, errMsg
	default:
		if errMsg == "" {
			if tail := tailChars(stderr, 1000); tail != "" {
				errMsg = tail
			} else {
				errMsg = fmt.Sprintf("Process exited with code %d", exitCode)
			}
		}
		return api.StatusFailed, errMsg
	}
}

func (c *Classifier) detect(stdout, stderr string) (bool, string) {
	for _, rule := range c.rules {
		content := ""
		if strings.Contains(stdout, rule.Pattern) {
			content = stdout
		} else if strings.Contains(stderr, rule.Pattern) {
			content = stderr
		} else {
			continue
		}

		msg := ""
		if rule.Extract != nil {
			msg = rule.Extract(content, rule.Pattern)
		}
		if msg == "" {
			msg = tailChars(content, 500)
		}
		return true, msg
	}
	return false, ""
}

var errorMarkers = []string{"Error:", "Error code:", "interrupted"}

// extractMarkedError finds the line carrying an explicit error marker and
// returns it plus up to four following non-decorative lines. When a marker
// line exists but every candidate line is decorative, it falls back to a
// generic message naming the pattern.
func extractMarkedError(content string, pattern string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !containsAny(line, errorMarkers) {
			continue
		}
		var msgLines []string
		for j := i; j < len(lines) && j < i+5; j++ {
			clean := strings.TrimSpace(lines[j])
			if clean == "" || isDecorative(clean) {
				continue
			}
			msgLines = append(msgLines, clean)
		}
		if len(msgLines) > 0 {
			return strings.Join(msgLines, "\n")
		}
		return fmt.Sprintf("Benchmark failed with %s", pattern)
	}
	return ""
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

// isDecorative reports whether the line consists solely of box-drawing
// characters, as emitted by the CLI's panel rendering.
func isDecorative(line string) bool {
	for _, r := range line {
		if !strings.ContainsRune("─│╭╮╯╰├┤┬┴┼═╔╗╚╝╠╣╦╩╬", r) {
			return false
		}
	}
	return true
}

func tailChars(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[len(runes)-n:]))
}
