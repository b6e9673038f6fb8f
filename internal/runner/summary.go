package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/xeipuuv/gojsonschema"

	"github.com/openbench/openbench/pkg/api"
)

// resultsMarker prefixes the single-line JSON payload the simulator (and
// some tool versions) print to stdout.
const resultsMarker = "RESULTS: "

// resultsSchema is the minimal shape a results payload must have before any
// metric is extracted from it.
const resultsSchema = `{
	"type": "object",
	"required": ["benchmark", "model"],
	"properties": {
		"benchmark": {"type": "string"},
		"model": {"type": "string"},
		"accuracy": {"type": "number"},
		"categories": {
			"type": "object",
			"additionalProperties": {"type": "number"}
		}
	}
}`

// metricPaths are tried in order; the first numeric hit becomes the primary
// metric, named after the path leaf.
var metricPaths = []struct {
	name string
	path string
}{
	{"accuracy", "$.accuracy"},
	{"score", "$.score"},
	{"accuracy", "$.metrics.accuracy"},
	{"pass_rate", "$.metrics.pass_rate"},
}

// ParseAndWriteSummary locates the run's results payload, extracts the
// primary metric and category breakdown, and writes summary.json into the
// artifact directory. It returns an error rather than swallowing parse
// failures; the supervisor treats that error as best-effort and logs it.
func ParseAndWriteSummary(dir string) (*api.RunSummaryDoc, error) {
	payload, err := locateResults(dir)
	if err != nil {
		return nil, err
	}

	if err := validateResults(payload); err != nil {
		return nil, err
	}

	var doc api.RunSummaryDoc
	var parsed any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("parse results payload: %w", err)
	}

	for _, candidate := range metricPaths {
		value, err := jsonpath.Get(candidate.path, parsed)
		if err != nil {
			continue
		}
		if num, ok := value.(float64); ok {
			doc.PrimaryMetric = &api.PrimaryMetric{Name: candidate.name, Value: num}
			break
		}
	}

	if value, err := jsonpath.Get("$.categories", parsed); err == nil {
		if m, ok := value.(map[string]any); ok {
			doc.Categories = make(map[string]float64, len(m))
			for k, v := range m {
				if num, ok := v.(float64); ok {
					doc.Categories[k] = num
				}
			}
		}
	}

	if err := writeJSON(filepath.Join(dir, summaryFile), &doc); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	return &doc, nil
}

// locateResults prefers a results.json written under logs/, then falls back
// to the last RESULTS: line in stdout.
func locateResults(dir string) ([]byte, error) {
	for _, candidate := range []string{
		filepath.Join(dir, "logs", "results.json"),
		filepath.Join(dir, "results.json"),
	} {
		if data, err := os.ReadFile(candidate); err == nil {
			return data, nil
		}
	}

	stdout, err := os.ReadFile(filepath.Join(dir, stdoutLog))
	if err != nil {
		return nil, fmt.Errorf("no results payload found: %w", err)
	}
	lines := strings.Split(string(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if after, ok := strings.CutPrefix(line, resultsMarker); ok {
			return []byte(after), nil
		}
	}
	return nil, fmt.Errorf("no results payload found in %s", stdoutLog)
}

func validateResults(payload []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(resultsSchema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return fmt.Errorf("validate results payload: %w", err)
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return fmt.Errorf("results payload invalid: %s", strings.Join(reasons, "; "))
	}
	return nil
}
