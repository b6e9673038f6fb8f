// Command benchsim is the deterministic benchmark simulator used when the
// real evaluation CLI is not installed. All parameters arrive through
// BENCHSIM_* environment variables; the program text never embeds run input.
//
// It prints one progress line per simulated sample, writes the results
// payload to logs/results.json in the working directory, and echoes the same
// payload as a single "RESULTS: " stdout line.
package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type results struct {
	Benchmark  string             `json:"benchmark"`
	Model      string             `json:"model"`
	Samples    int                `json:"samples"`
	Accuracy   float64            `json:"accuracy"`
	Categories map[string]float64 `json:"categories"`
}

var benchmarkCategories = map[string][]string{
	"mmlu":      {"stem", "humanities", "social_sciences", "other"},
	"humaneval": {"pass@1"},
	"gsm8k":     {"arithmetic", "multi_step"},
	"hellaswag": {"activitynet", "wikihow"},
	"arc":       {"easy", "challenge"},
}

func main() {
	benchmark := envOr("BENCHSIM_BENCHMARK", "mmlu")
	model := envOr("BENCHSIM_MODEL", "unknown")
	limit := envInt("BENCHSIM_LIMIT", 5)
	seconds := envInt("BENCHSIM_SECONDS", limit)
	seed := envInt("BENCHSIM_SEED", 42)

	fmt.Printf("Starting benchmark: %s\n", benchmark)
	fmt.Printf("Model: %s\n", model)
	fmt.Printf("Samples: %d\n", limit)

	for i := 1; i <= seconds; i++ {
		fmt.Printf("Processing sample %d/%d...\n", i, limit)
		time.Sleep(1 * time.Second)
	}

	res := simulate(benchmark, model, limit, seed)

	payload, err := json.Marshal(res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}

	if err := writeResults(payload); err != nil {
		// stdout still carries the payload, so this is not fatal
		fmt.Fprintf(os.Stderr, "failed to write results file: %s\n", err.Error())
	}

	fmt.Printf("RESULTS: %s\n", payload)
}

// simulate produces a stable score for a given benchmark, model and seed.
// The generator is seeded from all three so distinct configurations produce
// distinct but repeatable numbers.
func simulate(benchmark string, model string, limit int, seed int) *results {
	h := fnv.New64a()
	h.Write([]byte(benchmark))
	h.Write([]byte{0})
	h.Write([]byte(model))
	rng := rand.New(rand.NewSource(int64(seed) ^ int64(h.Sum64())))

	accuracy := round4(0.55 + rng.Float64()*0.4)

	names, ok := benchmarkCategories[benchmark]
	if !ok {
		names = []string{"overall"}
	}
	categories := make(map[string]float64, len(names))
	for _, name := range names {
		delta := (rng.Float64() - 0.5) * 0.2
		categories[name] = round4(clamp(accuracy+delta, 0, 1))
	}

	return &results{
		Benchmark:  benchmark,
		Model:      model,
		Samples:    limit,
		Accuracy:   accuracy,
		Categories: categories,
	}
}

func writeResults(payload []byte) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join("logs", "results.json"), append(payload, '\n'), 0o644)
}

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
