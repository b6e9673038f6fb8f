package main

import "testing"

func TestSimulateDeterministic(t *testing.T) {
	first := simulate("mmlu", "gpt-4o", 5, 42)
	second := simulate("mmlu", "gpt-4o", 5, 42)

	if first.Accuracy != second.Accuracy {
		t.Errorf("Same inputs produced different accuracy: %v != %v", first.Accuracy, second.Accuracy)
	}
	for name, value := range first.Categories {
		if second.Categories[name] != value {
			t.Errorf("Category %s differs between identical runs", name)
		}
	}
}

func TestSimulateVariesByConfiguration(t *testing.T) {
	base := simulate("mmlu", "gpt-4o", 5, 42)
	otherModel := simulate("mmlu", "claude-sonnet", 5, 42)
	otherBenchmark := simulate("gsm8k", "gpt-4o", 5, 42)

	if base.Accuracy == otherModel.Accuracy && base.Accuracy == otherBenchmark.Accuracy {
		t.Error("Distinct configurations all produced the same accuracy")
	}
}

func TestSimulateBounds(t *testing.T) {
	for _, benchmark := range []string{"mmlu", "humaneval", "gsm8k", "unlisted"} {
		res := simulate(benchmark, "m", 5, 42)
		if res.Accuracy < 0 || res.Accuracy > 1 {
			t.Errorf("Accuracy out of range for %s: %v", benchmark, res.Accuracy)
		}
		if len(res.Categories) == 0 {
			t.Errorf("No categories for %s", benchmark)
		}
		for name, value := range res.Categories {
			if value < 0 || value > 1 {
				t.Errorf("Category %s out of range for %s: %v", name, benchmark, value)
			}
		}
	}
}
