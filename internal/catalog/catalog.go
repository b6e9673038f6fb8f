package catalog

import "github.com/openbench/openbench/pkg/api"

// Catalog is the curated benchmark list. The run engine never consults it;
// benchmark names are passed to the command builder verbatim, so an unknown
// name simply produces a failing run.
type Catalog struct {
	benchmarks []api.Benchmark
	byName     map[string]*api.Benchmark
}

func New() *Catalog {
	c := &Catalog{benchmarks: staticBenchmarks()}
	c.byName = make(map[string]*api.Benchmark, len(c.benchmarks))
	for i := range c.benchmarks {
		c.byName[c.benchmarks[i].Name] = &c.benchmarks[i]
	}
	return c
}

// List returns all catalog entries.
func (c *Catalog) List() []api.Benchmark {
	return c.benchmarks
}

// Get returns the catalog entry with the given name, or nil.
func (c *Catalog) Get(name string) *api.Benchmark {
	return c.byName[name]
}

func staticBenchmarks() []api.Benchmark {
	return []api.Benchmark{
		{
			Name:             "mmlu",
			Category:         "knowledge",
			DescriptionShort: "Massive Multitask Language Understanding - tests knowledge across 57 subjects",
			Description: "MMLU (Massive Multitask Language Understanding) is a benchmark that tests " +
				"language models on 57 subjects ranging from STEM to humanities. It evaluates " +
				"both world knowledge and problem solving ability.",
			Tags: []string{"knowledge", "reasoning", "multi-subject"},
		},
		{
			Name:             "humaneval",
			Category:         "coding",
			DescriptionShort: "Python programming problems testing code generation",
			Description: "HumanEval consists of 164 hand-written Python programming problems. " +
				"Each problem includes a function signature, docstring, body, and unit tests. " +
				"Models are evaluated on functional correctness.",
			Tags: []string{"coding", "python", "generation"},
		},
		{
			Name:             "gsm8k",
			Category:         "math",
			DescriptionShort: "Grade school math word problems",
			Description: "GSM8K is a dataset of 8.5K high-quality grade school math word problems. " +
				"These problems require multi-step reasoning to solve. Models are evaluated " +
				"on their ability to produce correct final answers.",
			Tags: []string{"math", "reasoning", "word-problems"},
		},
		{
			Name:             "hellaswag",
			Category:         "commonsense",
			DescriptionShort: "Commonsense reasoning about physical situations",
			Description: "HellaSwag is a challenge dataset for evaluating commonsense NLI. " +
				"Models must select the most plausible continuation for scenarios involving " +
				"physical activities and common situations.",
			Tags: []string{"commonsense", "reasoning"},
		},
		{
			Name:             "arc",
			Category:         "science",
			DescriptionShort: "AI2 Reasoning Challenge - grade school science questions",
			Description: "The AI2 Reasoning Challenge (ARC) consists of 7,787 science exam questions. " +
				"The Challenge Set contains only questions that were answered incorrectly by " +
				"both a retrieval-based algorithm and a word co-occurrence algorithm.",
			Tags: []string{"science", "reasoning", "multiple-choice"},
		},
		{
			Name:             "truthfulqa",
			Category:         "safety",
			DescriptionShort: "Questions designed to test truthfulness and avoid common misconceptions",
			Description: "TruthfulQA measures whether a language model is truthful in generating " +
				"answers to questions. It contains 817 questions spanning 38 categories, " +
				"including health, law, finance and politics.",
			Tags: []string{"truthfulness", "safety", "qa"},
		},
		{
			Name:             "winogrande",
			Category:         "commonsense",
			DescriptionShort: "Winograd Schema Challenge for commonsense reasoning",
			Description: "WinoGrande is a large-scale dataset of 44k problems inspired by Winograd " +
				"Schema Challenge. It tests commonsense reasoning by requiring models to " +
				"resolve pronoun references correctly.",
			Tags: []string{"commonsense", "reasoning", "coreference"},
		},
		{
			Name:             "mbpp",
			Category:         "coding",
			DescriptionShort: "Mostly Basic Programming Problems - Python coding tasks",
			Description: "MBPP (Mostly Basic Programming Problems) consists of around 1,000 crowd-sourced " +
				"Python programming problems. Each problem includes a task description, code solution, " +
				"and 3 automated test cases.",
			Tags: []string{"coding", "python", "generation"},
		},
		{
			Name:             "drop",
			Category:         "reading",
			DescriptionShort: "Discrete Reasoning Over Paragraphs - reading comprehension",
			Description: "DROP is a reading comprehension benchmark requiring discrete reasoning over " +
				"paragraphs. Questions require counting, sorting, addition, or other discrete operations.",
			Tags: []string{"reading", "reasoning", "math"},
		},
		{
			Name:             "bigbench",
			Category:         "diverse",
			DescriptionShort: "BIG-Bench - diverse collection of challenging tasks",
			Description: "BIG-Bench is a collaborative benchmark with 204 diverse tasks covering " +
				"linguistics, childhood development, math, common-sense reasoning, biology, " +
				"physics, social bias, and software development.",
			Tags: []string{"diverse", "reasoning", "comprehensive"},
		},
	}
}
