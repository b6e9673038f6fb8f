package api

// Benchmark is a catalog entry describing an available benchmark. The run
// engine itself never validates benchmark names against the catalog; any name
// is handed to the command builder verbatim.
type Benchmark struct {
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	DescriptionShort string   `json:"description_short"`
	Description      string   `json:"description,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}
