package config

// ServiceConfig holds the service-level settings.
type ServiceConfig struct {
	Port      int    `mapstructure:"port"`
	Version   string `mapstructure:"version"`
	Build     string `mapstructure:"build"`
	BuildDate string `mapstructure:"build_date"`
	LocalMode bool   `mapstructure:"local_mode"`
}

// RunnerConfig holds the run execution engine settings.
type RunnerConfig struct {
	// RunsDir is the root directory under which every run gets its private
	// artifact directory.
	RunsDir string `mapstructure:"runs_dir"`

	// Tool is the evaluation CLI probed for on PATH. When absent (or when
	// ForceMock is set) runs execute the bundled simulator instead.
	Tool      string `mapstructure:"tool"`
	ForceMock bool   `mapstructure:"force_mock"`

	// SimulatorPath overrides the simulator binary location; empty means
	// look next to the service executable, then on PATH.
	SimulatorPath string `mapstructure:"simulator_path"`

	// Env holds credential variables (API keys) injected into every run
	// subprocess environment on top of the host environment. Values are
	// typically populated from the secrets directory mappings.
	Env map[string]string `mapstructure:"env"`
}

// Config is the top level service configuration.
type Config struct {
	Service  *ServiceConfig  `mapstructure:"service"`
	Runner   *RunnerConfig   `mapstructure:"runner"`
	Database *map[string]any `mapstructure:"database"`
}
