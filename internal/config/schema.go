package config

// SimConfig is the top-level YAML structure.
type SimConfig struct {
	Version     string       `yaml:"version"`
	Engine      EngineConf   `yaml:"engine"`
	Network     NetworkConf  `yaml:"network"`
	Store       StoreConf    `yaml:"store"`
	Experiments []Experiment `yaml:"experiments"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	TrialWorkers   int    `yaml:"trial_workers"`
	QueueDepth     int    `yaml:"queue_depth"`
	TrialTimeoutMs int    `yaml:"trial_timeout_ms"`
	MaxBatches     int    `yaml:"max_batches"` // batches dispatched concurrently
	LogLevel       string `yaml:"log_level"`
}

// NetworkConf points at the contact network edge list.
type NetworkConf struct {
	Path string `yaml:"path"`
}

// StoreConf locates the SQLite results database. An empty path keeps
// results in memory only.
type StoreConf struct {
	Path string `yaml:"path"`
}

// Experiment is a named parameter set run as a batch of independent trials.
type Experiment struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	Beta        float64  `yaml:"beta" json:"beta"`
	Gamma       float64  `yaml:"gamma" json:"gamma"`
	MaxTime     float64  `yaml:"max_time" json:"max_time"`
	Seeds       []string `yaml:"seeds" json:"seeds"` // node labels from the edge list
	Trials      int      `yaml:"trials" json:"trials"`
	RNGSeed     uint64   `yaml:"rng_seed" json:"rng_seed"`
}
