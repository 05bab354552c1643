package ingestserver

// Config defines Server configuration.
type Config struct {
	// Location is the time zone in which dates given without one, such as
	// "today's schedule", are resolved.
	Location string `yaml:"location"`

	// Max race ids accepted by a single /jobs request.
	MaxBatchSize int `yaml:"max_batch_size"`

	// Failures listed when no limit is given.
	DefaultListLimit int `yaml:"default_list_limit"`
}

func (c Config) applyDefaults() Config {
	if c.Location == "" {
		c.Location = "Asia/Seoul"
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = 500
	}
	if c.DefaultListLimit == 0 {
		c.DefaultListLimit = 100
	}
	return c
}
