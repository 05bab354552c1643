package tracing

// Config defines tracing configuration.
type Config struct {
	// Enabled enables/disables tracing. Default: false.
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies spans from this process. Default: raceline-ingester.
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP HTTP collector host:port. Default: localhost:4318.
	Endpoint string `yaml:"endpoint"`

	// Insecure sends spans over plain HTTP.
	Insecure bool `yaml:"insecure"`

	// SamplingRate is the fraction of traces to sample (0.0 to 1.0). Default: 0.1.
	SamplingRate float64 `yaml:"sampling_rate"`
}

func (c Config) applyDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = "raceline-ingester"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 0.1
	}
	return c
}
