package metrics

import "time"

// Config defines metrics configuration.
type Config struct {
	// Backend is one of statsd or disabled. Empty disables metrics.
	Backend string       `yaml:"backend"`
	Statsd  StatsdConfig `yaml:"statsd"`

	// Tags are attached to every metric. The ingester's cluster is tagged as
	// "cluster" unless Tags sets it explicitly.
	Tags map[string]string `yaml:"tags"`
}

// tags returns the tags of every metric reported from cluster.
func (c Config) tags(cluster string) map[string]string {
	tags := make(map[string]string, len(c.Tags)+1)
	if cluster != "" {
		tags["cluster"] = cluster
	}
	for k, v := range c.Tags {
		tags[k] = v
	}
	return tags
}

// StatsdConfig defines statsd configuration.
type StatsdConfig struct {
	HostPort string `yaml:"host_port"`

	// Prefix of every metric name. Default: raceline.
	Prefix string `yaml:"prefix"`

	// Buffered metrics are sent every FlushInterval, or sooner once
	// FlushBytes accumulate.
	FlushInterval time.Duration `yaml:"flush_interval"`
	FlushBytes    int           `yaml:"flush_bytes"`
}

func (c StatsdConfig) applyDefaults() StatsdConfig {
	if c.Prefix == "" {
		c.Prefix = "raceline"
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 100 * time.Millisecond
	}
	if c.FlushBytes == 0 {
		c.FlushBytes = 512
	}
	return c
}
