package listener

import "fmt"

// Config defines the address a server listens on.
type Config struct {
	Net  string `yaml:"net"`
	Addr string `yaml:"addr"`
}

func (c Config) applyDefaults() Config {
	if c.Net == "" {
		c.Net = "tcp"
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	return c
}

func (c Config) String() string {
	c = c.applyDefaults()
	return fmt.Sprintf("%s:%s", c.Net, c.Addr)
}
