package cmd

import (
	"github.com/paddock/raceline/ingester/ingestserver"
	"github.com/paddock/raceline/lib/collector"
	"github.com/paddock/raceline/lib/lease"
	"github.com/paddock/raceline/lib/notify"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/poller"
	"github.com/paddock/raceline/lib/provider"
	"github.com/paddock/raceline/lib/provider/httpprovider"
	"github.com/paddock/raceline/lib/tracing"
	"github.com/paddock/raceline/localdb"
	"github.com/paddock/raceline/metrics"
	"github.com/paddock/raceline/utils/backoff"
	"github.com/paddock/raceline/utils/listener"

	"go.uber.org/zap"
)

// Config defines ingester configuration.
type Config struct {
	ZapLogging   zap.Config            `yaml:"zap"`
	Metrics      metrics.Config        `yaml:"metrics"`
	Tracing      tracing.Config        `yaml:"tracing"`
	LocalDB      localdb.Config        `yaml:"localdb"`
	Backoff      backoff.Config        `yaml:"backoff"`
	Ledger       persistedretry.Config `yaml:"ledger"`
	Mapper       provider.MapperConfig `yaml:"mapper"`
	Providers    []ProviderConfig      `yaml:"providers"`
	Poller       poller.Config         `yaml:"poller"`
	Notify       notify.Config         `yaml:"notify"`
	Collector    collector.Config      `yaml:"collector"`
	Lease        lease.Config          `yaml:"lease"`
	IngestServer ingestserver.Config   `yaml:"ingestserver"`
	Listener     listener.Config       `yaml:"listener"`
}

// ProviderConfig binds an upstream provider to the race types it serves.
type ProviderConfig struct {
	Name      string              `yaml:"name" validate:"nonzero"`
	RaceTypes []string            `yaml:"race_types"`
	HTTP      httpprovider.Config `yaml:"http"`

	// Requests per second allowed against the provider, shared by all its
	// race types. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// Secrets are read from the environment and override YAML.
type Secrets struct {
	APISecret      string `env:"RACELINE_API_SECRET,required,notEmpty"`
	KRAServiceKey  string `env:"RACELINE_KRA_SERVICE_KEY"`
	KSPOServiceKey string `env:"RACELINE_KSPO_SERVICE_KEY"`
	WebhookURL     string `env:"RACELINE_WEBHOOK_URL"`
}

// serviceKey returns the environment supplied service key of provider name,
// or empty if there is none.
func (s Secrets) serviceKey(name string) string {
	switch name {
	case "kra":
		return s.KRAServiceKey
	case "kspo":
		return s.KSPOServiceKey
	}
	return ""
}
