package metrics

import (
	"fmt"
	"io"

	"github.com/paddock/raceline/utils/log"

	"github.com/uber-go/tally"
)

func init() {
	register("statsd", newStatsdScope)
	register("disabled", newDisabledScope)
}

var _scopeFactories = make(map[string]scopeFactory)

type scopeFactory func(config Config, cluster string) (tally.Scope, io.Closer, error)

func register(name string, f scopeFactory) {
	if _, ok := _scopeFactories[name]; ok {
		log.Fatalf("Metrics reporter factory %q is already registered", name)
	}
	_scopeFactories[name] = f
}

// New creates a new metrics Scope from config, tagged with cluster and the
// configured tags. If no backend is configured, metrics are disabled.
func New(config Config, cluster string) (tally.Scope, io.Closer, error) {
	if config.Backend == "" {
		config.Backend = "disabled"
	}
	f, ok := _scopeFactories[config.Backend]
	if !ok || f == nil {
		return nil, nil, fmt.Errorf("metrics backend %q not registered", config.Backend)
	}
	s, closer, err := f(config, cluster)
	if err != nil {
		return nil, nil, err
	}
	if tags := config.tags(cluster); len(tags) > 0 {
		s = s.Tagged(tags)
	}
	return s, closer, nil
}
