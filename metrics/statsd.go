package metrics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cactus/go-statsd-client/statsd"
	"github.com/uber-go/tally"
	tallystatsd "github.com/uber-go/tally/statsd"
)

const sampleRate = 1.0

func newStatsdScope(config Config, cluster string) (tally.Scope, io.Closer, error) {
	sc := config.Statsd.applyDefaults()
	if sc.HostPort == "" {
		return nil, nil, errors.New("statsd host_port required")
	}
	statter, err := statsd.NewBufferedClient(sc.HostPort, sc.Prefix, sc.FlushInterval, sc.FlushBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("statsd client: %s", err)
	}
	r := tallystatsd.NewReporter(statter, tallystatsd.Options{
		SampleRate: sampleRate,
	})
	s, closer := tally.NewRootScope(tally.ScopeOptions{
		Reporter: r,
	}, time.Second)
	return s, closer, nil
}
