package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/paddock/raceline/core"
	"github.com/paddock/raceline/ingester/ingestserver"
	"github.com/paddock/raceline/lib/collector"
	"github.com/paddock/raceline/lib/lease"
	"github.com/paddock/raceline/lib/notify"
	"github.com/paddock/raceline/lib/persistedretry"
	"github.com/paddock/raceline/lib/poller"
	"github.com/paddock/raceline/lib/provider"
	"github.com/paddock/raceline/lib/provider/httpprovider"
	"github.com/paddock/raceline/lib/racestore"
	"github.com/paddock/raceline/lib/tracing"
	"github.com/paddock/raceline/localdb"
	"github.com/paddock/raceline/metrics"
	"github.com/paddock/raceline/utils/backoff"
	"github.com/paddock/raceline/utils/configutil"
	"github.com/paddock/raceline/utils/listener"
	"github.com/paddock/raceline/utils/log"
	"github.com/paddock/raceline/utils/shutdown"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Flags defines ingester CLI flags.
type Flags struct {
	ConfigFile       string
	Cluster          string
	DisableCollector bool
	DisableRecovery  bool
}

// ParseFlags parses ingester CLI flags.
func ParseFlags() *Flags {
	var flags Flags
	flag.StringVar(
		&flags.ConfigFile, "config", "", "configuration file path")
	flag.StringVar(
		&flags.Cluster, "cluster", "", "cluster name (e.g. prod01-kr)")
	flag.BoolVar(
		&flags.DisableCollector, "disable-collector", false,
		"do not tick the collector in-process; rely on POST /jobs/tick instead")
	flag.BoolVar(
		&flags.DisableRecovery, "disable-recovery", false,
		"do not run the recovery loop in-process; rely on POST /jobs/recovery instead")
	flag.Parse()
	return &flags
}

type options struct {
	config  *Config
	secrets *Secrets
	metrics tally.Scope
	logger  *zap.Logger
}

// Option defines an optional Run parameter.
type Option func(*options)

// WithConfig ignores the config flag and directly uses the provided config
// struct.
func WithConfig(c Config) Option {
	return func(o *options) { o.config = &c }
}

// WithSecrets ignores the environment and directly uses the provided secrets.
func WithSecrets(s Secrets) Option {
	return func(o *options) { o.secrets = &s }
}

// WithMetrics ignores metrics config and directly uses the provided tally scope.
func WithMetrics(s tally.Scope) Option {
	return func(o *options) { o.metrics = s }
}

// WithLogger ignores logging config and directly uses the provided logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run runs the ingester until SIGINT or SIGTERM.
func Run(flags *Flags, opts ...Option) {
	var overrides options
	for _, o := range opts {
		o(&overrides)
	}

	var config Config
	if overrides.config != nil {
		config = *overrides.config
	} else {
		if err := configutil.Load(flags.ConfigFile, &config); err != nil {
			panic(err)
		}
	}

	var secrets Secrets
	if overrides.secrets != nil {
		secrets = *overrides.secrets
	} else {
		if err := configutil.LoadEnv(&secrets); err != nil {
			panic(err)
		}
	}

	if overrides.logger != nil {
		log.SetGlobalLogger(overrides.logger.Sugar())
	} else {
		zlog := log.ConfigureLogger(config.ZapLogging)
		defer zlog.Sync()
	}

	stats := overrides.metrics
	if stats == nil {
		s, closer, err := metrics.New(config.Metrics, flags.Cluster)
		if err != nil {
			log.Fatalf("Failed to init metrics: %s", err)
		}
		stats = s
		defer closer.Close()
	}

	sh := shutdown.New(context.Background())
	ctx := sh.Context()

	shutdownTracing, err := tracing.InitProvider(ctx, config.Tracing)
	if err != nil {
		log.Fatalf("Failed to init tracing: %s", err)
	}
	sh.AddCleanup("tracing", func() error {
		return shutdownTracing(context.Background())
	})

	clk := clock.New()

	db, err := localdb.New(config.LocalDB)
	if err != nil {
		log.Fatalf("Failed to open local db: %s", err)
	}
	sh.AddCleanup("localdb", db.Close)

	races := racestore.New(db, clk)
	ledger := persistedretry.NewSQLStore(config.Ledger, db, clk)

	providers, err := buildProviders(config.Providers, secrets)
	if err != nil {
		log.Fatalf("Failed to build providers: %s", err)
	}
	log.Infof("Registered providers for race types %v", providers.RaceTypes())

	mapper, err := provider.NewMapper(config.Mapper)
	if err != nil {
		log.Fatalf("Failed to create mapper: %s", err)
	}

	sinks, err := buildSinks(config.Notify, secrets)
	if err != nil {
		log.Fatalf("Failed to build notification sinks: %s", err)
	}
	queue := notify.NewQueue(config.Notify, stats, clk, sinks...)
	sh.AddCleanup("notify", func() error {
		queue.Close()
		return nil
	})

	executor := backoff.NewExecutor(config.Backoff, stats, clk)

	pollers := poller.New(
		config.Poller, stats, clk, executor, providers, mapper, races, ledger, queue)

	recovery, err := persistedretry.NewManager(
		config.Ledger, stats, ledger, pollers.Invokers(), queue, clk)
	if err != nil {
		log.Fatalf("Failed to create recovery manager: %s", err)
	}

	l, err := lease.New(config.Lease)
	if err != nil {
		log.Fatalf("Failed to create lease: %s", err)
	}
	if c, ok := l.(io.Closer); ok {
		sh.AddCleanup("lease", c.Close)
	}

	coll, err := collector.New(
		config.Collector, stats, clk, races,
		pollers.Schedule, pollers.Entry, pollers.Result, pollers.Odds, l)
	if err != nil {
		log.Fatalf("Failed to create collector: %s", err)
	}

	server, err := ingestserver.New(
		config.IngestServer,
		stats,
		clk,
		secrets.APISecret,
		ingestserver.Pollers{
			Schedule: pollers.Schedule,
			Entries:  pollers.Entry,
			Results:  pollers.Result,
			Odds:     pollers.Odds,
		},
		coll,
		recovery,
		ledger,
		races)
	if err != nil {
		log.Fatalf("Failed to create ingest server: %s", err)
	}

	h := server.Handler()
	if config.Tracing.Enabled {
		h = tracing.HTTPMiddleware(config.Tracing.ServiceName)(h)
	}
	srv, err := listener.Listen(config.Listener, h)
	if err != nil {
		log.Fatalf("Failed to listen: %s", err)
	}
	log.Infof("Starting ingest server on %s", srv.Addr())
	go func() {
		if err := srv.Serve(); err != nil {
			log.Fatalf("Ingest server: %s", err)
		}
	}()
	sh.AddCleanup("ingestserver", func() error {
		return srv.Shutdown(30 * time.Second)
	})

	if !flags.DisableCollector {
		done := make(chan struct{})
		go func() {
			defer close(done)
			coll.Run(ctx)
		}()
		sh.AddCleanup("collector", func() error {
			<-done
			return nil
		})
	}

	if !flags.DisableRecovery {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := recovery.Run(ctx, config.Ledger.Interval, 0); err != nil && ctx.Err() == nil {
				log.Errorf("Recovery loop stopped: %s", err)
			}
		}()
		sh.AddCleanup("recovery", func() error {
			<-done
			return nil
		})
	}

	sh.Wait()
}

// buildProviders creates an HTTP provider client per configured provider and
// registers it for each of its race types.
func buildProviders(configs []ProviderConfig, secrets Secrets) (*provider.Manager, error) {
	m := provider.NewManager()
	for _, pc := range configs {
		hc := pc.HTTP
		if key := secrets.serviceKey(pc.Name); key != "" {
			hc.ServiceKey = key
		}
		client, err := httpprovider.NewClient(pc.Name, hc, nil)
		if err != nil {
			return nil, err
		}
		var limiter *rate.Limiter
		if pc.RateLimit > 0 {
			burst := pc.Burst
			if burst == 0 {
				burst = 1
			}
			limiter = rate.NewLimiter(rate.Limit(pc.RateLimit), burst)
		}
		if len(pc.RaceTypes) == 0 {
			return nil, fmt.Errorf("provider %s: race_types required", pc.Name)
		}
		for _, s := range pc.RaceTypes {
			t, err := core.ParseRaceType(s)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %s", pc.Name, err)
			}
			if err := m.Register(t, client, limiter); err != nil {
				return nil, fmt.Errorf("provider %s: %s", pc.Name, err)
			}
		}
	}
	return m, nil
}

// buildSinks returns the log sink plus a webhook sink when a webhook URL is
// configured.
func buildSinks(config notify.Config, secrets Secrets) ([]notify.Sink, error) {
	sinks := []notify.Sink{notify.LogSink{}}
	webhook := config.Webhook
	if secrets.WebhookURL != "" {
		webhook.URL = secrets.WebhookURL
	}
	if webhook.URL == "" {
		return sinks, nil
	}
	s, err := notify.NewWebhookSink(webhook, tracing.NewHTTPTransport(nil))
	if err != nil {
		return nil, err
	}
	return append(sinks, s), nil
}
