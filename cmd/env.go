package main

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oxsirene/reseller-cli/internal/config"
	"github.com/oxsirene/reseller-cli/internal/correlation"
	"github.com/oxsirene/reseller-cli/internal/estimate"
	"github.com/oxsirene/reseller-cli/internal/location"
	"github.com/oxsirene/reseller-cli/internal/metrics"
	"github.com/oxsirene/reseller-cli/internal/progress"
	"github.com/oxsirene/reseller-cli/internal/resilience"
	"github.com/oxsirene/reseller-cli/internal/session"
	"github.com/oxsirene/reseller-cli/internal/store"
	"github.com/oxsirene/reseller-cli/pkg/geocode"
	"github.com/oxsirene/reseller-cli/pkg/oxsirene"
)

// appEnv holds everything the estimate, last, locate, token and serve
// commands need.
type appEnv struct {
	KV           store.KV
	Session      *session.Manager
	API          oxsirene.Client
	Results      *store.ResultStore
	Locator      *location.Locator
	Orchestrator *estimate.Orchestrator
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
	Policy       *resilience.Policy
	NATS         *nats.Conn
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.NATS != nil {
		if err := e.NATS.Drain(); err != nil {
			zap.L().Warn("nats drain failed", zap.Error(err))
		}
	}
	if e.KV != nil {
		_ = e.KV.Close()
	}
}

// CorrelationID returns a fresh ID for one chain of calls.
func (e *appEnv) CorrelationID(ctx context.Context) (correlation.ID, error) {
	return e.Session.CorrelationID(ctx)
}

// initEnv validates the config for mode, opens the store and wires the
// client, session and orchestrator. Callers should defer env.Close().
func initEnv(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	kv, err := store.Open(ctx, c.Store.Driver, c.Store.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	var nc *nats.Conn
	if c.NATS.URL != "" {
		nc, err = nats.Connect(c.NATS.URL, nats.Name("reseller-cli"))
		if err != nil {
			_ = kv.Close()
			return nil, eris.Wrap(err, "connect nats")
		}
	}

	return buildEnv(c, kv, nc), nil
}

// buildEnv wires the components on top of an open store. nc may be nil.
func buildEnv(c *config.Config, kv store.KV, nc *nats.Conn) *appEnv {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	policy := resilience.NewPolicy(
		resilience.FromRetryConfig(c.API.Retry.MaxAttempts, c.API.Retry.InitialBackoffMs, c.API.Retry.MaxBackoffMs),
		resilience.FromBreakerConfig(c.API.Circuit.FailureThreshold, c.API.Circuit.ResetTimeoutSecs),
	)

	// The manager issues tokens through the client, and the client
	// authenticates through the manager.
	sess := session.NewManager(kv, nil,
		session.WithTokenMaxAge(time.Duration(c.Session.TokenMaxAgeHours)*time.Hour))

	opts := []oxsirene.Option{
		oxsirene.WithBaseURL(c.API.BaseURL),
		oxsirene.WithTokenSource(sess),
		oxsirene.WithPolicy(policy),
		oxsirene.WithObserver(m),
	}
	if c.API.IPEchoURL != "" {
		opts = append(opts, oxsirene.WithIPEchoURL(c.API.IPEchoURL))
	}
	if c.API.TimeoutSecs > 0 {
		opts = append(opts, oxsirene.WithTimeout(time.Duration(c.API.TimeoutSecs)*time.Second))
	}
	if c.API.RateLimit > 0 {
		opts = append(opts, oxsirene.WithRateLimit(c.API.RateLimit))
	}
	api := oxsirene.NewClient(opts...)
	sess.SetIssuer(api)

	sinks := progress.MultiSink{progress.LogSink{}}
	if nc != nil {
		sinks = append(sinks, progress.NewNATSSink(nc, c.NATS.SubjectPrefix))
	}

	geocoder := geocode.New(api, kv,
		geocode.WithTTL(time.Duration(c.Geocode.CacheTTLHours)*time.Hour))
	results := store.NewResultStore(kv)

	orch := estimate.New(api, results, sess,
		estimate.Config{
			MaxConcurrentSellers: c.Estimate.MaxConcurrentSellers,
			BranchTimeout:        time.Duration(c.Estimate.BranchTimeoutSecs) * time.Second,
		},
		estimate.WithGeocoder(geocoder),
		estimate.WithSink(sinks),
		estimate.WithRecorder(m),
	)

	return &appEnv{
		KV:           kv,
		Session:      sess,
		API:          api,
		Results:      results,
		Locator:      location.New(api, sess),
		Orchestrator: orch,
		Metrics:      m,
		Registry:     reg,
		Policy:       policy,
		NATS:         nc,
	}
}
