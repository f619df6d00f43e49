package jmeter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/H6688chen/jmeter/internal/adapters/observability"
	"github.com/H6688chen/jmeter/internal/adapters/pulsar"
	"github.com/H6688chen/jmeter/internal/adapters/queue"
	"github.com/H6688chen/jmeter/internal/adapters/sink"
	"github.com/H6688chen/jmeter/internal/app/config"
	"github.com/H6688chen/jmeter/internal/app/sampler"
	"github.com/H6688chen/jmeter/internal/domain"
	"github.com/H6688chen/jmeter/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	factory ports.SubscriberFactory
	sink    ports.ResultSink
	obs     ports.Observability
}

// WithSubscriberFactory injects a custom subscription-client factory
// (alternative brokers, simulators, test fakes).
func WithSubscriberFactory(f SubscriberFactory) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.factory = f
	}
}

// WithResultSink injects a custom sink so results can be sent to any
// database or API instead of the default Postgres writer.
func WithResultSink(s ResultSink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.obs = obs
	}
}

type engineRun struct {
	engine *sampler.Sampler
	spec   config.SamplerConfig
	buf    *queue.MsgBuffer
}

// Runtime wires pool, samplers, observability, and the results sink into a
// runnable measurement harness: one measuring goroutine per configured
// sampler, a Prometheus endpoint, and run-end teardown of every pooled
// subscription client.
type Runtime struct {
	cfg     *config.Config
	runID   string
	pool    *sampler.ClientPool
	factory ports.SubscriberFactory
	snk     ports.ResultSink
	obs     ports.Observability
	engines []engineRun

	db          *sql.DB
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// NewRuntime bootstraps the default adapters (Pulsar subscription clients,
// Prometheus observability, Postgres results sink when configured). Options
// override any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.obs
	if obs == nil {
		obs = observability.NewPromObs()
	}

	factory := overrides.factory
	if factory == nil {
		factory = pulsar.NewFactory()
	}

	var (
		db  *sql.DB
		snk ports.ResultSink
		err error
	)
	if overrides.sink != nil {
		snk = overrides.sink
	} else if cfg.Results.ConnString != "" {
		db, err = sql.Open("postgres", cfg.Results.ConnString)
		if err != nil {
			return nil, err
		}
		snk = sink.NewPostgresSink(db, cfg.Results.Table)
	}

	pool := sampler.NewClientPool()
	runID := uuid.NewString()

	engines := make([]engineRun, 0, len(cfg.Samplers))
	for _, spec := range cfg.Samplers {
		buf := queue.NewMsgBuffer()
		eng := sampler.New(sampler.Config{
			ID:           spec.Name,
			Label:        spec.Name,
			PollInterval: cfg.PollInterval,
		}, pool, factory, buf, obs)
		engines = append(engines, engineRun{engine: eng, spec: spec, buf: buf})
	}

	return &Runtime{
		cfg:     cfg,
		runID:   runID,
		pool:    pool,
		factory: factory,
		snk:     snk,
		obs:     obs,
		engines: engines,
		db:      db,
	}, nil
}

// RunID identifies this run across results and logs.
func (r *Runtime) RunID() string { return r.runID }

// Interrupt requests early termination of every active wait loop. It reports
// whether any engine's flag transitioned.
func (r *Runtime) Interrupt() bool {
	any := false
	for _, er := range r.engines {
		if er.engine.Interrupt() {
			any = true
			r.obs.IncCounter("jmeter_interrupts_total", 1)
		}
	}
	return any
}

// Run executes every configured sampler to completion (or until the context
// is cancelled), persists results, and tears the client pool down. Context
// cancellation interrupts active waits; already-started collections finish
// their drain normally.
func (r *Runtime) Run(ctx context.Context) error {
	r.startMetrics()

	r.obs.LogInfo("run_started",
		ports.Field{Key: "run_id", Value: r.runID},
		ports.Field{Key: "samplers", Value: len(r.engines)})

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.Interrupt()
		case <-watchDone:
		}
	}()

	var (
		mu      sync.Mutex
		results []*domain.Result
		wg      sync.WaitGroup
	)
	for _, er := range r.engines {
		wg.Add(1)
		go func(er engineRun) {
			defer wg.Done()
			req := sampler.Request{
				Strategy:      domain.ParseStrategy(er.spec.Strategy),
				ExpectedCount: er.spec.ExpectedCount,
				ReadResponse:  er.spec.ReadResponse,
				Connection:    r.connectionFor(er.spec),
			}
			for i := 0; i < er.spec.Samples; i++ {
				if ctx.Err() != nil {
					return
				}
				res := er.engine.Sample(req)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}(er)
	}
	wg.Wait()
	close(watchDone)

	var errs []error
	if r.snk != nil {
		if err := r.snk.WriteBatch(results); err != nil {
			r.obs.LogError("sink_write_failed", err, ports.Field{Key: "sink", Value: r.snk.Name()})
			errs = append(errs, err)
		}
	}

	r.obs.LogInfo("run_complete",
		ports.Field{Key: "run_id", Value: r.runID},
		ports.Field{Key: "results", Value: len(results)})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Shutdown stops the metrics server, closes every pooled subscription client
// (the run-end hook; individual sample calls never close clients), and
// releases the results database.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		r.metricsSrv = nil
	}

	if err := r.pool.ClearAll(); err != nil {
		errs = append(errs, err)
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
		r.db = nil
	}

	return errors.Join(errs...)
}

func (r *Runtime) connectionFor(spec config.SamplerConfig) ports.ConnectionParams {
	return ports.ConnectionParams{
		URL:              r.cfg.Broker.URL,
		Topic:            spec.Topic,
		SubscriptionName: spec.Subscription,
		Username:         r.cfg.Broker.Username,
		Password:         r.cfg.Broker.Password,
		Token:            r.cfg.Broker.Token,
		OperationTimeout: r.cfg.Broker.OperationTimeout,
		Extras:           r.cfg.Broker.Extras,
	}
}

func (r *Runtime) startMetrics() {
	if r.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordBufferGauge(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordBufferGauge(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			total := 0
			for _, er := range r.engines {
				total += er.buf.Len()
			}
			r.obs.SetGauge("jmeter_buffer_length", float64(total))
		}
	}
}
