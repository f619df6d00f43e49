package jmeter

import (
	"github.com/H6688chen/jmeter/internal/app/config"
	"github.com/H6688chen/jmeter/internal/app/sampler"
	"github.com/H6688chen/jmeter/internal/domain"
	"github.com/H6688chen/jmeter/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// BrokerConfig holds connection parameters passed through to client creation.
	BrokerConfig = config.BrokerConfig
	// SamplerConfig describes one configured sampling element.
	SamplerConfig = config.SamplerConfig
	// ResultsConfig configures the results sink.
	ResultsConfig = config.ResultsConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
)

// Result is the outcome of one sample call.
type Result = domain.Result

// Message is one received unit: text payload plus string-rendered properties.
type Message = domain.Message

// Property is a single named value attached to a message.
type Property = domain.Property

// Strategy selects the collection approach for a sampler.
type Strategy = domain.Strategy

const (
	StrategyListen  = domain.StrategyListen
	StrategyReceive = domain.StrategyReceive
)

// ParseStrategy normalizes a configured strategy selector, including the
// legacy textual value.
func ParseStrategy(v string) Strategy {
	return domain.ParseStrategy(v)
}

// Request carries the per-call sample parameters.
type Request = sampler.Request

// Sampler is one sampling engine instance.
type Sampler = sampler.Sampler

// ClientPool keys subscription clients by sampler identity and closes them
// all at run end.
type ClientPool = sampler.ClientPool

type (
	// ConnectionParams is handed opaquely to subscription-client creation.
	ConnectionParams = ports.ConnectionParams
	// MessageHandler receives each inbound message on the delivery goroutine.
	MessageHandler = ports.MessageHandler
	// CallbackSubscriber delivers messages via a registered handler.
	CallbackSubscriber = ports.CallbackSubscriber
	// PullSubscriber retrieves messages on a counted basis.
	PullSubscriber = ports.PullSubscriber
	// SubscriberFactory creates the two subscription-client variants.
	SubscriberFactory = ports.SubscriberFactory
	// MessageBuffer is the FIFO between delivery and measurement.
	MessageBuffer = ports.MessageBuffer
	// ResultSink persists batches of sample results.
	ResultSink = ports.ResultSink
	// Observability emits metrics/logs about sampling.
	Observability = ports.Observability
	// Field is a structured log field.
	Field = ports.Field
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
