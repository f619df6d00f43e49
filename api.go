package jmeter

import (
	base "github.com/H6688chen/jmeter/pkg/jmeter"
)

// Re-exported errors for convenience.
var ErrChannelSinkClosed = base.ErrChannelSinkClosed

// Type aliases so consumers can import github.com/H6688chen/jmeter directly.
type (
	Config             = base.Config
	BrokerConfig       = base.BrokerConfig
	SamplerConfig      = base.SamplerConfig
	ResultsConfig      = base.ResultsConfig
	MetricsConfig      = base.MetricsConfig
	Result             = base.Result
	Message            = base.Message
	Property           = base.Property
	Strategy           = base.Strategy
	Request            = base.Request
	Sampler            = base.Sampler
	ClientPool         = base.ClientPool
	ConnectionParams   = base.ConnectionParams
	MessageHandler     = base.MessageHandler
	CallbackSubscriber = base.CallbackSubscriber
	PullSubscriber     = base.PullSubscriber
	SubscriberFactory  = base.SubscriberFactory
	MessageBuffer      = base.MessageBuffer
	ResultSink         = base.ResultSink
	ResultBatchSink    = base.ResultBatchSink
	Observability      = base.Observability
	Field              = base.Field
	Runtime            = base.Runtime
	RuntimeOption      = base.RuntimeOption
)

// Strategy values.
const (
	StrategyListen  = base.StrategyListen
	StrategyReceive = base.StrategyReceive
)

// ParseStrategy normalizes a configured strategy selector, including the
// legacy textual value.
func ParseStrategy(v string) Strategy {
	return base.ParseStrategy(v)
}

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime construction and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSubscriberFactory(f SubscriberFactory) RuntimeOption {
	return base.WithSubscriberFactory(f)
}

func WithResultSink(s ResultSink) RuntimeOption {
	return base.WithResultSink(s)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Result sinks.
func NewCallbackSink(name string, fn ResultBatchSink) ResultSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (ResultSink, <-chan []*Result, func()) {
	return base.NewChannelSink(name, buffer)
}
