package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/H6688chen/jmeter/internal/app/sampler"
)

type Config struct {
	Broker       BrokerConfig    `yaml:"broker"`
	Samplers     []SamplerConfig `yaml:"samplers"`
	Results      ResultsConfig   `yaml:"results"`
	Metrics      MetricsConfig   `yaml:"metrics"`
	PollInterval time.Duration   `yaml:"poll_interval"`
}

// BrokerConfig holds the connection parameters passed through opaquely to
// subscription-client creation.
type BrokerConfig struct {
	URL              string            `yaml:"url"`
	Username         string            `yaml:"username"`
	Password         string            `yaml:"password"`
	Token            string            `yaml:"token"`
	OperationTimeout time.Duration     `yaml:"operation_timeout"`
	Extras           map[string]string `yaml:"extras"`
}

// SamplerConfig describes one configured sampling element.
type SamplerConfig struct {
	Name          string `yaml:"name"`
	Topic         string `yaml:"topic"`
	Subscription  string `yaml:"subscription"`
	Strategy      string `yaml:"strategy"`
	ExpectedCount int    `yaml:"expected_count"`
	// Samples is how many sample calls the run executes for this element.
	Samples      int  `yaml:"samples"`
	ReadResponse bool `yaml:"read_response"`
}

type ResultsConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = sampler.DefaultPollInterval
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9102"
	}
	if c.Results.Table == "" {
		c.Results.Table = "sample_results"
	}
	if c.Broker.OperationTimeout <= 0 {
		c.Broker.OperationTimeout = 30 * time.Second
	}
	for i := range c.Samplers {
		s := &c.Samplers[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("sampler-%d", i+1)
		}
		if s.Subscription == "" {
			s.Subscription = s.Name
		}
		if s.ExpectedCount <= 0 {
			s.ExpectedCount = 1
		}
		if s.Samples <= 0 {
			s.Samples = 1
		}
	}
}

func (c *Config) validate() error {
	if c.Broker.URL == "" {
		return fmt.Errorf("broker.url is required")
	}
	if len(c.Samplers) == 0 {
		return fmt.Errorf("at least one sampler must be configured")
	}
	seen := make(map[string]struct{}, len(c.Samplers))
	for _, s := range c.Samplers {
		if s.Topic == "" {
			return fmt.Errorf("sampler %q: topic is required", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("sampler name %q is not unique", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
