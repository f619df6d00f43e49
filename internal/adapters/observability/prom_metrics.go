package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/H6688chen/jmeter/internal/ports"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jmeter_samples_total",
		Help: "Total sample calls executed.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jmeter_sample_failures_total",
		Help: "Sample calls that failed during client initialization.",
	})
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jmeter_messages_received_total",
		Help: "Messages drained into sample results.",
	})
	interrupts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jmeter_interrupts_total",
		Help: "Interrupt requests that terminated an active wait.",
	})
	bufferLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jmeter_buffer_length",
		Help: "Messages currently buffered by listener samplers.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jmeter_sample_duration_seconds",
		Help:    "Width of the sample timing window.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	prometheus.MustRegister(samples, failures, received, interrupts, bufferLen, duration)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"jmeter_samples_total":           samples,
			"jmeter_sample_failures_total":   failures,
			"jmeter_messages_received_total": received,
			"jmeter_interrupts_total":        interrupts,
		},
		gauges: map[string]prometheus.Gauge{
			"jmeter_buffer_length": bufferLen,
		},
		histos: map[string]prometheus.Observer{
			"jmeter_sample_duration_seconds": duration,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	log.Printf("INFO: %s%s", msg, renderFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v%s", msg, err, renderFields(fields))
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func renderFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(fmt.Sprintf(" %s=%v", f.Key, f.Value))
	}
	return b.String()
}

var _ ports.Observability = (*PromObs)(nil)
