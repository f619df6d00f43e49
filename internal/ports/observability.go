package ports

// Observability emits metrics/logs about sample throughput, wait latency,
// and interrupt conditions.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
}

// Field is a structured log field used by Observability implementations.
type Field struct {
	Key   string
	Value any
}
