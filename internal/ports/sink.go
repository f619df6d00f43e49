package ports

import "github.com/H6688chen/jmeter/internal/domain"

// ResultSink consumes batches of sample results and persists them to any
// downstream system.
type ResultSink interface {
	WriteBatch(results []*domain.Result) error
	Name() string
}
