package ports

import "github.com/H6688chen/jmeter/internal/domain"

// MessageBuffer is the FIFO the listener strategy appends to from the
// delivery goroutine and the measuring goroutine drains. Appending never
// blocks; insertion order is the only ordering guarantee.
type MessageBuffer interface {
	Append(m *domain.Message)
	Poll() (*domain.Message, bool)
	Len() int
	Clear()
}
