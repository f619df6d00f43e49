package queue

import (
	"sync"

	"github.com/H6688chen/jmeter/internal/domain"
	"github.com/H6688chen/jmeter/internal/ports"
)

// MsgBuffer is an unbounded in-memory buffer that preserves FIFO ordering.
// The delivery goroutine appends while the measuring goroutine polls; the
// buffer is the only synchronization boundary between them.
type MsgBuffer struct {
	mu   sync.Mutex
	data []*domain.Message
}

func NewMsgBuffer() *MsgBuffer {
	return &MsgBuffer{}
}

// Append adds one message at the tail. It never blocks the producer.
func (b *MsgBuffer) Append(m *domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, m)
}

// Poll removes and returns the head message, or reports false when the
// buffer is empty.
func (b *MsgBuffer) Poll() (*domain.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		return nil, false
	}
	head := b.data[0]
	b.data[0] = nil
	b.data = b.data[1:]
	return head, true
}

func (b *MsgBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Clear drops every buffered message. Called when the listener client is
// (re)initialized, not between sample calls.
func (b *MsgBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
}

var _ ports.MessageBuffer = (*MsgBuffer)(nil)
