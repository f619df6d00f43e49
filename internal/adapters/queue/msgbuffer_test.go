package queue

import (
	"sync"
	"testing"

	"github.com/H6688chen/jmeter/internal/domain"
)

func TestMsgBufferAppendPollOrder(t *testing.T) {
	b := NewMsgBuffer()

	b.Append(&domain.Message{Text: "first"})
	b.Append(&domain.Message{Text: "second"})

	if b.Len() != 2 {
		t.Fatalf("expected len 2, got %d", b.Len())
	}

	m, ok := b.Poll()
	if !ok || m.Text != "first" {
		t.Fatalf("unexpected head: %+v ok=%v", m, ok)
	}
	m, ok = b.Poll()
	if !ok || m.Text != "second" {
		t.Fatalf("unexpected second: %+v ok=%v", m, ok)
	}
	if _, ok := b.Poll(); ok {
		t.Fatalf("poll on empty buffer should report false")
	}
}

func TestMsgBufferClear(t *testing.T) {
	b := NewMsgBuffer()
	b.Append(&domain.Message{Text: "stale"})
	b.Clear()

	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after clear, got %d", b.Len())
	}
	if _, ok := b.Poll(); ok {
		t.Fatalf("cleared buffer should not yield messages")
	}
}

func TestMsgBufferConcurrentProducers(t *testing.T) {
	b := NewMsgBuffer()

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				b.Append(&domain.Message{Text: "m"})
			}
		}()
	}
	wg.Wait()

	if got := b.Len(); got != producers*perProducer {
		t.Fatalf("expected %d buffered messages, got %d", producers*perProducer, got)
	}
}
