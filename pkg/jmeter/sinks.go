package jmeter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/H6688chen/jmeter/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("jmeter: channel sink closed")

// ResultBatchSink is invoked with the batch of results collected by a run.
type ResultBatchSink func([]*Result) error

// NewCallbackSink adapts a ResultBatchSink into a full ResultSink so callers
// can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn ResultBatchSink) ResultSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes result batches via a channel; it returns the sink,
// the read-only channel, and a close function the caller should invoke
// during shutdown.
func NewChannelSink(name string, buffer int) (ResultSink, <-chan []*Result, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []*Result, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   ResultBatchSink
}

func (s *callbackSink) WriteBatch(results []*domain.Result) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(results) == 0 {
		return nil
	}
	return s.fn(results)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []*Result
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteBatch(results []*domain.Result) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(results) == 0 {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- results:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
