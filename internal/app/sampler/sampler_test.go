package sampler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/H6688chen/jmeter/internal/adapters/queue"
	"github.com/H6688chen/jmeter/internal/domain"
	"github.com/H6688chen/jmeter/internal/ports"
)

type fakeCallbackClient struct {
	mu      sync.Mutex
	handler ports.MessageHandler
	queued  []*domain.Message
	started bool
	closed  bool
}

func (c *fakeCallbackClient) SetHandler(h ports.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *fakeCallbackClient) Start() {
	c.mu.Lock()
	queued := c.queued
	c.queued = nil
	c.started = true
	handler := c.handler
	c.mu.Unlock()

	for _, m := range queued {
		handler(m)
	}
}

func (c *fakeCallbackClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeCallbackClient) deliver(msgs ...*domain.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	for _, m := range msgs {
		handler(m)
	}
}

type fakePullClient struct {
	mu       sync.Mutex
	entries  []*domain.Message // nil entries model empty retrievals
	arrived  int
	expected int
	started  bool
	closed   bool
}

func (c *fakePullClient) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

func (c *fakePullClient) SetExpectedCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expected = n
}

func (c *fakePullClient) ArrivedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.arrived
}

func (c *fakePullClient) Retrieve() (*domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return nil, false
	}
	head := c.entries[0]
	c.entries = c.entries[1:]
	if head == nil {
		return nil, false
	}
	return head, true
}

func (c *fakePullClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeFactory struct {
	mu              sync.Mutex
	callback        *fakeCallbackClient
	pull            *fakePullClient
	err             error
	callbackCreates int
	pullCreates     int
}

func (f *fakeFactory) NewCallbackSubscriber(p ports.ConnectionParams) (ports.CallbackSubscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.callbackCreates++
	return f.callback, nil
}

func (f *fakeFactory) NewPullSubscriber(p ports.ConnectionParams) (ports.PullSubscriber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.pullCreates++
	return f.pull, nil
}

func newTestSampler(f ports.SubscriberFactory) (*Sampler, *ClientPool, *queue.MsgBuffer) {
	pool := NewClientPool()
	buf := queue.NewMsgBuffer()
	s := New(Config{ID: "sampler-1", Label: "subscribe latency"}, pool, f, buf, nil)
	return s, pool, buf
}

func textMsg(text string, props ...domain.Property) *domain.Message {
	return &domain.Message{Kind: domain.KindText, Text: text, Properties: props}
}

func TestListenerCollectsExpectedCount(t *testing.T) {
	client := &fakeCallbackClient{}
	client.queued = []*domain.Message{
		textMsg("one", domain.Property{Name: "a", Value: "1"}),
		textMsg("two", domain.Property{Name: "b", Value: "2"}),
		textMsg("three"),
	}
	s, _, _ := newTestSampler(&fakeFactory{callback: client})

	res := s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 3, ReadResponse: true})

	require.True(t, res.Success)
	require.Equal(t, domain.CodeOK, res.ResponseCode)
	require.Equal(t, 3, res.SampleCount)
	require.Equal(t, "onetwothree", string(res.ResponseData))
	require.Equal(t, "PROPERTY: a=1\nPROPERTY: b=2\n", res.ResponseHeaders)
	require.Equal(t, "3 messages received", res.ResponseMessage)
	require.Equal(t, "3 messages expected", res.SamplerData)
	require.True(t, client.started)
}

func TestListenerDropsNonTextMessages(t *testing.T) {
	client := &fakeCallbackClient{}
	client.queued = []*domain.Message{
		{Kind: domain.KindBytes, Text: "ignored"},
		textMsg("kept"),
	}
	s, _, _ := newTestSampler(&fakeFactory{callback: client})

	res := s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 1, ReadResponse: true})

	require.Equal(t, 1, res.SampleCount)
	require.Equal(t, "kept", string(res.ResponseData))
}

func TestListenerDrainNeverExceedsExpectedCount(t *testing.T) {
	client := &fakeCallbackClient{}
	for i := 0; i < 5; i++ {
		client.queued = append(client.queued, textMsg("m"))
	}
	s, _, buf := newTestSampler(&fakeFactory{callback: client})

	res := s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 3})

	require.Equal(t, 3, res.SampleCount)
	require.Equal(t, 2, buf.Len(), "excess messages stay buffered")

	// The leftovers are visible to the next sample call on the same
	// instance: the buffer is cleared only on client initialization.
	res = s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 2})
	require.Equal(t, 2, res.SampleCount)
	require.Equal(t, 0, buf.Len())
}

func TestListenerReusesPooledClient(t *testing.T) {
	client := &fakeCallbackClient{}
	factory := &fakeFactory{callback: client}
	s, pool, _ := newTestSampler(factory)

	client.queued = []*domain.Message{textMsg("a")}
	_ = s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 1})

	go func() {
		time.Sleep(5 * time.Millisecond)
		client.deliver(textMsg("b"))
	}()
	res := s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 1, ReadResponse: true})

	require.Equal(t, "b", string(res.ResponseData))
	require.Equal(t, 1, factory.callbackCreates, "second call must reuse the pooled client")
	require.Equal(t, 1, pool.Len())
}

func TestListenerInitFailure(t *testing.T) {
	s, _, _ := newTestSampler(&fakeFactory{err: errors.New("naming lookup failed")})

	res := s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 3})

	require.False(t, res.Success)
	require.Equal(t, domain.CodeInitFailure, res.ResponseCode)
	require.Contains(t, res.ResponseMessage, "naming lookup failed")
	require.False(t, res.Start.IsZero())
	require.False(t, res.End.IsZero())
	require.GreaterOrEqual(t, res.End.UnixNano(), res.Start.UnixNano())
	require.Equal(t, 0, res.SampleCount)
}

func TestListenerInterruptTerminatesWait(t *testing.T) {
	client := &fakeCallbackClient{}
	s, _, _ := newTestSampler(&fakeFactory{callback: client})

	done := make(chan *domain.Result, 1)
	go func() {
		done <- s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 10})
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, s.Interrupt(), "first interrupt reports the transition")
	require.False(t, s.Interrupt(), "second interrupt reports already interrupted")

	select {
	case res := <-done:
		require.True(t, res.Success, "interruption is a clean early termination")
		require.Equal(t, 0, res.SampleCount)
	case <-time.After(2 * time.Second):
		t.Fatal("wait loop did not terminate after interrupt")
	}
}

func TestConcurrentInterruptsOnlyOneWins(t *testing.T) {
	s, _, _ := newTestSampler(&fakeFactory{})

	const callers = 8
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			results <- s.Interrupt()
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for won := range results {
		if won {
			wins++
		}
	}
	require.Equal(t, 1, wins)
}

func TestReceiveReportsExpectedCountRegardlessOfEmptyRetrievals(t *testing.T) {
	pull := &fakePullClient{
		entries: []*domain.Message{
			textMsg("one"),
			textMsg("two"),
			nil,
			textMsg("four"),
			nil,
		},
		arrived: 5,
	}
	s, _, _ := newTestSampler(&fakeFactory{pull: pull})

	res := s.Sample(Request{Strategy: domain.StrategyReceive, ExpectedCount: 5, ReadResponse: true})

	require.True(t, res.Success)
	require.Equal(t, 5, res.SampleCount, "receive strategy reports the requested count")
	require.Equal(t, "onetwofour", string(res.ResponseData))
	require.Equal(t, "5 message(s) received successfully", res.ResponseMessage)
	require.Equal(t, 5, pull.expected)
	require.True(t, pull.started)
}

func TestReceiveCreatesClientOnce(t *testing.T) {
	pull := &fakePullClient{arrived: 1, entries: []*domain.Message{textMsg("a"), textMsg("b")}}
	factory := &fakeFactory{pull: pull}
	s, pool, _ := newTestSampler(factory)

	_ = s.Sample(Request{Strategy: domain.StrategyReceive, ExpectedCount: 1})
	_ = s.Sample(Request{Strategy: domain.StrategyReceive, ExpectedCount: 1})

	require.Equal(t, 1, factory.pullCreates)
	require.Equal(t, 1, pool.Len())
}

func TestReceiveInitFailure(t *testing.T) {
	s, _, _ := newTestSampler(&fakeFactory{err: errors.New("broker unreachable")})

	res := s.Sample(Request{Strategy: domain.StrategyReceive, ExpectedCount: 2})

	require.False(t, res.Success)
	require.Equal(t, domain.CodeInitFailure, res.ResponseCode)
	require.Contains(t, res.ResponseMessage, "broker unreachable")
	require.GreaterOrEqual(t, res.End.UnixNano(), res.Start.UnixNano())
}

func TestReceiveByteCountOnlyCapture(t *testing.T) {
	pull := &fakePullClient{arrived: 1, entries: []*domain.Message{textMsg("payload")}}
	s, _, _ := newTestSampler(&fakeFactory{pull: pull})

	res := s.Sample(Request{Strategy: domain.StrategyReceive, ExpectedCount: 1, ReadResponse: false})

	require.Nil(t, res.ResponseData)
	require.Equal(t, len("payload"), res.Bytes)
}

func TestZeroExpectedCountReturnsImmediately(t *testing.T) {
	client := &fakeCallbackClient{}
	s, _, _ := newTestSampler(&fakeFactory{callback: client})

	done := make(chan *domain.Result, 1)
	go func() {
		done <- s.Sample(Request{Strategy: domain.StrategyListen, ExpectedCount: 0})
	}()

	select {
	case res := <-done:
		require.True(t, res.Success)
		require.Equal(t, 0, res.SampleCount)
	case <-time.After(time.Second):
		t.Fatal("zero expected count must not wait")
	}
}
