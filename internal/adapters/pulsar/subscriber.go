package pulsar

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/H6688chen/jmeter/internal/adapters/queue"
	"github.com/H6688chen/jmeter/internal/domain"
	"github.com/H6688chen/jmeter/internal/ports"
)

const defaultReceivePause = time.Millisecond

// Factory creates subscription clients backed by Apache Pulsar. Each client
// owns its own broker connection; the client pool decides when connections
// are closed.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) NewCallbackSubscriber(p ports.ConnectionParams) (ports.CallbackSubscriber, error) {
	client, consumer, err := connect(p)
	if err != nil {
		return nil, err
	}
	return &callbackSubscriber{client: client, consumer: consumer}, nil
}

func (f *Factory) NewPullSubscriber(p ports.ConnectionParams) (ports.PullSubscriber, error) {
	client, consumer, err := connect(p)
	if err != nil {
		return nil, err
	}
	return &pullSubscriber{
		client:   client,
		consumer: consumer,
		buf:      queue.NewMsgBuffer(),
	}, nil
}

func connect(p ports.ConnectionParams) (pulsar.Client, pulsar.Consumer, error) {
	opts := pulsar.ClientOptions{
		URL:               p.URL,
		OperationTimeout:  p.OperationTimeout,
		ConnectionTimeout: p.OperationTimeout,
	}

	switch {
	case p.Token != "":
		opts.Authentication = pulsar.NewAuthenticationToken(p.Token)
	case p.Username != "":
		auth, err := pulsar.NewAuthenticationBasic(p.Username, p.Password)
		if err != nil {
			return nil, nil, fmt.Errorf("pulsar basic auth: %w", err)
		}
		opts.Authentication = auth
	}

	client, err := pulsar.NewClient(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("pulsar new client: %w", err)
	}

	subscription := p.SubscriptionName
	if subscription == "" {
		subscription = "jmeter-subscriber"
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:                       p.Topic,
		SubscriptionName:            subscription,
		Type:                        pulsar.Exclusive,
		SubscriptionInitialPosition: pulsar.SubscriptionPositionLatest,
	})
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("pulsar subscribe %q: %w", p.Topic, err)
	}

	return client, consumer, nil
}

// callbackSubscriber pumps every inbound message into the registered handler
// on a dedicated delivery goroutine.
type callbackSubscriber struct {
	client   pulsar.Client
	consumer pulsar.Consumer

	mu      sync.Mutex
	handler ports.MessageHandler
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func (c *callbackSubscriber) SetHandler(h ports.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *callbackSubscriber) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.started = true
	go c.pump(ctx)
}

func (c *callbackSubscriber) pump(ctx context.Context) {
	defer close(c.done)
	for {
		msg, err := c.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("pulsar: receive failed: %v", err)
			return
		}
		c.consumer.Ack(msg)

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(newMessage(msg.Payload(), msg.Properties()))
		}
	}
}

func (c *callbackSubscriber) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.started = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.consumer.Close()
	c.client.Close()
	return nil
}

// pullSubscriber receives into an internal buffer and counts arrivals on its
// own; the sampling engine polls ArrivedCount and retrieves one message at a
// time. Reception pauses once the expected count for the current call has
// arrived so the buffer stays bounded by what the engine asked for.
type pullSubscriber struct {
	client   pulsar.Client
	consumer pulsar.Consumer
	buf      *queue.MsgBuffer

	arrived  atomic.Int64
	expected atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func (c *pullSubscriber) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.started = true
	go c.pump(ctx)
}

// SetExpectedCount announces how many messages the next sample call waits
// for. Messages still buffered from an earlier call count toward the new
// target.
func (c *pullSubscriber) SetExpectedCount(n int) {
	c.expected.Store(int64(n))
	c.arrived.Store(int64(c.buf.Len()))
}

func (c *pullSubscriber) ArrivedCount() int {
	return int(c.arrived.Load())
}

func (c *pullSubscriber) Retrieve() (*domain.Message, bool) {
	return c.buf.Poll()
}

func (c *pullSubscriber) pump(ctx context.Context) {
	defer close(c.done)
	for {
		if ctx.Err() != nil {
			return
		}
		if c.arrived.Load() >= c.expected.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(defaultReceivePause):
			}
			continue
		}

		msg, err := c.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("pulsar: receive failed: %v", err)
			return
		}
		c.consumer.Ack(msg)
		c.buf.Append(newMessage(msg.Payload(), msg.Properties()))
		c.arrived.Add(1)
	}
}

func (c *pullSubscriber) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.started = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.consumer.Close()
	c.client.Close()
	return nil
}

// newMessage converts a raw payload and its properties into a domain record.
// Pulsar property maps have no iteration order, so names are sorted to keep
// the property trace stable.
func newMessage(payload []byte, props map[string]string) *domain.Message {
	kind := domain.KindBytes
	var text string
	if utf8.Valid(payload) {
		kind = domain.KindText
		text = string(payload)
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	properties := make([]domain.Property, 0, len(names))
	for _, name := range names {
		properties = append(properties, domain.Property{Name: name, Value: props[name]})
	}

	return &domain.Message{Kind: kind, Text: text, Properties: properties}
}

var (
	_ ports.SubscriberFactory  = (*Factory)(nil)
	_ ports.CallbackSubscriber = (*callbackSubscriber)(nil)
	_ ports.PullSubscriber     = (*pullSubscriber)(nil)
)
