package ports

import (
	"time"

	"github.com/H6688chen/jmeter/internal/domain"
)

// MessageHandler is invoked on the client's delivery goroutine for every
// inbound message. Implementations must not block and must tolerate being
// called concurrently with the measuring goroutine.
type MessageHandler func(msg *domain.Message)

// ConnectionParams carries everything needed to reach a topic. The sampling
// engine passes it through opaquely to client creation.
type ConnectionParams struct {
	URL              string
	Topic            string
	SubscriptionName string
	Username         string
	Password         string
	Token            string
	OperationTimeout time.Duration
	Extras           map[string]string
}

// Subscriber is the capability both client kinds share. The pool tracks
// clients through it so it can close every connection at run end.
type Subscriber interface {
	Close() error
}

// CallbackSubscriber delivers each arriving message to a registered handler.
type CallbackSubscriber interface {
	Subscriber
	SetHandler(h MessageHandler)
	Start()
}

// PullSubscriber retrieves messages on a counted basis. It tracks its own
// running arrival count independently of the sampling engine.
type PullSubscriber interface {
	Subscriber
	Start()
	SetExpectedCount(n int)
	ArrivedCount() int
	Retrieve() (*domain.Message, bool)
}

// SubscriberFactory creates the two client variants. A creation failure is a
// connection error and fails only the sample call that triggered it.
type SubscriberFactory interface {
	NewCallbackSubscriber(p ConnectionParams) (CallbackSubscriber, error)
	NewPullSubscriber(p ConnectionParams) (PullSubscriber, error)
}
