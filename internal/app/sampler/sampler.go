package sampler

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/H6688chen/jmeter/internal/domain"
	"github.com/H6688chen/jmeter/internal/ports"
)

// DefaultPollInterval is how long the wait loops sleep between condition
// checks. The exact duration is not load-bearing; worst-case latency to
// observe a satisfied condition is one interval.
const DefaultPollInterval = 500 * time.Microsecond

const propertyPrefix = "PROPERTY: "

// Request carries the immutable-for-the-call parameters of one sample.
type Request struct {
	Strategy      domain.Strategy
	ExpectedCount int
	// ReadResponse selects whether the result captures the full payload or
	// only its byte length.
	ReadResponse bool
	Connection   ports.ConnectionParams
}

// Config identifies one sampler instance.
type Config struct {
	// ID is the stable sampler identity used as the pool key.
	ID    string
	Label string
	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

// Sampler measures how long it takes to receive an expected number of
// messages from a topic. One instance serves one configured sampling element;
// its buffer and interrupt flag are private, the pool is shared.
type Sampler struct {
	id      string
	label   string
	poll    time.Duration
	pool    *ClientPool
	factory ports.SubscriberFactory
	buf     ports.MessageBuffer
	obs     ports.Observability

	interrupted atomic.Bool

	// pull is the receive-strategy client; at most one is created per
	// sampler instance across the run.
	pull ports.PullSubscriber
}

func New(cfg Config, pool *ClientPool, factory ports.SubscriberFactory, buf ports.MessageBuffer, obs ports.Observability) *Sampler {
	label := cfg.Label
	if label == "" {
		label = cfg.ID
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if obs == nil {
		obs = nopObs{}
	}
	return &Sampler{
		id:      cfg.ID,
		label:   label,
		poll:    poll,
		pool:    pool,
		factory: factory,
		buf:     buf,
		obs:     obs,
	}
}

// ID returns the sampler identity.
func (s *Sampler) ID() string { return s.id }

// Sample runs one measured collection and reports the outcome. It never
// returns an error: every failure is absorbed into the Result so the harness
// only ever sees a structured outcome.
func (s *Sampler) Sample(req Request) *domain.Result {
	var res *domain.Result
	if req.Strategy == domain.StrategyReceive {
		res = s.sampleWithReceive(req)
	} else {
		res = s.sampleWithListener(req)
	}

	s.obs.IncCounter("jmeter_samples_total", 1)
	if !res.Success {
		s.obs.IncCounter("jmeter_sample_failures_total", 1)
	}
	s.obs.ObserveLatency("jmeter_sample_duration_seconds", res.Duration().Seconds())
	return res
}

// Interrupt requests early termination of any active wait loop. Idempotent;
// it reports whether this call flipped the flag, so only the first
// interrupting caller is told it succeeded. The subscription client stays
// open and already-buffered messages survive for a later sample call.
func (s *Sampler) Interrupt() bool {
	return !s.interrupted.Swap(true)
}

// OnMessage is the delivery target registered with the callback client. It
// runs on the client's delivery goroutine concurrently with the measuring
// goroutine's wait/drain, so it must only touch the buffer and never block.
// Non-text messages are dropped.
func (s *Sampler) OnMessage(msg *domain.Message) {
	if !msg.IsText() {
		return
	}
	s.buf.Append(msg)
}

// sampleWithListener collects up to ExpectedCount messages delivered
// asynchronously via OnMessage. There is no hard timeout: the wait is bounded
// only by arrival or interrupt.
func (s *Sampler) sampleWithListener(req Request) *domain.Result {
	res := domain.NewResult(s.label)
	res.SampleStart()

	if err := s.initListenerClient(req.Connection); err != nil {
		res.SampleEnd()
		res.Fail(domain.CodeInitFailure, err)
		s.obs.LogError("listener_init_failed", err, ports.Field{Key: "sampler", Value: s.id})
		return res
	}

	loop := req.ExpectedCount
	for s.buf.Len() < loop && !s.interrupted.Load() {
		time.Sleep(s.poll)
	}
	res.SampleEnd()

	var body, trace strings.Builder
	read := 0
	for cnt := 0; cnt < loop; cnt++ {
		msg, ok := s.buf.Poll()
		if !ok {
			continue
		}
		read++
		appendMessage(&body, &trace, msg)
	}

	s.setPayload(res, req.ReadResponse, body.String())
	res.ResponseHeaders = trace.String()
	res.Success = true
	res.ResponseCode = domain.CodeOK
	res.ResponseMessage = fmt.Sprintf("%d messages received", read)
	res.SamplerData = fmt.Sprintf("%d messages expected", loop)
	res.SampleCount = read
	s.obs.IncCounter("jmeter_messages_received_total", float64(read))
	return res
}

// sampleWithReceive collects ExpectedCount messages by active retrieval. The
// client counts arrivals on its own; the engine only polls that count.
func (s *Sampler) sampleWithReceive(req Request) *domain.Result {
	res := domain.NewResult(s.label)

	if s.pull == nil {
		if err := s.initReceiveClient(req.Connection); err != nil {
			res.SampleStart()
			res.SampleEnd()
			res.Fail(domain.CodeInitFailure, err)
			s.obs.LogError("receive_init_failed", err, ports.Field{Key: "sampler", Value: s.id})
			return res
		}
		s.pull.Start()
	}

	loop := req.ExpectedCount
	s.pull.SetExpectedCount(loop)

	res.SampleStart()
	for s.pull.ArrivedCount() < loop && !s.interrupted.Load() {
		time.Sleep(s.poll)
	}
	res.SampleEnd()

	var body, trace strings.Builder
	read := 0
	for cnt := 0; cnt < loop; cnt++ {
		msg, ok := s.pull.Retrieve()
		if !ok {
			continue
		}
		read++
		appendMessage(&body, &trace, msg)
	}

	s.setPayload(res, req.ReadResponse, body.String())
	res.ResponseHeaders = trace.String()
	res.Success = true
	res.ResponseCode = domain.CodeOK
	res.ResponseMessage = fmt.Sprintf("%d message(s) received successfully", loop)
	res.SamplerData = fmt.Sprintf("%d messages expected", loop)
	// The reported count is the requested count even when some retrievals
	// came back empty; downstream aggregation relies on it.
	res.SampleCount = loop
	s.obs.IncCounter("jmeter_messages_received_total", float64(read))
	return res
}

// initListenerClient creates the callback client on first use for this
// sampler identity and reuses the pooled one afterwards. The buffer is
// cleared only here, so a slow-draining later call can still see messages
// buffered before it.
func (s *Sampler) initListenerClient(p ports.ConnectionParams) error {
	// Known race: an external Interrupt landing between this reset and the
	// wait loop is lost for the current call.
	s.interrupted.Store(false)

	if c := s.pool.Get(s.id); c != nil {
		if _, ok := c.(ports.CallbackSubscriber); ok {
			return nil
		}
	}

	sub, err := s.factory.NewCallbackSubscriber(p)
	if err != nil {
		return err
	}
	s.buf.Clear()
	sub.SetHandler(s.OnMessage)
	sub.Start()
	s.pool.Register(sub)
	s.pool.Put(s.id, sub)
	s.obs.LogInfo("listener_client_created",
		ports.Field{Key: "sampler", Value: s.id},
		ports.Field{Key: "topic", Value: p.Topic})
	return nil
}

func (s *Sampler) initReceiveClient(p ports.ConnectionParams) error {
	s.interrupted.Store(false)

	sub, err := s.factory.NewPullSubscriber(p)
	if err != nil {
		return err
	}
	s.pull = sub
	s.pool.Register(sub)
	s.obs.LogInfo("receive_client_created",
		ports.Field{Key: "sampler", Value: s.id},
		ports.Field{Key: "topic", Value: p.Topic})
	return nil
}

func (s *Sampler) setPayload(res *domain.Result, readResponse bool, body string) {
	if readResponse {
		res.ResponseData = []byte(body)
	} else {
		res.Bytes = len(body)
	}
}

func appendMessage(body, trace *strings.Builder, msg *domain.Message) {
	body.WriteString(msg.Text)
	for _, prop := range msg.Properties {
		trace.WriteString(propertyPrefix)
		trace.WriteString(prop.Name)
		trace.WriteString("=")
		trace.WriteString(prop.Value)
		trace.WriteString("\n")
	}
}

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) ObserveLatency(string, float64)         {}
func (nopObs) SetGauge(string, float64)               {}
