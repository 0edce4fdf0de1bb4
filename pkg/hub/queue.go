package hub

import (
	"sync"
	"time"

	"github.com/efficientgo/core/errors"
	"go.uber.org/zap"

	"github.com/smartbotkit/lwp/pkg/lwp"
)

var (
	// ErrTransportUnavailable fails a request whose queue closed before or
	// while it was in flight.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrResponseTimeout fails a request whose response never arrived within
	// the configured window.
	ErrResponseTimeout = errors.New("response timeout")
)

// Handler receives the outcome of one request: a matched response, or an
// error, never both. It is invoked exactly once, or never if the protocol
// drops the response and no timeout is configured.
type Handler func(lwp.ResponseBody, error)

type requestResult struct {
	resp lwp.ResponseBody
	err  error
}

// pendingRequest is one request's state machine: sent, then completed or
// failed by exactly one of the two event sources (inbound match, transport
// or timeout failure). The 1-buffered result channel carries the single
// resolution.
type pendingRequest struct {
	req     lwp.RequestBody
	handler Handler
	result  chan requestResult
}

// TransmissionQueue serializes requests to one hub. The wire protocol has no
// request ids, so correlation relies on there being at most one request in
// flight: each send blocks the queue goroutine until that request resolves.
type TransmissionQueue struct {
	hubID     byte
	transport Transport
	timeout   time.Duration
	log       *zap.Logger

	mu      sync.Mutex
	current *pendingRequest

	sendCh    chan *pendingRequest
	closed    chan struct{}
	closeOnce sync.Once
}

func NewTransmissionQueue(hubID byte, t Transport, timeout time.Duration, depth int, log *zap.Logger) *TransmissionQueue {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	if log == nil {
		log = zap.L()
	}
	q := &TransmissionQueue{
		hubID:     hubID,
		transport: t,
		timeout:   timeout,
		log:       log,
		sendCh:    make(chan *pendingRequest, depth),
		closed:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Send enqueues req. Requests transmit and resolve strictly in submission
// order; handler may be nil for fire-and-forget use.
func (q *TransmissionQueue) Send(req lwp.RequestBody, handler Handler) {
	p := &pendingRequest{
		req:     req,
		handler: handler,
		result:  make(chan requestResult, 1),
	}
	// Closed wins over a free buffer slot: after Close nothing drains the
	// channel, so an enqueue there would never resolve.
	select {
	case <-q.closed:
		q.finish(p, nil, ErrTransportUnavailable)
		return
	default:
	}
	select {
	case <-q.closed:
		q.finish(p, nil, ErrTransportUnavailable)
	case q.sendCh <- p:
	}
}

// HandleResponse offers a decoded inbound body to the in-flight request. It
// reports whether the body was consumed as that request's response.
func (q *TransmissionQueue) HandleResponse(resp lwp.ResponseBody) bool {
	q.mu.Lock()
	p := q.current
	if p == nil || !p.req.Matches(resp) {
		q.mu.Unlock()
		return false
	}
	q.current = nil
	q.mu.Unlock()
	p.result <- requestResult{resp: resp}
	return true
}

// Close fails the in-flight request and everything still queued with
// ErrTransportUnavailable. It does not close the transport.
func (q *TransmissionQueue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

func (q *TransmissionQueue) run() {
	for {
		select {
		case <-q.closed:
			q.drain()
			return
		case p := <-q.sendCh:
			select {
			case <-q.closed:
				q.finish(p, nil, ErrTransportUnavailable)
			default:
				q.transmit(p)
			}
		}
	}
}

func (q *TransmissionQueue) transmit(p *pendingRequest) {
	frame, err := lwp.Encode(q.hubID, p.req)
	if err != nil {
		q.finish(p, nil, errors.Wrap(err, "encode request"))
		return
	}
	expects := p.req.ExpectsResponse()
	if expects {
		// Arm correlation before the write lands so a response racing the
		// write completion still matches.
		q.mu.Lock()
		q.current = p
		q.mu.Unlock()
	}
	if err := q.transport.Write(frame); err != nil {
		if !expects || q.clearCurrent(p) {
			q.finish(p, nil, errors.Wrap(err, "transmit"))
			return
		}
		// A response claimed the request before the failure surfaced; the
		// match wins.
		r := <-p.result
		q.finish(p, r.resp, r.err)
		return
	}
	if !expects {
		q.finish(p, nil, nil)
		return
	}

	var expiry <-chan time.Time
	if q.timeout > 0 {
		timer := time.NewTimer(q.timeout)
		defer timer.Stop()
		expiry = timer.C
	}
	select {
	case r := <-p.result:
		q.finish(p, r.resp, r.err)
	case <-expiry:
		if q.clearCurrent(p) {
			q.finish(p, nil, ErrResponseTimeout)
			return
		}
		r := <-p.result
		q.finish(p, r.resp, r.err)
	case <-q.closed:
		if q.clearCurrent(p) {
			q.finish(p, nil, ErrTransportUnavailable)
			return
		}
		r := <-p.result
		q.finish(p, r.resp, r.err)
	}
}

// clearCurrent removes p from the current slot. A false return means an
// inbound match already claimed it, and its result channel holds the
// response.
func (q *TransmissionQueue) clearCurrent(p *pendingRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != p {
		return false
	}
	q.current = nil
	return true
}

func (q *TransmissionQueue) finish(p *pendingRequest, resp lwp.ResponseBody, err error) {
	if err != nil {
		q.log.Debug("request failed",
			zap.Uint8("type", uint8(p.req.MessageType())), zap.Error(err))
	}
	if p.handler == nil {
		return
	}
	// Handlers run off the queue goroutine so they can submit follow-up
	// requests without deadlocking the serializer.
	go p.handler(resp, err)
}

func (q *TransmissionQueue) drain() {
	for {
		select {
		case p := <-q.sendCh:
			q.finish(p, nil, ErrTransportUnavailable)
		default:
			return
		}
	}
}
