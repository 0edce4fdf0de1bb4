package hub

import (
	"sync"

	"github.com/efficientgo/core/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartbotkit/lwp/pkg/lwp"
)

type EventKind int

const (
	PortAttached EventKind = iota
	PortDetached
	PortUpdated
)

// Event announces a change in a hub's port table or a port's state.
type Event struct {
	Kind EventKind
	Hub  *Hub
	Port *Port
}

// Hub owns the port table and the transmission queue for one physical hub.
// Inbound frames enter through Receive; the port table is mutated only from
// that path.
type Hub struct {
	deviceID  string
	hubID     byte
	transport Transport
	queue     *TransmissionQueue
	opts      Options
	log       *zap.Logger
	decoder   lwp.Decoder

	mu         sync.Mutex
	ports      map[byte]*Port
	virtuals   map[byte]*VirtualPort
	properties map[lwp.HubProperty]*lwp.PropertyUpdateResponse
	alerts     map[lwp.AlertType]bool
	listeners  map[string]func(Event)
	onError    func(error)
}

func NewHub(deviceID string, transport Transport, opts Options) *Hub {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	log = log.With(zap.String("hub", deviceID))
	return &Hub{
		deviceID:   deviceID,
		hubID:      opts.HubID,
		transport:  transport,
		queue:      NewTransmissionQueue(opts.HubID, transport, opts.ResponseTimeout, opts.QueueDepth, log),
		opts:       opts,
		log:        log,
		ports:      make(map[byte]*Port),
		virtuals:   make(map[byte]*VirtualPort),
		properties: make(map[lwp.HubProperty]*lwp.PropertyUpdateResponse),
		alerts:     make(map[lwp.AlertType]bool),
		listeners:  make(map[string]func(Event)),
	}
}

func (h *Hub) DeviceID() string { return h.deviceID }
func (h *Hub) HubID() byte      { return h.hubID }

// Start applies the stale virtual port workaround and requests the base hub
// properties. Some firmware keeps a virtual port alive across reconnects and
// never re-announces it; disconnecting it up front is the only way to get it
// announced again, and the request failing on a clean hub is expected.
func (h *Hub) Start() {
	if id := h.opts.StaleVirtualPortID; id != 0 {
		h.queue.Send(&lwp.VirtualPortRequest{Connect: false, PortA: id}, func(_ lwp.ResponseBody, err error) {
			if err != nil {
				h.log.Debug("stale virtual port disconnect ignored", zap.Error(err))
			}
		})
	}
	for _, p := range []lwp.HubProperty{
		lwp.PropertyAdvertisingName,
		lwp.PropertyFirmwareVersion,
		lwp.PropertyBatteryVoltage,
	} {
		h.RequestProperty(p, nil)
	}
}

// Close tears down the queue and the transport. Pending requests fail with
// ErrTransportUnavailable.
func (h *Hub) Close() error {
	h.queue.Close()
	return h.transport.Close()
}

// Send submits a request; the handler sees exactly one resolution.
func (h *Hub) Send(req lwp.RequestBody, handler Handler) {
	h.queue.Send(req, handler)
}

// Receive feeds raw notification bytes into the engine. Chunks may fragment
// or coalesce frames arbitrarily. Each decoded message updates the port
// model first and is then offered to the in-flight request. Receive is not
// safe for concurrent use; notification callbacks arrive on one goroutine.
func (h *Hub) Receive(p []byte) {
	for _, r := range h.decoder.Decode(p) {
		if r.HubID != h.hubID {
			h.log.Debug("frame for other hub id", zap.Uint8("id", r.HubID))
		}
		h.dispatch(r)
		h.queue.HandleResponse(r.Body)
	}
}

// OnError installs the hub-level sink for failures not tied to a caller:
// bring-up query errors, combined-subscription sub-request errors, protocol
// invariant violations.
func (h *Hub) OnError(fn func(error)) {
	h.mu.Lock()
	h.onError = fn
	h.mu.Unlock()
}

// OnEvent registers a port event listener and returns its registration id.
func (h *Hub) OnEvent(fn func(Event)) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.listeners[id] = fn
	h.mu.Unlock()
	return id
}

func (h *Hub) RemoveListener(id string) {
	h.mu.Lock()
	delete(h.listeners, id)
	h.mu.Unlock()
}

func (h *Hub) emit(e Event) {
	h.mu.Lock()
	fns := make([]func(Event), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

func (h *Hub) errorSink(err error) {
	h.mu.Lock()
	fn := h.onError
	h.mu.Unlock()
	if fn != nil {
		fn(err)
		return
	}
	h.log.Warn("unhandled hub error", zap.Error(err))
}

// Port returns the port registered under id.
func (h *Hub) Port(id byte) (*Port, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.ports[id]
	return p, ok
}

// Ports returns the registered ports in unspecified order.
func (h *Hub) Ports() []*Port {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Port, 0, len(h.ports))
	for _, p := range h.ports {
		out = append(out, p)
	}
	return out
}

// VirtualPort returns the virtual port registered under id.
func (h *Hub) VirtualPort(id byte) (*VirtualPort, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.virtuals[id]
	return v, ok
}

// ConnectVirtual asks the hub to combine two already-attached ports into a
// virtual port. The new port announces itself through an attach event.
func (h *Hub) ConnectVirtual(portA, portB byte, handler Handler) {
	h.Send(&lwp.VirtualPortRequest{Connect: true, PortA: portA, PortB: portB}, handler)
}

func (h *Hub) RequestProperty(p lwp.HubProperty, handler Handler) {
	h.Send(&lwp.PropertyRequest{Property: p, Operation: lwp.PropertyOperationRequestUpdate}, handler)
}

func (h *Hub) EnablePropertyUpdates(p lwp.HubProperty, handler Handler) {
	h.Send(&lwp.PropertyRequest{Property: p, Operation: lwp.PropertyOperationEnableUpdates}, handler)
}

func (h *Hub) SendAction(a lwp.HubAction, handler Handler) {
	h.Send(&lwp.ActionRequest{Action: a}, handler)
}

func (h *Hub) EnableAlert(a lwp.AlertType, handler Handler) {
	h.Send(&lwp.AlertRequest{Alert: a, Operation: lwp.AlertOperationEnableUpdates}, handler)
}

func (h *Hub) RequestAlert(a lwp.AlertType, handler Handler) {
	h.Send(&lwp.AlertRequest{Alert: a, Operation: lwp.AlertOperationRequestUpdate}, handler)
}

// Property returns the cached value of a hub property, if one arrived.
func (h *Hub) Property(p lwp.HubProperty) (*lwp.PropertyUpdateResponse, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, ok := h.properties[p]
	return u, ok
}

// Name is the cached advertising name, empty until reported.
func (h *Hub) Name() string {
	if u, ok := h.Property(lwp.PropertyAdvertisingName); ok {
		return u.Text()
	}
	return ""
}

// FirmwareVersion is the cached firmware version.
func (h *Hub) FirmwareVersion() (lwp.Version, bool) {
	u, ok := h.Property(lwp.PropertyFirmwareVersion)
	if !ok {
		return lwp.Version{}, false
	}
	v, err := u.Version()
	if err != nil {
		return lwp.Version{}, false
	}
	return v, true
}

// BatteryLevel is the cached battery percentage.
func (h *Hub) BatteryLevel() (byte, bool) {
	u, ok := h.Property(lwp.PropertyBatteryVoltage)
	if !ok || len(u.Payload) < 1 {
		return 0, false
	}
	return u.Payload[0], true
}

// RSSI is the cached signal strength.
func (h *Hub) RSSI() (int8, bool) {
	u, ok := h.Property(lwp.PropertyRSSI)
	if !ok || len(u.Payload) < 1 {
		return 0, false
	}
	return int8(u.Payload[0]), true
}

// AlertRaised reports the last known state of one alert condition.
func (h *Hub) AlertRaised(a lwp.AlertType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alerts[a]
}

func (h *Hub) dispatch(r *lwp.Response) {
	switch body := r.Body.(type) {
	case *lwp.AttachedIOResponse:
		h.handleAttachedIO(body)
	case *lwp.PropertyUpdateResponse:
		h.mu.Lock()
		h.properties[body.Property] = body
		h.mu.Unlock()
	case *lwp.AlertResponse:
		h.mu.Lock()
		h.alerts[body.Alert] = body.Raised()
		h.mu.Unlock()
		if body.Raised() {
			h.log.Warn("hub alert raised", zap.Uint8("alert", uint8(body.Alert)))
		}
	case *lwp.PortInformationResponse:
		if p, ok := h.Port(body.Port); ok {
			p.applyPortInformation(body)
		}
	case *lwp.PortModeInformationResponse:
		if p, ok := h.Port(body.Port); ok {
			p.applyModeInformation(body)
		}
	case *lwp.InputFormatResponse:
		if p, ok := h.Port(body.Port); ok {
			p.applyInputFormat(body)
		}
	case *lwp.CombinedFormatResponse:
		if p, ok := h.Port(body.Port); ok {
			p.applyCombinedFormat(body)
		}
	case *lwp.PortValueSingleResponse:
		if p, ok := h.Port(body.Port); ok && p.applySingleValue(body.Payload) {
			h.emit(Event{Kind: PortUpdated, Hub: h, Port: p})
		}
	case *lwp.PortValueCombinedResponse:
		if p, ok := h.Port(body.Port); ok && p.applyCombinedValue(body.Entries, body.Payload) {
			h.emit(Event{Kind: PortUpdated, Hub: h, Port: p})
		}
	case *lwp.CommandFeedbackResponse:
		if !body.OK() {
			h.log.Debug("negative command feedback",
				zap.Uint8("command", uint8(body.Command)), zap.String("code", body.Code.String()))
		}
	case *lwp.UnknownResponse:
		h.log.Debug("unmodeled frame", zap.Uint8("type", uint8(body.Type)))
	}
}

func (h *Hub) handleAttachedIO(e *lwp.AttachedIOResponse) {
	switch e.Event {
	case lwp.IOEventAttached:
		p := newPort(h, e.Port, e.IOType, e.HardwareRev, e.SoftwareRev)
		h.mu.Lock()
		if _, dup := h.ports[e.Port]; dup {
			h.log.Warn("attach for occupied port, replacing", zap.Uint8("port", e.Port))
		}
		h.ports[e.Port] = p
		h.mu.Unlock()
		h.emit(Event{Kind: PortAttached, Hub: h, Port: p})
		p.begin()

	case lwp.IOEventAttachedVirtual:
		h.mu.Lock()
		a, okA := h.ports[e.PortA]
		b, okB := h.ports[e.PortB]
		h.mu.Unlock()
		if !okA || !okB {
			h.errorSink(errors.Newf("virtual port %#x references unregistered ports %#x/%#x",
				e.Port, e.PortA, e.PortB))
			return
		}
		v := newVirtualPort(h, e.Port, e.IOType, a, b)
		h.mu.Lock()
		h.ports[e.Port] = v.Port
		h.virtuals[e.Port] = v
		h.mu.Unlock()
		h.emit(Event{Kind: PortAttached, Hub: h, Port: v.Port})
		v.begin()

	case lwp.IOEventDetached:
		h.mu.Lock()
		p, ok := h.ports[e.Port]
		delete(h.ports, e.Port)
		delete(h.virtuals, e.Port)
		h.mu.Unlock()
		if ok {
			h.emit(Event{Kind: PortDetached, Hub: h, Port: p})
		}
	}
}
