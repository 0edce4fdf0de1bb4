package hub

import (
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/smartbotkit/lwp/pkg/lwp"
)

type PortStatus int

const (
	PortInitializing PortStatus = iota
	PortInitialized
	PortFailure
)

func (s PortStatus) String() string {
	switch s {
	case PortInitializing:
		return "initializing"
	case PortInitialized:
		return "initialized"
	case PortFailure:
		return "failure"
	}
	return "unknown"
}

// PortInformation is the capability summary a port reports during bring-up.
type PortInformation struct {
	Capabilities byte
	ModeCount    byte
	InputModes   lwp.ModeBitmask
	OutputModes  lwp.ModeBitmask
	Combinations []lwp.ModeBitmask
	// combinationsKnown distinguishes "no combinations" from "not asked yet".
	combinationsKnown bool
}

func (i *PortInformation) Combinable() bool {
	return i != nil && i.Capabilities&lwp.PortCapabilityCombinable != 0
}

// PortModeInformation is one mode's metadata, accumulated from separate
// responses. Fields fill in over time and are never removed while the port
// lives; Format stays nil until the value format arrives.
type PortModeInformation struct {
	Name       string
	Symbol     string
	RawMin     float32
	RawMax     float32
	PercentMin float32
	PercentMax float32
	SIMin      float32
	SIMax      float32
	Mapping    [2]byte
	Bias       byte
	Format     *lwp.ValueFormat

	received map[lwp.ModeInfoType]bool
}

// Has reports whether a given piece of metadata has arrived.
func (m *PortModeInformation) Has(t lwp.ModeInfoType) bool {
	return m != nil && m.received[t]
}

type subscription struct {
	mode   byte
	delta  uint32
	notify bool
}

type combinedSubscription struct {
	pairs            []lwp.ModeDataset
	deltas           []uint32
	combinationIndex byte
}

// Port is one logical attachment point on a hub. The hub's port table owns
// its lifetime; the back-reference is non-owning and only used to submit
// requests and surface errors.
type Port struct {
	hub         *Hub
	id          byte
	deviceType  lwp.DeviceType
	hardwareRev lwp.Version
	softwareRev lwp.Version

	mu       sync.Mutex
	status   PortStatus
	err      error
	pending  int
	ready    func(*Port, error)
	info     *PortInformation
	modes    map[byte]*PortModeInformation
	values   []PortValue
	sub      *subscription
	combined *combinedSubscription
}

func newPort(h *Hub, id byte, t lwp.DeviceType, hw, sw lwp.Version) *Port {
	return &Port{
		hub:         h,
		id:          id,
		deviceType:  t,
		hardwareRev: hw,
		softwareRev: sw,
		modes:       make(map[byte]*PortModeInformation),
	}
}

func (p *Port) ID() byte                   { return p.id }
func (p *Port) DeviceType() lwp.DeviceType { return p.deviceType }
func (p *Port) HardwareRev() lwp.Version   { return p.hardwareRev }
func (p *Port) SoftwareRev() lwp.Version   { return p.softwareRev }

func (p *Port) Status() PortStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Err is the bring-up error, set once status is PortFailure.
func (p *Port) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Information returns the capability summary, nil while still unknown.
func (p *Port) Information() *PortInformation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// ModeInformation returns accumulated metadata for one mode.
func (p *Port) ModeInformation(mode byte) (*PortModeInformation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.modes[mode]
	return m, ok
}

// OnReady installs the one-shot bring-up callback. It fires exactly once,
// when the port reaches initialized or failure; if the port is already
// terminal it fires immediately.
func (p *Port) OnReady(fn func(*Port, error)) {
	p.mu.Lock()
	switch p.status {
	case PortInitializing:
		p.ready = fn
		p.mu.Unlock()
	default:
		err := p.err
		p.mu.Unlock()
		fn(p, err)
	}
}

// begin starts the bring-up sequence: one mode-info query whose success
// fans out into combination and per-mode detail queries.
func (p *Port) begin() {
	p.track(&lwp.PortInfoRequest{Port: p.id, Info: lwp.PortInfoModeInfo}, p.onModeInfo)
}

// track issues one bring-up query, counting it in flight until done runs.
func (p *Port) track(req lwp.RequestBody, done Handler) {
	p.mu.Lock()
	p.pending++
	p.mu.Unlock()
	p.hub.Send(req, done)
}

func (p *Port) onModeInfo(resp lwp.ResponseBody, err error) {
	if err != nil {
		p.complete(err)
		return
	}
	u, ok := resp.(*lwp.PortInformationResponse)
	if !ok {
		p.complete(errors.Newf("port %#x: unexpected mode info response", p.id))
		return
	}
	p.applyPortInformation(u)

	p.mu.Lock()
	info := p.info
	var unknownModes []byte
	for _, mode := range info.InputModes.Indices() {
		if _, known := p.modes[mode]; !known {
			unknownModes = append(unknownModes, mode)
		}
	}
	needCombinations := info.Combinable() && !info.combinationsKnown
	p.mu.Unlock()

	// Issue the follow-up wave before releasing this query's slot so the
	// counter cannot touch zero between waves.
	if needCombinations {
		p.track(&lwp.PortInfoRequest{Port: p.id, Info: lwp.PortInfoCombinations}, p.completeQuery)
	}
	for _, mode := range unknownModes {
		for _, q := range p.hub.opts.modeQueries() {
			p.track(&lwp.PortModeInfoRequest{Port: p.id, Mode: mode, Info: q}, p.completeQuery)
		}
	}
	p.complete(nil)
}

func (p *Port) completeQuery(_ lwp.ResponseBody, err error) {
	p.complete(err)
}

// complete retires one in-flight bring-up query. The status machine is
// terminal and non-regressing: the first error wins regardless of queries
// still outstanding, and initialized is reached only when the counter hits
// zero error-free.
func (p *Port) complete(err error) {
	p.mu.Lock()
	p.pending--
	if err != nil && p.status == PortInitializing {
		p.status = PortFailure
		p.err = err
		ready := p.ready
		p.ready = nil
		p.mu.Unlock()
		if ready != nil {
			ready(p, err)
		}
		p.hub.errorSink(errors.Wrapf(err, "port %#x bring-up", p.id))
		p.hub.emit(Event{Kind: PortUpdated, Hub: p.hub, Port: p})
		return
	}
	if p.pending != 0 || p.status != PortInitializing || err != nil {
		p.mu.Unlock()
		return
	}
	p.status = PortInitialized
	ready := p.ready
	p.ready = nil
	p.mu.Unlock()
	if ready != nil {
		ready(p, nil)
	}
	p.hub.emit(Event{Kind: PortUpdated, Hub: p.hub, Port: p})
}

func (p *Port) applyPortInformation(u *lwp.PortInformationResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch u.Info {
	case lwp.PortInfoModeInfo:
		if p.info == nil {
			p.info = &PortInformation{}
		}
		p.info.Capabilities = u.Capabilities
		p.info.ModeCount = u.ModeCount
		p.info.InputModes = u.InputModes
		p.info.OutputModes = u.OutputModes
	case lwp.PortInfoCombinations:
		if p.info == nil {
			p.info = &PortInformation{}
		}
		p.info.Combinations = u.Combinations
		p.info.combinationsKnown = true
	}
}

func (p *Port) modeLocked(mode byte) *PortModeInformation {
	m, ok := p.modes[mode]
	if !ok {
		m = &PortModeInformation{received: make(map[lwp.ModeInfoType]bool)}
		p.modes[mode] = m
	}
	return m
}

func (p *Port) applyModeInformation(u *lwp.PortModeInformationResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.modeLocked(u.Mode)
	switch u.Info {
	case lwp.ModeInfoName:
		m.Name = u.Name
	case lwp.ModeInfoSymbol:
		m.Symbol = u.Symbol
	case lwp.ModeInfoRawRange:
		m.RawMin, m.RawMax = u.Min, u.Max
	case lwp.ModeInfoPercentRange:
		m.PercentMin, m.PercentMax = u.Min, u.Max
	case lwp.ModeInfoSIRange:
		m.SIMin, m.SIMax = u.Min, u.Max
	case lwp.ModeInfoMapping:
		m.Mapping = u.Mapping
	case lwp.ModeInfoMotorBias:
		m.Bias = u.Bias
	case lwp.ModeInfoValueFormat:
		f := u.Format
		m.Format = &f
	}
	m.received[u.Info] = true
}

// AddValue registers a numeric sink. Multiple sinks may share a mode.
func (p *Port) AddValue(v PortValue) {
	p.mu.Lock()
	p.values = append(p.values, v)
	p.mu.Unlock()
}

// Subscribe sets up single-mode value notifications. The port keeps at most
// one subscription record: subscribing replaces it, a notify=false request
// clears it.
func (p *Port) Subscribe(mode byte, delta uint32, notify bool, handler Handler) {
	p.mu.Lock()
	if notify {
		p.sub = &subscription{mode: mode, delta: delta, notify: true}
	} else {
		p.sub = nil
	}
	p.mu.Unlock()
	p.hub.Send(&lwp.InputFormatRequest{Port: p.id, Mode: mode, Delta: delta, Notify: notify}, handler)
}

func (p *Port) applyInputFormat(u *lwp.InputFormatResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.combined != nil {
		// Format echoes during combined setup register deltas only; they
		// must not install a single-mode record.
		return
	}
	if u.Notify {
		p.sub = &subscription{mode: u.Mode, delta: u.Delta, notify: true}
	} else {
		p.sub = nil
	}
}

func (p *Port) applyCombinedFormat(u *lwp.CombinedFormatResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.combined != nil {
		p.combined.combinationIndex = u.CombinationIndex
	}
}

// applySingleValue decodes a single-mode value update. It applies only when
// exactly one subscription is active and that mode's format is resolved;
// any other state drops the update.
func (p *Port) applySingleValue(raw []byte) bool {
	p.mu.Lock()
	sub := p.sub
	if sub == nil {
		p.mu.Unlock()
		return false
	}
	m := p.modes[sub.mode]
	if m == nil || m.Format == nil {
		p.mu.Unlock()
		return false
	}
	format := *m.Format
	sinks := p.sinksLocked(sub.mode)
	p.mu.Unlock()

	applied := false
	for _, v := range sinks {
		if err := v.Update(raw, format); err == nil {
			applied = true
		}
	}
	return applied
}

// applyCombinedValue decodes a combined update. The whole update is dropped
// unless every referenced entry has a resolved format and the decoded byte
// length exactly matches the payload; there is no partial application.
func (p *Port) applyCombinedValue(entries lwp.ModeBitmask, raw []byte) bool {
	p.mu.Lock()
	cs := p.combined
	if cs == nil {
		p.mu.Unlock()
		return false
	}
	type slot struct {
		mode   byte
		format lwp.ValueFormat
		width  int
	}
	var slots []slot
	total := 0
	for _, i := range entries.Indices() {
		if int(i) >= len(cs.pairs) {
			p.mu.Unlock()
			return false
		}
		pair := cs.pairs[i]
		m := p.modes[pair.Mode]
		if m == nil || m.Format == nil {
			p.mu.Unlock()
			return false
		}
		w := m.Format.Type.Size()
		slots = append(slots, slot{
			mode:   pair.Mode,
			format: lwp.ValueFormat{Datasets: 1, Type: m.Format.Type},
			width:  w,
		})
		total += w
	}
	if total != len(raw) {
		p.mu.Unlock()
		return false
	}
	sinks := p.values
	p.mu.Unlock()

	applied := false
	off := 0
	for _, s := range slots {
		chunk := raw[off : off+s.width]
		off += s.width
		for _, v := range sinks {
			if v.Mode() != s.mode {
				continue
			}
			if err := v.Update(chunk, s.format); err == nil {
				applied = true
			}
		}
	}
	return applied
}

func (p *Port) sinksLocked(mode byte) []PortValue {
	var out []PortValue
	for _, v := range p.values {
		if v.Mode() == mode {
			out = append(out, v)
		}
	}
	return out
}

// SubscribeValues sets up a combined-mode subscription over more than one
// value sink. The combination index is resolved by order-independent
// containment against the known combination lists (1-based index of the
// first match); a combinable port with no matching list uses index 0, the
// all-values combination. Sub-request failures surface through the hub
// error sink, not here.
func (p *Port) SubscribeValues(values []PortValue, datasets []byte, deltas []uint32) error {
	if len(values) < 2 {
		return errors.New("combined subscription needs more than one value")
	}
	if len(values) != len(datasets) || len(values) != len(deltas) {
		return errors.New("values, datasets and deltas must have equal length")
	}

	p.mu.Lock()
	info := p.info
	if !info.Combinable() {
		p.mu.Unlock()
		return errors.Newf("port %#x does not support combined modes", p.id)
	}
	var requested lwp.ModeBitmask
	pairs := make([]lwp.ModeDataset, len(values))
	for i, v := range values {
		requested |= lwp.NewModeBitmask(v.Mode())
		pairs[i] = lwp.ModeDataset{Mode: v.Mode(), Dataset: datasets[i]}
	}
	index := byte(0)
	for i, combo := range info.Combinations {
		if combo.Contains(requested) {
			index = byte(i + 1)
			break
		}
	}
	p.combined = &combinedSubscription{
		pairs:            pairs,
		deltas:           append([]uint32(nil), deltas...),
		combinationIndex: index,
	}
	p.sub = nil
	registered := p.values
	p.mu.Unlock()

	for _, v := range values {
		already := false
		for _, r := range registered {
			if r == v {
				already = true
				break
			}
		}
		if !already {
			p.AddValue(v)
		}
	}

	sink := func(stage string) Handler {
		return func(_ lwp.ResponseBody, err error) {
			if err != nil {
				p.hub.errorSink(errors.Wrapf(err, "port %#x combined setup: %s", p.id, stage))
			}
		}
	}
	p.hub.Send(&lwp.CombinedFormatRequest{Port: p.id, Sub: lwp.CombinedFormatLock}, sink("lock"))
	for i, pair := range pairs {
		p.hub.Send(&lwp.InputFormatRequest{
			Port:   p.id,
			Mode:   pair.Mode,
			Delta:  deltas[i],
			Notify: true,
		}, sink("register delta"))
	}
	p.hub.Send(&lwp.CombinedFormatRequest{
		Port:             p.id,
		Sub:              lwp.CombinedFormatSet,
		CombinationIndex: index,
		Pairs:            pairs,
	}, sink("set combination"))
	p.hub.Send(&lwp.CombinedFormatRequest{Port: p.id, Sub: lwp.CombinedFormatUnlockEnabled}, sink("unlock"))
	return nil
}

// UnsubscribeValues clears the combined subscription and resets the port's
// combined-format state.
func (p *Port) UnsubscribeValues() {
	p.mu.Lock()
	p.combined = nil
	p.mu.Unlock()
	p.hub.Send(&lwp.CombinedFormatRequest{Port: p.id, Sub: lwp.CombinedFormatReset}, nil)
}

// StartPower issues a power output command. Flags control execution and
// feedback; pass lwp.OutputFlagFeedback to receive completion through the
// handler.
func (p *Port) StartPower(power int8, flags byte, handler Handler) {
	p.hub.Send(lwp.NewStartPower(p.id, power, flags), handler)
}

// WriteDirect writes raw mode data to the port.
func (p *Port) WriteDirect(mode byte, data []byte, flags byte, handler Handler) {
	p.hub.Send(lwp.NewWriteDirect(p.id, mode, data, flags), handler)
}
