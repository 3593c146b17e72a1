package sctp

import (
	"fmt"

	"github.com/pion/randutil"
	"github.com/sansio/rtc/pkg/rtcerr"
	"github.com/sansio/rtc/transport"
)

// RFC 4960 §7.2.1's per-path default (Path.Max.Retrans) and §15's
// Max.Init.Retransmits default, the retry caps for the steady-state
// T3-RTX and handshake T1-Init timers respectively.
const (
	maxDataRetransmits = 5
	maxInitRetransmits = 8
)

// AssociationState is the SCTP association state (RFC 4960 §4).
type AssociationState int

const (
	StateClosed AssociationState = iota
	StateCookieWait
	StateCookieEchoed
	StateEstablished
	StateShutdownPending
	StateShutdownSent
	StateShutdownReceived
	StateShutdownAckSent
)

func (s AssociationState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateCookieWait:
		return "CookieWait"
	case StateCookieEchoed:
		return "CookieEchoed"
	case StateEstablished:
		return "Established"
	case StateShutdownPending:
		return "ShutdownPending"
	case StateShutdownSent:
		return "ShutdownSent"
	case StateShutdownReceived:
		return "ShutdownReceived"
	case StateShutdownAckSent:
		return "ShutdownAckSent"
	default:
		return "Unknown"
	}
}

// Config configures a new Association (spec §4.5 "Configuration").
type Config struct {
	OutboundStreams uint16
	InboundStreams  uint16

	// MaxShutdownRetransmits caps T2-Shutdown retries before the
	// association is torn down uncleanly (DESIGN.md Open Question 2;
	// RFC 4960 leaves this to implementations).
	MaxShutdownRetransmits int

	InitialRTO int64 // nanoseconds
	MinRTO     int64
	MaxRTO     int64

	// MaxMessageSize bounds the payload SendMessage accepts (SettingEngine
	// .SetSCTPMaxMessageSize, spec §5 "Backpressure"). Zero means
	// unlimited; DCEP control messages (OpenDataChannel/AcceptDataChannel)
	// are exempt since they aren't application writes.
	MaxMessageSize int
}

func (c Config) withDefaults() Config {
	if c.OutboundStreams == 0 {
		c.OutboundStreams = 65535
	}
	if c.InboundStreams == 0 {
		c.InboundStreams = 65535
	}
	if c.MaxShutdownRetransmits == 0 {
		c.MaxShutdownRetransmits = 5
	}
	if c.InitialRTO == 0 {
		c.InitialRTO = int64(3e9)
	}
	if c.MinRTO == 0 {
		c.MinRTO = int64(1e9)
	}
	if c.MaxRTO == 0 {
		c.MaxRTO = int64(60e9)
	}
	return c
}

// RTOManager tracks smoothed RTT / RTT variance and the current
// retransmission timeout, per RFC 4960 §6.3.1 (α=1/8, β=1/4).
type RTOManager struct {
	srtt, rttvar, rto int64
	cfg               Config
	hasSample         bool
}

func newRTOManager(cfg Config) *RTOManager {
	return &RTOManager{rto: cfg.InitialRTO, cfg: cfg}
}

// Update feeds one new RTT sample (nanoseconds) into the RTO estimator.
func (m *RTOManager) Update(rttSample int64) {
	if !m.hasSample {
		m.srtt = rttSample
		m.rttvar = rttSample / 2
		m.hasSample = true
	} else {
		diff := m.srtt - rttSample
		if diff < 0 {
			diff = -diff
		}
		m.rttvar = m.rttvar - m.rttvar/4 + diff/4
		m.srtt = m.srtt - m.srtt/8 + rttSample/8
	}
	m.rto = m.srtt + 4*m.rttvar
	if m.rto < m.cfg.MinRTO {
		m.rto = m.cfg.MinRTO
	}
	if m.rto > m.cfg.MaxRTO {
		m.rto = m.cfg.MaxRTO
	}
}

// RTO returns the current retransmission timeout.
func (m *RTOManager) RTO() int64 { return m.rto }

// Backoff doubles the current RTO without touching srtt/rttvar (RFC 4960
// §6.3.3 E2): a retransmission timeout is not a fresh RTT sample, so the
// exponential backoff operates on rto directly rather than re-deriving it
// from the smoothed estimators.
func (m *RTOManager) Backoff() {
	m.rto *= 2
	if m.rto > m.cfg.MaxRTO {
		m.rto = m.cfg.MaxRTO
	}
}

// Stream is one SCTP stream's send/receive sequence state (spec §4.5
// "Stream table").
type Stream struct {
	ID              uint16
	nextSendSeq     uint16
	nextExpectedSeq uint16
	Label           string
	Reliable        bool
	Ordered         bool
	Open            bool
}

// EventKind enumerates the outward-facing SCTP association events
// (spec §4.5 "Events").
type EventKind int

const (
	EventAssociationEstablished EventKind = iota
	EventStreamMessage
	EventStreamClosed
	EventAssociationClosed
)

type Event struct {
	Kind     EventKind
	StreamID uint16
	PPID     uint32
	Payload  []byte

	// Err carries the classified reason for an EventAssociationClosed
	// raised by timer exhaustion (spec §7 TimeoutError), nil for a clean
	// shutdown or peer-initiated ABORT.
	Err error
}

// outstandingChunk is one sent-but-not-yet-cumulatively-acked DATA chunk,
// kept so T3-RTX can resend it and so a SACK that covers it can produce an
// RTT sample (RFC 4960 §6.3.1/§6.3.2).
type outstandingChunk struct {
	tsn           uint32
	streamID      uint16
	streamSeq     uint16
	ppid          uint32
	payload       []byte
	flags         byte
	sentAt        int64
	retransmitted bool
}

func (oc *outstandingChunk) encode() Chunk {
	return EncodeDataChunk(DataChunk{
		TSN:       oc.tsn,
		StreamID:  oc.streamID,
		StreamSeq: oc.streamSeq,
		PPID:      oc.ppid,
		Payload:   oc.payload,
		Flags:     oc.flags,
	})
}

// Association is a sans-I/O SCTP association (spec §4.5, §4.8): the
// four-way handshake, a stream table, DATA/SACK exchange, and an RTO
// manager, driven by handle_read/poll_write/handle_timeout/poll_event.
type Association struct {
	cfg   Config
	state AssociationState

	localVerificationTag  uint32
	remoteVerificationTag uint32
	localInitialTSN       uint32
	remoteInitialTSN      uint32

	localTSN  uint32 // next TSN to assign
	cumAckTSN uint32 // highest contiguous TSN received
	recvTSNs  map[uint32]DataChunk

	streams map[uint16]*Stream

	rto *RTOManager

	// cookie is the State Cookie echoed back from the peer's INIT-ACK,
	// kept so a T1-Init expiry in StateCookieEchoed can resend the same
	// COOKIE-ECHO rather than restart the handshake.
	cookie []byte

	// outstanding holds DATA chunks sent but not yet covered by a SACK's
	// CumulativeTSNAck, in TSN order, for T3-RTX retransmission and RTT
	// sampling.
	outstanding []*outstandingChunk

	writes []transport.Raw
	events []Event

	t1InitDue      int64
	t1InitAttempts int
	t2ShutdownDue  int64
	t2Attempts     int
	t3RtxDue       int64
	t3Attempts     int

	tuple transport.Tuple

	closed bool
}

// NewAssociation constructs an Association in StateClosed; call
// Associate to begin the client-side handshake, or wait for an inbound
// INIT to act as the server side.
func NewAssociation(cfg Config) (*Association, error) {
	cfg = cfg.withDefaults()
	tag, err := randutil.NewMathRandomGenerator().Uint32()
	if err != nil {
		return nil, err
	}
	tsn, err := randutil.NewMathRandomGenerator().Uint32()
	if err != nil {
		return nil, err
	}
	return &Association{
		cfg:                  cfg,
		localVerificationTag: tag,
		localInitialTSN:      tsn,
		localTSN:             tsn,
		recvTSNs:             make(map[uint32]DataChunk),
		streams:              make(map[uint16]*Stream),
		rto:                  newRTOManager(cfg),
	}, nil
}

// Associate sends the initial INIT chunk (RFC 4960 §5.1).
func (a *Association) Associate(now int64, peer transport.Tuple) error {
	a.tuple = peer
	a.state = StateCookieWait
	init := EncodeInitChunk(ChunkTypeInit, InitChunk{
		InitiateTag:     a.localVerificationTag,
		ARWND:           1 << 20,
		OutboundStreams: a.cfg.OutboundStreams,
		InboundStreams:  a.cfg.InboundStreams,
		InitialTSN:      a.localInitialTSN,
	})
	a.sendPacket(now, 0, []Chunk{init})
	a.t1InitDue = now + a.rto.RTO()
	return nil
}

func (a *Association) sendPacket(now int64, vtag uint32, chunks []Chunk) {
	var body []byte
	for _, c := range chunks {
		body = append(body, EncodeChunk(c)...)
	}
	raw := EncodePacket(CommonHeader{VerificationTag: vtag}, body)
	a.writes = append(a.writes, transport.New(now, a.tuple, raw))
}

// HandleRead processes one inbound SCTP packet (spec §4.5 "Flight"
// equivalents for the four-way handshake, plus steady-state DATA/SACK).
func (a *Association) HandleRead(now int64, raw []byte, from transport.Tuple) error {
	if a.closed {
		return nil
	}
	if a.tuple == (transport.Tuple{}) {
		a.tuple = from
	}
	_, chunks, err := DecodePacket(raw)
	if err != nil {
		return fmt.Errorf("sctp: %w", err)
	}
	for _, c := range chunks {
		if err := a.handleChunk(now, c); err != nil {
			return err
		}
	}
	return nil
}

func (a *Association) handleChunk(now int64, c Chunk) error {
	switch c.Type {
	case ChunkTypeInit:
		return a.onInit(now, c)
	case ChunkTypeInitAck:
		return a.onInitAck(now, c)
	case ChunkTypeCookieEcho:
		return a.onCookieEcho(now, c)
	case ChunkTypeCookieAck:
		return a.onCookieAck(now)
	case ChunkTypeData:
		return a.onData(now, c)
	case ChunkTypeSack:
		return a.onSack(now, c)
	case ChunkTypeShutdown:
		return a.onShutdown(now)
	case ChunkTypeShutdownAck:
		return a.onShutdownAck(now)
	case ChunkTypeShutdownComplete:
		a.abort(nil)
	case ChunkTypeAbort:
		a.abort(nil)
	}
	return nil
}

// --- Server-side handshake ---

func (a *Association) onInit(now int64, c Chunk) error {
	init, err := DecodeInitChunk(c)
	if err != nil {
		return err
	}
	a.remoteVerificationTag = init.InitiateTag
	a.remoteInitialTSN = init.InitialTSN
	a.cumAckTSN = init.InitialTSN - 1

	cookie := make([]byte, 32)
	copy(cookie, []byte(fmt.Sprintf("%08x%08x", a.localVerificationTag, init.InitiateTag)))
	initAck := EncodeInitChunk(ChunkTypeInitAck, InitChunk{
		InitiateTag:     a.localVerificationTag,
		ARWND:           1 << 20,
		OutboundStreams: a.cfg.OutboundStreams,
		InboundStreams:  a.cfg.InboundStreams,
		InitialTSN:      a.localInitialTSN,
		Cookie:          cookie,
	})
	a.sendPacket(now, a.remoteVerificationTag, []Chunk{initAck})
	return nil
}

func (a *Association) onCookieEcho(now int64, c Chunk) error {
	a.state = StateEstablished
	a.sendPacket(now, a.remoteVerificationTag, []Chunk{{Type: ChunkTypeCookieAck}})
	a.events = append(a.events, Event{Kind: EventAssociationEstablished})
	return nil
}

// --- Client-side handshake ---

func (a *Association) onInitAck(now int64, c Chunk) error {
	if a.state != StateCookieWait {
		return nil
	}
	init, err := DecodeInitChunk(c)
	if err != nil {
		return err
	}
	a.remoteVerificationTag = init.InitiateTag
	a.remoteInitialTSN = init.InitialTSN
	a.cumAckTSN = init.InitialTSN - 1
	a.cookie = init.Cookie
	a.state = StateCookieEchoed
	a.sendPacket(now, a.remoteVerificationTag, []Chunk{{Type: ChunkTypeCookieEcho, Value: a.cookie}})
	a.t1InitDue = now + a.rto.RTO()
	return nil
}

func (a *Association) onCookieAck(now int64) error {
	if a.state != StateCookieEchoed {
		return nil
	}
	a.state = StateEstablished
	a.events = append(a.events, Event{Kind: EventAssociationEstablished})
	return nil
}

// --- Streams and data ---

// OpenStream registers (or reuses) a stream for sending/receiving DATA
// chunks, carrying the DCEP-negotiated label/reliability (spec §4.5
// "Stream table"; RFC 8832 DATA_CHANNEL_OPEN terms).
func (a *Association) OpenStream(id uint16, label string, ordered, reliable bool) *Stream {
	s, ok := a.streams[id]
	if !ok {
		s = &Stream{ID: id}
		a.streams[id] = s
	}
	s.Label = label
	s.Ordered = ordered
	s.Reliable = reliable
	s.Open = true
	return s
}

// SendMessage queues one DATA chunk for the given stream (message
// fragmentation across multiple chunks is out of scope, matching DCEP's
// typical small control/user messages — spec §4.5 Non-goals).
func (a *Association) SendMessage(now int64, streamID uint16, ppid uint32, payload []byte) error {
	s, ok := a.streams[streamID]
	if !ok || !s.Open {
		return fmt.Errorf("sctp: stream %d not open", streamID)
	}
	if ppid != PPIDControl && a.cfg.MaxMessageSize > 0 && len(payload) > a.cfg.MaxMessageSize {
		return rtcerr.New(rtcerr.KindCapacity, fmt.Errorf("sctp: message of %d bytes exceeds max message size %d", len(payload), a.cfg.MaxMessageSize))
	}
	tsn := a.localTSN
	a.localTSN++
	seq := s.nextSendSeq
	s.nextSendSeq++

	oc := &outstandingChunk{
		tsn:       tsn,
		streamID:  streamID,
		streamSeq: seq,
		ppid:      ppid,
		payload:   payload,
		flags:     DataFlagBeginning | DataFlagEnd,
		sentAt:    now,
	}
	a.outstanding = append(a.outstanding, oc)
	a.sendPacket(now, a.remoteVerificationTag, []Chunk{oc.encode()})
	if a.t3RtxDue == 0 {
		a.t3RtxDue = now + a.rto.RTO()
	}
	return nil
}

func (a *Association) onData(now int64, c Chunk) error {
	dc, err := DecodeDataChunk(c)
	if err != nil {
		return err
	}
	if dc.TSN <= a.cumAckTSN && a.cumAckTSN != 0 {
		return nil // duplicate
	}
	a.recvTSNs[dc.TSN] = *dc
	for {
		if _, ok := a.recvTSNs[a.cumAckTSN+1]; !ok {
			break
		}
		a.cumAckTSN++
		delivered := a.recvTSNs[a.cumAckTSN]
		delete(a.recvTSNs, a.cumAckTSN)
		a.events = append(a.events, Event{Kind: EventStreamMessage, StreamID: delivered.StreamID, PPID: delivered.PPID, Payload: delivered.Payload})
	}
	a.sendSack(now)
	return nil
}

func (a *Association) sendSack(now int64) {
	sack := EncodeSackChunk(SackChunk{CumulativeTSNAck: a.cumAckTSN, ARWND: 1 << 20})
	a.sendPacket(now, a.remoteVerificationTag, []Chunk{sack})
}

// onSack retires acked DATA chunks from the outstanding flight, feeds one
// RTT sample into the RTO manager (Karn's algorithm: only from a chunk
// that was never retransmitted, RFC 4960 §6.3.1), and restarts or stops
// T3-RTX depending on whether any DATA remains unacked.
func (a *Association) onSack(now int64, c Chunk) error {
	s, err := DecodeSackChunk(c)
	if err != nil {
		return err
	}
	i := 0
	sampled := false
	var rttSample int64
	for ; i < len(a.outstanding); i++ {
		oc := a.outstanding[i]
		if oc.tsn > s.CumulativeTSNAck {
			break
		}
		if !sampled && !oc.retransmitted {
			rttSample = now - oc.sentAt
			sampled = true
		}
	}
	a.outstanding = a.outstanding[i:]
	if sampled {
		a.rto.Update(rttSample)
	}
	if len(a.outstanding) == 0 {
		a.t3RtxDue = 0
		a.t3Attempts = 0
	} else {
		a.t3RtxDue = now + a.rto.RTO()
	}
	return nil
}

// --- Shutdown ---

// Shutdown begins a graceful close (RFC 4960 §9.2).
func (a *Association) Shutdown(now int64) {
	if a.state != StateEstablished {
		return
	}
	a.state = StateShutdownSent
	a.sendPacket(now, a.remoteVerificationTag, []Chunk{{Type: ChunkTypeShutdown, Value: make([]byte, 4)}})
	a.t2ShutdownDue = now + a.rto.RTO()
}

func (a *Association) onShutdown(now int64) error {
	a.state = StateShutdownReceived
	a.sendPacket(now, a.remoteVerificationTag, []Chunk{{Type: ChunkTypeShutdownAck}})
	a.state = StateShutdownAckSent
	return nil
}

func (a *Association) onShutdownAck(now int64) error {
	a.sendPacket(now, a.remoteVerificationTag, []Chunk{{Type: ChunkTypeShutdownComplete}})
	a.abort(nil)
	return nil
}

// HandleTimeout drives T1-Init, T2-Shutdown, and T3-RTX retransmission
// (spec §4.5 "Timer table"; Reconfig/Ack timers are not modeled — see
// DESIGN.md). Each timer's retry count is capped per RFC 4960 and
// exhaustion aborts the association with a KindTimeout event rather than
// retrying forever.
func (a *Association) HandleTimeout(now int64) {
	if a.closed {
		return
	}
	if (a.state == StateCookieWait || a.state == StateCookieEchoed) && a.t1InitDue != 0 && now >= a.t1InitDue {
		a.t1InitAttempts++
		if a.t1InitAttempts >= maxInitRetransmits {
			a.abort(rtcerr.New(rtcerr.KindTimeout, fmt.Errorf("sctp: INIT retransmits exhausted after %d attempts", a.t1InitAttempts)))
			return
		}
		a.rto.Backoff()
		a.retransmitInit(now)
		a.t1InitDue = now + a.rto.RTO()
	}
	if a.state == StateShutdownSent && a.t2ShutdownDue != 0 && now >= a.t2ShutdownDue {
		a.t2Attempts++
		if a.t2Attempts >= a.cfg.MaxShutdownRetransmits {
			a.abort(rtcerr.New(rtcerr.KindTimeout, fmt.Errorf("sctp: SHUTDOWN retransmits exhausted after %d attempts", a.t2Attempts)))
			return
		}
		a.rto.Backoff()
		a.sendPacket(now, a.remoteVerificationTag, []Chunk{{Type: ChunkTypeShutdown, Value: make([]byte, 4)}})
		a.t2ShutdownDue = now + a.rto.RTO()
	}
	if a.t3RtxDue != 0 && now >= a.t3RtxDue && len(a.outstanding) > 0 {
		a.t3Attempts++
		if a.t3Attempts >= maxDataRetransmits {
			a.abort(rtcerr.New(rtcerr.KindTimeout, fmt.Errorf("sctp: DATA retransmits exhausted after %d attempts", a.t3Attempts)))
			return
		}
		a.rto.Backoff()
		for _, oc := range a.outstanding {
			oc.retransmitted = true
			a.sendPacket(now, a.remoteVerificationTag, []Chunk{oc.encode()})
		}
		a.t3RtxDue = now + a.rto.RTO()
	}
}

// retransmitInit resends the handshake chunk appropriate to the current
// state on a T1-Init expiry (RFC 4960 §5.1: INIT while CookieWait,
// COOKIE-ECHO while CookieEchoed).
func (a *Association) retransmitInit(now int64) {
	switch a.state {
	case StateCookieWait:
		init := EncodeInitChunk(ChunkTypeInit, InitChunk{
			InitiateTag:     a.localVerificationTag,
			ARWND:           1 << 20,
			OutboundStreams: a.cfg.OutboundStreams,
			InboundStreams:  a.cfg.InboundStreams,
			InitialTSN:      a.localInitialTSN,
		})
		a.sendPacket(now, 0, []Chunk{init})
	case StateCookieEchoed:
		a.sendPacket(now, a.remoteVerificationTag, []Chunk{{Type: ChunkTypeCookieEcho, Value: a.cookie}})
	}
}

// abort tears the association down uncleanly, as RFC 4960 §9.1 requires
// once a timer's retransmission limit is reached.
func (a *Association) abort(err error) {
	a.state = StateClosed
	a.closed = true
	a.events = append(a.events, Event{Kind: EventAssociationClosed, Err: err})
}

// PollWrite drains queued outbound packets.
func (a *Association) PollWrite() (transport.Raw, bool) {
	if len(a.writes) == 0 {
		return transport.Raw{}, false
	}
	w := a.writes[0]
	a.writes = a.writes[1:]
	return w, true
}

// PollEvent drains queued association/stream events.
func (a *Association) PollEvent() (Event, bool) {
	if len(a.events) == 0 {
		return Event{}, false
	}
	e := a.events[0]
	a.events = a.events[1:]
	return e, true
}

// State reports the current association state.
func (a *Association) State() AssociationState { return a.state }
