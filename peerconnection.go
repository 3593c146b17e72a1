package rtc

import (
	"net"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/sansio/rtc/internal/demux"
	"github.com/sansio/rtc/internal/dtls"
	"github.com/sansio/rtc/internal/ice"
	"github.com/sansio/rtc/internal/interceptor"
	"github.com/sansio/rtc/internal/sctp"
	"github.com/sansio/rtc/internal/srtp"
	"github.com/sansio/rtc/internal/stun"
	"github.com/sansio/rtc/pkg/rtcerr"
	"github.com/sansio/rtc/transport"
)

// reportGeneratorInterceptor adapts internal/interceptor.ReportGenerator
// (a plain RFC 3550 stats accumulator with no Bind* methods of its own)
// into the interceptor chain shape, feeding every inbound RTP packet into
// the generator so SenderReport/ReceiverReport stay current (spec §4.7).
type reportGeneratorInterceptor struct {
	gen *interceptor.ReportGenerator
}

func (r *reportGeneratorInterceptor) BindRTPWriter(next interceptor.RTPWriter) interceptor.RTPWriter {
	return next
}

func (r *reportGeneratorInterceptor) BindRTPReader(next interceptor.RTPReader) interceptor.RTPReader {
	return interceptor.RTPReaderFunc(func(pkt *rtp.Packet) error {
		r.gen.OnReceive(0, pkt)
		return next.ReadRTP(pkt)
	})
}

func (r *reportGeneratorInterceptor) Close() error { return nil }

// PeerConnection is the outer sans-I/O driver composing the ICE agent,
// DTLS endpoint, SCTP association, and SRTP contexts into the uniform
// handle_read/poll_write/handle_timeout/poll_timeout/poll_event surface
// (spec §4.8).
type PeerConnection struct {
	config        Configuration
	settingEngine SettingEngine
	certificates  []Certificate

	iceAgent *ice.Agent
	iceRole  ICERole

	dtlsRole DTLSRole
	dtlsEP   *dtls.Endpoint

	assoc        *sctp.Association
	nextStreamID uint16
	dataChannels map[uint16]*DataChannel
	pendingOpens map[uint16]bool

	srtpLocal  *srtp.Context
	srtpRemote *srtp.Context
	reportGen  *interceptor.ReportGenerator
	chain      *interceptor.Chain

	signalingState  SignalingState
	iceConnState    ICEConnectionState
	iceGatherState  ICEGatheringState
	connectionState PeerConnectionState

	dtlsConnected bool
	dtlsFailed    bool
	closed        bool

	events      []PeerConnectionEvent
	rtpIn       []*rtp.Packet
	rtcpIn      [][]rtcp.Packet
	mediaWrites []transport.Raw
}

// newPeerConnection builds a PeerConnection from a Configuration and the
// SettingEngine carried by the owning API (spec §6 "Construction").
func newPeerConnection(config Configuration, se SettingEngine) (*PeerConnection, error) {
	if err := config.validate(); err != nil {
		return nil, classify(rtcerr.KindConfig, err)
	}
	certs, err := config.certificatesOrGenerate()
	if err != nil {
		return nil, classify(rtcerr.KindConfig, err)
	}

	iceRole := ICERoleControlling
	agentCfg := ice.Config{Role: ice.RoleControlling}
	if se.LoggerFactory != nil {
		agentCfg.Logger = se.LoggerFactory.NewLogger("ice")
	}
	if se.timeout.ICEConnection != nil {
		agentCfg.DisconnectedTimeout = *se.timeout.ICEConnection
	}
	if se.timeout.ICEKeepalive != nil {
		agentCfg.KeepaliveInterval = *se.timeout.ICEKeepalive
	}
	agent, err := ice.NewAgent(agentCfg)
	if err != nil {
		return nil, classify(rtcerr.KindConfig, err)
	}
	if se.candidates.UsernameFragment != "" {
		// the agent generates its own credentials on construction; a
		// static override reuses Restart rather than poking private state.
		_ = agent.Restart(se.candidates.UsernameFragment, se.candidates.Password, false)
	}

	assoc, err := sctp.NewAssociation(sctp.Config{MaxMessageSize: se.sctpMaxMessageSize})
	if err != nil {
		return nil, classify(rtcerr.KindConfig, err)
	}

	reportGen := interceptor.NewReportGenerator()
	chain := interceptor.NewChain([]interceptor.Interceptor{
		&reportGeneratorInterceptor{gen: reportGen},
	})

	return &PeerConnection{
		config:          config,
		settingEngine:   se,
		certificates:    certs,
		iceAgent:        agent,
		iceRole:         iceRole,
		dtlsRole:        se.answeringDTLSRole,
		assoc:           assoc,
		dataChannels:    make(map[uint16]*DataChannel),
		pendingOpens:    make(map[uint16]bool),
		reportGen:       reportGen,
		chain:           chain,
		signalingState:  SignalingStateStable,
		iceConnState:    ICEConnectionStateNew,
		iceGatherState:  ICEGatheringStateNew,
		connectionState: PeerConnectionStateNew,
	}, nil
}

// LocalICECredentials returns the local ufrag/pwd for out-of-band binding
// into a session description. Producing the description text itself is
// out of scope (spec §1 Non-goals "SDP text").
func (pc *PeerConnection) LocalICECredentials() (ufrag, pwd string) {
	return pc.iceAgent.LocalCredentials()
}

// SetRemoteICECredentials records the remote ufrag/pwd (spec §4.3 "Pairing").
func (pc *PeerConnection) SetRemoteICECredentials(ufrag, pwd string) {
	pc.iceAgent.SetRemoteCredentials(ufrag, pwd)
}

// AddLocalCandidate registers a local candidate gathered by the host
// (enumerating interfaces and running STUN binding requests is the host's
// responsibility, spec §4.3 "Gathering").
func (pc *PeerConnection) AddLocalCandidate(c *ice.Candidate) {
	pc.iceAgent.AddLocalCandidate(c)
}

// GatherHostCandidates enumerates local interface addresses, restricted to
// the SettingEngine's configured ICENetworkTypes (SetNetworkTypes, spec §3
// "ICE candidate"), and feeds each as a local candidate. It's a convenience
// over AddLocalCandidate for the common case of host-candidate-only
// gathering; a host doing STUN/TURN gathering calls AddLocalCandidate
// directly for those.
func (pc *PeerConnection) GatherHostCandidates(component int) error {
	cands, err := ice.GatherHostCandidatesFromInterfaces(component, toICENetworkTypes(pc.settingEngine.candidates.ICENetworkTypes))
	if err != nil {
		return err
	}
	for _, c := range cands {
		pc.AddLocalCandidate(c)
	}
	return nil
}

// AddRemoteCandidate registers a remote candidate carried in an
// already-parsed ICECandidateInit (spec §6 "add_ice_candidate").
func (pc *PeerConnection) AddRemoteCandidate(c ICECandidate) error {
	network := ice.NetworkTypeUDP4
	if c.Protocol == ICEProtocolTCP {
		network = ice.NetworkTypeTCP4
	}
	remote := ice.NewHostCandidate(network, c.Address, int(c.Port), int(c.Component))
	remote.Foundation = c.Foundation
	remote.Priority = c.Priority
	pc.iceAgent.AddRemoteCandidate(remote)
	return nil
}

// GatherComplete signals the host has exhausted every configured
// candidate source (spec §4.3 "Gathering").
func (pc *PeerConnection) GatherComplete() {
	pc.iceAgent.GatherComplete()
}

// CreateDataChannel opens a new SCTP stream, sending DATA_CHANNEL_OPEN
// immediately if the association is already established, or deferring it
// until EventAssociationEstablished otherwise (spec §6
// "create_data_channel"; RFC 8832 §5.1). Stream IDs are allocated from the
// even numbers (0, 2, 4, ...) whatever the DTLS role; handleStreamMessage
// accepts a remote channel on whichever stream ID its DATA_CHANNEL_OPEN
// arrives on.
func (pc *PeerConnection) CreateDataChannel(now int64, label string, init DataChannelParameters) (*DataChannel, error) {
	if pc.closed {
		return nil, classify(rtcerr.KindClosed, ErrConnectionClosed)
	}
	id := pc.nextStreamID
	pc.nextStreamID += 2

	init.Label = label
	init.ID = id
	dc := newDataChannel(pc.assoc, id, init)
	pc.dataChannels[id] = dc

	if pc.assoc.State() == sctp.StateEstablished {
		if err := dc.open(now); err != nil {
			return nil, classify(rtcerr.KindState, err)
		}
		pc.pendingOpens[id] = true
	}
	return dc, nil
}

// Close transitions to Closed, tears down the ICE agent and DTLS endpoint,
// and begins an SCTP shutdown (spec §5 "Cancellation").
func (pc *PeerConnection) Close(now int64) {
	if pc.closed {
		return
	}
	pc.closed = true
	pc.iceAgent.Close()
	if pc.dtlsEP != nil {
		pc.dtlsEP.Close()
	}
	pc.assoc.Shutdown(now)
	pc.setSignalingState(SignalingStateClosed)
	pc.setConnectionState(PeerConnectionStateClosed)
}

// --- handle_read ---

// HandleRead classifies one inbound datagram per RFC 7983 and dispatches
// it to the owning engine (spec §4.1 demultiplexer, §4.8 driver contract).
func (pc *PeerConnection) HandleRead(now int64, raw []byte, from transport.Tuple) error {
	if pc.closed {
		return classify(rtcerr.KindClosed, ErrConnectionClosed)
	}
	switch demux.Classify(raw) {
	case demux.RouteSTUN:
		msg, err := stun.Decode(raw)
		if err != nil {
			return classify(rtcerr.KindProtocolParse, err)
		}
		pc.iceAgent.HandleRead(now, msg, &from)
		pc.drainICE(now)
		return nil
	case demux.RouteDTLS:
		if pc.iceAgent.ConnectionState() != ice.ConnectionConnected &&
			pc.iceAgent.ConnectionState() != ice.ConnectionCompleted {
			return classify(rtcerr.KindState, ErrICENotReady)
		}
		if err := pc.ensureDTLS(); err != nil {
			return classify(rtcerr.KindState, err)
		}
		if err := pc.dtlsEP.HandleRead(now, raw); err != nil {
			return classify(rtcerr.KindProtocolParse, err)
		}
		pc.drainDTLS(now)
		for {
			plaintext, ok := pc.dtlsEP.PollApplicationData()
			if !ok {
				break
			}
			if err := pc.assoc.HandleRead(now, plaintext, from); err != nil {
				continue
			}
			pc.drainSCTP(now)
		}
		return nil
	case demux.RouteRTP:
		if !pc.dtlsConnected {
			return classify(rtcerr.KindState, ErrDTLSNotReady)
		}
		pkt, err := pc.srtpRemote.UnprotectRTPPacket(raw)
		if err != nil {
			return classify(rtcerr.KindSecurity, err)
		}
		reader := pc.chain.WrapReader(interceptor.RTPReaderFunc(func(p *rtp.Packet) error {
			pc.rtpIn = append(pc.rtpIn, p)
			return nil
		}))
		return reader.ReadRTP(pkt)
	case demux.RouteRTCP:
		if !pc.dtlsConnected {
			return classify(rtcerr.KindState, ErrDTLSNotReady)
		}
		pkts, err := srtp.UnprotectRTCPPackets(pc.srtpRemote, raw)
		if err != nil {
			return classify(rtcerr.KindSecurity, err)
		}
		pc.rtcpIn = append(pc.rtcpIn, pkts)
		return nil
	default:
		return nil
	}
}

// PollRTP drains one inbound (already unprotected) RTP packet.
func (pc *PeerConnection) PollRTP() (*rtp.Packet, bool) {
	if len(pc.rtpIn) == 0 {
		return nil, false
	}
	p := pc.rtpIn[0]
	pc.rtpIn = pc.rtpIn[1:]
	return p, true
}

// PollRTCP drains one inbound (already unprotected) RTCP compound packet.
func (pc *PeerConnection) PollRTCP() ([]rtcp.Packet, bool) {
	if len(pc.rtcpIn) == 0 {
		return nil, false
	}
	p := pc.rtcpIn[0]
	pc.rtcpIn = pc.rtcpIn[1:]
	return p, true
}

// ensureDTLS lazily constructs the DTLS endpoint once ICE has a selected
// pair, resolving DTLSRoleAuto against the ICE controlling/controlled role
// (spec §3 "DTLS handshake state").
func (pc *PeerConnection) ensureDTLS() error {
	if pc.dtlsEP != nil {
		return nil
	}
	controlling := pc.iceRole == ICERoleControlling
	role := pc.dtlsRole.resolve(controlling)
	cfg := dtls.Config{Role: role}
	if len(pc.certificates) > 0 {
		cfg.Certificate = pc.certificates[0].cert
	}
	ep, err := dtls.NewEndpoint(cfg)
	if err != nil {
		return err
	}
	pc.dtlsEP = ep
	return nil
}

// --- handle_write ---

// SendRTP protects pkt with the local SRTP context and queues it for
// PollWrite (spec §4.6, §4.7 outbound chain).
func (pc *PeerConnection) SendRTP(now int64, pkt *rtp.Packet) error {
	if !pc.dtlsConnected {
		return classify(rtcerr.KindState, ErrDTLSNotReady)
	}
	writer := pc.chain.WrapWriter(interceptor.RTPWriterFunc(func(p *rtp.Packet) error {
		raw, err := pc.srtpLocal.ProtectRTPPacket(p)
		if err != nil {
			return err
		}
		pc.queueMediaWrite(now, raw)
		return nil
	}))
	return writer.WriteRTP(pkt)
}

// SendRTCP protects and queues an RTCP compound packet (spec §4.6).
func (pc *PeerConnection) SendRTCP(now int64, pkts []rtcp.Packet) error {
	if !pc.dtlsConnected {
		return classify(rtcerr.KindState, ErrDTLSNotReady)
	}
	raw, err := srtp.ProtectRTCPPackets(pc.srtpLocal, pkts)
	if err != nil {
		return classify(rtcerr.KindSecurity, err)
	}
	pc.queueMediaWrite(now, raw)
	return nil
}

func (pc *PeerConnection) queueMediaWrite(now int64, raw []byte) {
	pc.mediaWrites = append(pc.mediaWrites, transport.New(now, transport.Tuple{Protocol: transport.ProtocolUDP}, raw))
}

// --- handle_timeout ---

// HandleTimeout forwards to every sub-engine in dependency order (spec §5
// "each engine owns its timer set").
func (pc *PeerConnection) HandleTimeout(now int64) {
	if pc.closed {
		return
	}
	pc.iceAgent.HandleTimeout(now)
	pc.drainICE(now)
	if pc.dtlsEP != nil {
		pc.dtlsEP.HandleTimeout(now)
		pc.drainDTLS(now)
	}
	pc.assoc.HandleTimeout(now)
	pc.drainSCTP(now)
}

// PollTimeout returns the earlier of the ICE agent's and the DTLS
// endpoint's next deadlines (spec §4.8 "poll_timeout"). The SCTP
// association's timers are not included.
func (pc *PeerConnection) PollTimeout() (int64, bool) {
	min, any := int64(0), false
	consider := func(t int64, ok bool) {
		if !ok {
			return
		}
		if !any || t < min {
			min, any = t, true
		}
	}
	consider(pc.iceAgent.PollTimeout())
	if pc.dtlsEP != nil {
		consider(pc.dtlsEP.PollTimeout())
	}
	return min, any
}

// --- poll_write ---

// PollWrite drains, in order, ICE writes (stamped with the selected
// candidate pair), then SCTP-over-DTLS writes, then any queued SRTP/SRTCP
// media writes (spec §4.8 "poll_write").
func (pc *PeerConnection) PollWrite(now int64) (transport.Raw, bool) {
	if w, ok := pc.iceAgent.PollWrite(); ok {
		return pc.rewriteOutbound(w), true
	}
	if pc.dtlsEP != nil {
		pc.pumpSCTPIntoDTLS(now)
		if w, ok := pc.dtlsEP.PollWrite(); ok {
			return pc.rewriteOutbound(w), true
		}
	}
	if len(pc.mediaWrites) > 0 {
		w := pc.mediaWrites[0]
		pc.mediaWrites = pc.mediaWrites[1:]
		return pc.rewriteOutbound(w), true
	}
	return transport.Raw{}, false
}

// pumpSCTPIntoDTLS seals any queued SCTP packets as DTLS application-data
// records, the path by which the data channel stream rides the DTLS
// connection (spec §4.6 "SCTP encrypted via DTLS").
func (pc *PeerConnection) pumpSCTPIntoDTLS(now int64) {
	if pc.dtlsEP == nil || !pc.dtlsEP.HandshakeComplete() {
		return
	}
	for {
		w, ok := pc.assoc.PollWrite()
		if !ok {
			return
		}
		_ = pc.dtlsEP.SendApplicationData(now, w.Payload)
	}
}

// rewriteOutbound stamps the selected candidate pair's addresses onto an
// outbound envelope, so upper layers never see ICE's final selection
// directly (spec §4.8 "Outbound address rewriting").
func (pc *PeerConnection) rewriteOutbound(w transport.Raw) transport.Raw {
	local, remote, ok := pc.iceAgent.SelectedPair()
	if !ok {
		return w
	}
	w.Transport.Local = candidateAddr(local)
	w.Transport.Peer = candidateAddr(remote)
	return w
}

func candidateAddr(c *ice.Candidate) net.Addr {
	if c.ResolvedAddr != nil {
		return c.ResolvedAddr
	}
	return &net.UDPAddr{IP: net.ParseIP(c.Address), Port: c.Port}
}

// --- poll_event ---

// PollEvent drains queued public events (spec §4.8 "poll_event").
func (pc *PeerConnection) PollEvent() (PeerConnectionEvent, bool) {
	if len(pc.events) == 0 {
		return PeerConnectionEvent{}, false
	}
	e := pc.events[0]
	pc.events = pc.events[1:]
	return e, true
}

func (pc *PeerConnection) emit(e PeerConnectionEvent) {
	pc.events = append(pc.events, e)
}

func (pc *PeerConnection) setSignalingState(s SignalingState) {
	if pc.signalingState == s {
		return
	}
	pc.signalingState = s
	pc.emit(PeerConnectionEvent{Kind: EventSignalingStateChange, SignalingState: s})
}

func (pc *PeerConnection) setConnectionState(s PeerConnectionState) {
	if pc.connectionState == s {
		return
	}
	pc.connectionState = s
	pc.emit(PeerConnectionEvent{Kind: EventConnectionStateChange, ConnectionState: s})
}

func (pc *PeerConnection) recomputeConnectionState() {
	s := derivePeerConnectionState(pc.iceConnState, pc.dtlsConnected, pc.dtlsFailed, pc.closed)
	pc.setConnectionState(s)
}

// drainICE pulls every queued ICE event, updating public state and
// starting the DTLS handshake once a pair is selected (spec §3 "ICE ->
// DTLS dependency").
func (pc *PeerConnection) drainICE(now int64) {
	for {
		ev, ok := pc.iceAgent.PollEvent()
		if !ok {
			return
		}
		switch ev.Kind {
		case ice.EventConnectionStateChange:
			pc.iceConnState = iceConnectionStateFromAgent(ev.ConnectionState)
			pc.emit(PeerConnectionEvent{Kind: EventICEConnectionStateChange, ICEConnectionState: pc.iceConnState})
			pc.recomputeConnectionState()
			if ev.ConnectionState == ice.ConnectionConnected {
				_ = pc.ensureDTLS()
			}
		case ice.EventGatheringStateChange:
			pc.iceGatherState = iceGatheringStateFromAgent(ev.GatheringState)
			pc.emit(PeerConnectionEvent{Kind: EventICEGatheringStateChange, ICEGatheringState: pc.iceGatherState})
		case ice.EventCandidateReady:
			candidate, err := newICECandidate(ev.Candidate, "", 0)
			if err != nil {
				continue
			}
			pc.emit(PeerConnectionEvent{Kind: EventICECandidateReady, Candidate: &candidate})
		}
	}
}

// drainDTLS pulls queued DTLS events, deriving the SRTP contexts and
// starting the SCTP association exactly when the handshake completes
// (spec §3 "SRTP contexts are populated exactly when DTLS completes").
func (pc *PeerConnection) drainDTLS(now int64) {
	for {
		ev, ok := pc.dtlsEP.PollEvent()
		if !ok {
			return
		}
		switch ev.Kind {
		case dtls.EventHandshakeComplete:
			pc.dtlsConnected = true
			pc.recomputeConnectionState()

			keys := ev.SRTPKeys
			controlling := pc.iceRole == ICERoleControlling
			role := pc.dtlsRole.resolve(controlling)
			if role == dtls.RoleClient {
				pc.srtpLocal, _ = srtp.NewContext(keys.ClientMasterKey[:], keys.ClientMasterSalt[:])
				pc.srtpRemote, _ = srtp.NewContext(keys.ServerMasterKey[:], keys.ServerMasterSalt[:])
				local, remote, ok := pc.iceAgent.SelectedPair()
				if ok {
					_ = pc.assoc.Associate(now, transport.Tuple{Local: candidateAddr(local), Peer: candidateAddr(remote)})
				}
			} else {
				pc.srtpLocal, _ = srtp.NewContext(keys.ServerMasterKey[:], keys.ServerMasterSalt[:])
				pc.srtpRemote, _ = srtp.NewContext(keys.ClientMasterKey[:], keys.ClientMasterSalt[:])
			}
		case dtls.EventHandshakeFailed:
			pc.dtlsFailed = true
			pc.recomputeConnectionState()
		}
	}
}

// drainSCTP pulls queued association/stream events, flushing deferred
// data-channel opens and delivering DCEP control and user messages
// (spec §4.5 "Events").
func (pc *PeerConnection) drainSCTP(now int64) {
	for {
		ev, ok := pc.assoc.PollEvent()
		if !ok {
			return
		}
		switch ev.Kind {
		case sctp.EventStreamMessage:
			pc.handleStreamMessage(now, ev)
		case sctp.EventAssociationEstablished:
			for id, dc := range pc.dataChannels {
				if pc.pendingOpens[id] || dc.readyState != DataChannelStateConnecting {
					continue
				}
				if err := dc.open(now); err == nil {
					pc.pendingOpens[id] = true
				}
			}
		}
	}
}

func (pc *PeerConnection) handleStreamMessage(now int64, ev sctp.Event) {
	switch ev.PPID {
	case sctp.PPIDControl:
		if len(ev.Payload) > 0 && ev.Payload[0] == sctp.DCEPMessageTypeOpen {
			open, err := sctp.DecodeDataChannelOpen(ev.Payload)
			if err != nil {
				return
			}
			dc := pc.dataChannels[ev.StreamID]
			if dc == nil {
				dc = newDataChannel(pc.assoc, ev.StreamID, DataChannelParameters{Label: open.Label, ID: ev.StreamID})
				pc.dataChannels[ev.StreamID] = dc
				_ = dc.accept(now, open)
				pc.emit(PeerConnectionEvent{Kind: EventDataChannel, DataChannel: dc})
			}
			return
		}
		if sctp.IsDataChannelAck(ev.Payload) {
			if dc := pc.dataChannels[ev.StreamID]; dc != nil {
				dc.markOpen()
				pc.emit(PeerConnectionEvent{Kind: EventDataChannelStateChange, DataChannel: dc})
			}
		}
	case sctp.PPIDString, sctp.PPIDStringEmpty, sctp.PPIDBinary, sctp.PPIDBinaryEmpty:
		dc := pc.dataChannels[ev.StreamID]
		if dc == nil {
			return
		}
		pc.emit(PeerConnectionEvent{Kind: EventDataChannelMessage, MessageChannel: dc, Message: ev.Payload})
	}
}

// SignalingState returns the current signaling state.
func (pc *PeerConnection) SignalingState() SignalingState { return pc.signalingState }

// ICEConnectionState returns the current ICE-connection state.
func (pc *PeerConnection) ICEConnectionState() ICEConnectionState { return pc.iceConnState }

// ICEGatheringState returns the current ICE-gathering state.
func (pc *PeerConnection) ICEGatheringState() ICEGatheringState { return pc.iceGatherState }

// ConnectionState returns the current aggregate peer-connection state.
func (pc *PeerConnection) ConnectionState() PeerConnectionState { return pc.connectionState }
