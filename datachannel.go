package rtc

import (
	"github.com/sansio/rtc/internal/sctp"
	"github.com/sansio/rtc/pkg/rtcerr"
)

// DataChannelMessage is one payload delivered over a DataChannel (spec
// §4.5 "Events": EventStreamMessage carries PPID to distinguish DCEP
// control traffic from application data).
type DataChannelMessage struct {
	Data     []byte
	IsString bool
}

// DataChannel represents one SCTP stream carrying DCEP-negotiated user
// data (spec §4.5, RFC 8832). Unlike a callback-driven implementation,
// this type never spawns a goroutine: inbound messages surface through
// PeerConnection.PollEvent (spec §5 "strictly single-threaded-cooperative").
type DataChannel struct {
	id         uint16
	label      string
	protocol   string
	ordered    bool
	reliable   bool
	negotiated bool
	priority   PriorityType

	maxPacketLifeTime *uint16
	maxRetransmits    *uint16

	readyState DataChannelState

	assoc *sctp.Association
}

func newDataChannel(assoc *sctp.Association, id uint16, params DataChannelParameters) *DataChannel {
	return &DataChannel{
		id:                id,
		label:             params.Label,
		ordered:           params.Ordered,
		reliable:          params.MaxRetransmits == nil && params.MaxPacketLifeTime == nil,
		maxPacketLifeTime: params.MaxPacketLifeTime,
		maxRetransmits:    params.MaxRetransmits,
		priority:          PriorityTypeLow,
		readyState:        DataChannelStateConnecting,
		assoc:             assoc,
	}
}

// open sends DATA_CHANNEL_OPEN on the underlying stream (RFC 8832 §5.1;
// the local end stays Connecting until the peer's DATA_CHANNEL_ACK is
// observed by the driver, spec §8 scenario S4).
func (d *DataChannel) open(now int64) error {
	return d.assoc.OpenDataChannel(now, d.id, d.label, d.protocol, d.ordered, d.reliable)
}

// accept answers an inbound DATA_CHANNEL_OPEN with a DATA_CHANNEL_ACK and
// moves straight to Open, matching RFC 8832 §5.2 (the answering side needs
// no further handshake).
func (d *DataChannel) accept(now int64, open *sctp.DataChannelOpen) error {
	d.label = open.Label
	d.protocol = open.Protocol
	d.ordered = open.ChannelType.Ordered()
	if err := d.assoc.AcceptDataChannel(now, d.id, open); err != nil {
		return err
	}
	d.readyState = DataChannelStateOpen
	return nil
}

// markOpen transitions Connecting -> Open once DATA_CHANNEL_ACK arrives
// for a locally opened channel.
func (d *DataChannel) markOpen() {
	if d.readyState == DataChannelStateConnecting {
		d.readyState = DataChannelStateOpen
	}
}

// Send queues a binary user message (spec §4.5; PPIDBinary/PPIDBinaryEmpty
// per RFC 8832 §8).
func (d *DataChannel) Send(now int64, data []byte) error {
	if d.readyState != DataChannelStateOpen {
		return classify(rtcerr.KindState, ErrDataChannelNotOpen)
	}
	ppid := sctp.PPIDBinary
	if len(data) == 0 {
		ppid = sctp.PPIDBinaryEmpty
	}
	return d.assoc.SendMessage(now, d.id, ppid, data)
}

// SendText queues a text user message (PPIDString/PPIDStringEmpty).
func (d *DataChannel) SendText(now int64, s string) error {
	if d.readyState != DataChannelStateOpen {
		return classify(rtcerr.KindState, ErrDataChannelNotOpen)
	}
	ppid := sctp.PPIDString
	data := []byte(s)
	if len(data) == 0 {
		ppid = sctp.PPIDStringEmpty
	}
	return d.assoc.SendMessage(now, d.id, ppid, data)
}

// Close marks the channel Closing; the actual SCTP stream reset sequence
// is out of scope (spec §4.5 Non-goals: "stream reset / RE-CONFIG driven
// close"; DESIGN.md's internal/sctp notes: no stream reset is implemented).
// The channel does not move on to Closed by itself.
func (d *DataChannel) Close() error {
	if d.readyState == DataChannelStateClosing || d.readyState == DataChannelStateClosed {
		return nil
	}
	d.readyState = DataChannelStateClosing
	return nil
}

func (d *DataChannel) Label() string              { return d.label }
func (d *DataChannel) Ordered() bool              { return d.ordered }
func (d *DataChannel) MaxPacketLifeTime() *uint16 { return d.maxPacketLifeTime }
func (d *DataChannel) MaxRetransmits() *uint16    { return d.maxRetransmits }
func (d *DataChannel) Protocol() string           { return d.protocol }
func (d *DataChannel) Negotiated() bool           { return d.negotiated }
func (d *DataChannel) ID() uint16                 { return d.id }
func (d *DataChannel) Priority() PriorityType     { return d.priority }
func (d *DataChannel) ReadyState() DataChannelState { return d.readyState }
