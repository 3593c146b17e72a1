package sctp

// OpenDataChannel sends a DATA_CHANNEL_OPEN control message on a fresh
// stream (spec §4.5 "Data channel establishment"; RFC 8832 §5.1). The
// caller observes the channel as usable once the peer's
// DATA_CHANNEL_ACK arrives as an EventStreamMessage with PPIDControl and
// IsDataChannelAck.
func (a *Association) OpenDataChannel(now int64, streamID uint16, label, protocol string, ordered, reliable bool) error {
	ct := ChannelReliable
	if !ordered {
		ct = ChannelReliableUnordered
	}
	a.OpenStream(streamID, label, ordered, reliable)
	open := EncodeDataChannelOpen(DataChannelOpen{ChannelType: ct, Label: label, Protocol: protocol})
	return a.SendMessage(now, streamID, PPIDControl, open)
}

// AcceptDataChannel responds to a received DATA_CHANNEL_OPEN with a
// DATA_CHANNEL_ACK on the same stream (RFC 8832 §5.2).
func (a *Association) AcceptDataChannel(now int64, streamID uint16, open *DataChannelOpen) error {
	a.OpenStream(streamID, open.Label, open.ChannelType.Ordered(), true)
	return a.SendMessage(now, streamID, PPIDControl, EncodeDataChannelAck())
}
