package interceptor

import "github.com/pion/rtcp"

// SendBuffer is a power-of-two ring buffer of recently sent RTP packets,
// used to answer NACK requests (RFC 4585 §6.2.1; spec §4.7 "NACK").
// Grounded on the send/receive-buffer idiom of retaining a fixed recent
// window rather than unbounded history (spec §8 property 4: querying
// the same sequence number twice returns the same answer).
type SendBuffer struct {
	size    uint16
	mask    uint16
	entries [][]byte
	seqs    []uint16
}

// NewSendBuffer constructs a buffer of the given power-of-two size.
func NewSendBuffer(size uint16) *SendBuffer {
	return &SendBuffer{size: size, mask: size - 1, entries: make([][]byte, size), seqs: make([]uint16, size)}
}

// Add records a packet's payload at its sequence-number slot.
func (b *SendBuffer) Add(seq uint16, payload []byte) {
	b.entries[seq&b.mask] = append([]byte{}, payload...)
	b.seqs[seq&b.mask] = seq
}

// Get retrieves a previously-added packet, if it hasn't been overwritten
// by a later packet landing on the same slot.
func (b *SendBuffer) Get(seq uint16) ([]byte, bool) {
	v := b.entries[seq&b.mask]
	if v == nil || b.seqs[seq&b.mask] != seq {
		return nil, false
	}
	return v, true
}

// NACKGenerator tracks a receiver's highest-seen sequence number per SSRC
// and reports a gap list suitable for a TransportLayerNack packet
// (spec §4.7 "NACK generation").
type NACKGenerator struct {
	highest map[uint32]uint16
	seen    map[uint32]map[uint16]bool
}

func NewNACKGenerator() *NACKGenerator {
	return &NACKGenerator{highest: make(map[uint32]uint16), seen: make(map[uint32]map[uint16]bool)}
}

// OnReceive updates the tracked window and returns any newly-detected
// missing sequence numbers for ssrc.
func (g *NACKGenerator) OnReceive(ssrc uint32, seq uint16) []uint16 {
	seen, ok := g.seen[ssrc]
	if !ok {
		seen = make(map[uint16]bool)
		g.seen[ssrc] = seen
		g.highest[ssrc] = seq
		seen[seq] = true
		return nil
	}
	seen[seq] = true
	highest := g.highest[ssrc]
	if seq == highest || int16(seq-highest) <= 0 {
		return nil
	}

	var missing []uint16
	for s := highest + 1; s != seq; s++ {
		if !seen[s] {
			missing = append(missing, s)
		}
	}
	g.highest[ssrc] = seq
	return missing
}

// BuildNACK assembles one RFC 4585 §6.2.1 TransportLayerNack packet from
// a list of missing sequence numbers (PID + bitmask-packed FCI entries).
func BuildNACK(senderSSRC, mediaSSRC uint32, missing []uint16) *rtcp.TransportLayerNack {
	var pairs []rtcp.NackPair
	i := 0
	for i < len(missing) {
		pid := missing[i]
		var blp uint16
		j := i + 1
		for j < len(missing) && missing[j]-pid <= 16 {
			blp |= 1 << (missing[j] - pid - 1)
			j++
		}
		pairs = append(pairs, rtcp.NackPair{PacketID: pid, LostPackets: rtcp.PacketBitmap(blp)})
		i = j
	}
	return &rtcp.TransportLayerNack{
		SenderSSRC: senderSSRC,
		MediaSSRC:  mediaSSRC,
		Nacks:      pairs,
	}
}

// NACKResponder answers inbound NACK requests by replaying packets from
// a SendBuffer (spec §4.7 "NACK responder").
type NACKResponder struct {
	buf *SendBuffer
}

func NewNACKResponder(buf *SendBuffer) *NACKResponder {
	return &NACKResponder{buf: buf}
}

// Resolve returns the sequence numbers requested in nack that this
// responder still has buffered, paired with their payloads.
func (r *NACKResponder) Resolve(nack *rtcp.TransportLayerNack) map[uint16][]byte {
	out := make(map[uint16][]byte)
	for _, pair := range nack.Nacks {
		for _, seq := range pair.PacketList() {
			if payload, ok := r.buf.Get(seq); ok {
				out[seq] = payload
			}
		}
	}
	return out
}
