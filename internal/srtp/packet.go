package srtp

import (
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// ProtectRTPPacket marshals an *rtp.Packet header, then protects the
// payload against it as AAD, returning the wire-ready SRTP packet
// (wiring the pion/rtp codec the way the rest of the pack consumes it,
// rather than hand-rolling RTP header parsing in this package).
func (c *Context) ProtectRTPPacket(pkt *rtp.Packet) ([]byte, error) {
	header, err := pkt.Header.Marshal()
	if err != nil {
		return nil, err
	}
	return c.ProtectRTP(pkt.SSRC, pkt.SequenceNumber, header, pkt.Payload)
}

// UnprotectRTPPacket decodes the RTP header with pion/rtp, then
// authenticates/decrypts the remainder as the SRTP payload.
func (c *Context) UnprotectRTPPacket(raw []byte) (*rtp.Packet, error) {
	var hdr rtp.Header
	n, err := hdr.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	plain, err := c.UnprotectRTP(hdr.SSRC, hdr.SequenceNumber, raw[:n], raw[n:])
	if err != nil {
		return nil, err
	}
	return &rtp.Packet{Header: hdr, Payload: plain}, nil
}

// ProtectRTCPPackets marshals an RTCP compound packet with pion/rtcp and
// protects it.
func ProtectRTCPPackets(c *Context, pkts []rtcp.Packet) ([]byte, error) {
	raw, err := rtcp.Marshal(pkts)
	if err != nil {
		return nil, err
	}
	// RTCP compound packets share one 8-byte header-ish prefix for AAD
	// purposes: the first packet's header is authenticated, matching
	// common SRTCP implementations that treat the whole compound packet
	// as opaque beyond the index trailer.
	if len(raw) < 8 {
		return nil, err
	}
	return c.ProtectRTCP(raw[:8], raw[8:])
}

// UnprotectRTCPPackets reverses ProtectRTCPPackets and decodes the
// resulting compound packet with pion/rtcp.
func UnprotectRTCPPackets(c *Context, raw []byte) ([]rtcp.Packet, error) {
	if len(raw) < 8+4 {
		return nil, nil
	}
	header := raw[:8]
	body := raw[8:]
	plain, err := c.UnprotectRTCP(header, body)
	if err != nil {
		return nil, err
	}
	return rtcp.Unmarshal(append(append([]byte{}, header...), plain...))
}
