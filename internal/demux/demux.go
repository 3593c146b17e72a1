// Package demux classifies inbound datagrams by first-byte range per
// RFC 7983 and routes each to the engine that owns it. It holds no state
// and performs no allocation beyond re-wrapping the envelope it is handed.
package demux

import "github.com/sansio/rtc/transport"

// Route identifies which engine a datagram belongs to.
type Route int

const (
	// RouteDrop covers empty datagrams and byte ranges RFC 7983 assigns to
	// nothing this pipeline understands.
	RouteDrop Route = iota
	RouteSTUN
	RouteDTLS
	// RouteTURNChannel is forwarded to a TurnClient seam if one is
	// attached, dropped otherwise (spec §4.1, §9).
	RouteTURNChannel
	RouteRTP
	RouteRTCP
)

func (r Route) String() string {
	switch r {
	case RouteSTUN:
		return "stun"
	case RouteDTLS:
		return "dtls"
	case RouteTURNChannel:
		return "turn-channel"
	case RouteRTP:
		return "rtp"
	case RouteRTCP:
		return "rtcp"
	default:
		return "drop"
	}
}

// MatchSTUN reports whether the first byte of a datagram falls in the STUN
// range (RFC 5389 requires the top two bits to be zero).
func MatchSTUN(first byte) bool {
	return first <= 3
}

// MatchDTLS reports whether the first byte falls in the DTLS content-type
// range.
func MatchDTLS(first byte) bool {
	return first >= 20 && first <= 63
}

// MatchTURNChannel reports whether the first byte falls in the TURN
// ChannelData range.
func MatchTURNChannel(first byte) bool {
	return first >= 64 && first <= 79
}

// MatchRTP reports whether the first byte falls in the RTP/RTCP range.
func MatchRTP(first byte) bool {
	return first >= 128 && first <= 191
}

// IsRTCP distinguishes RTCP from RTP within the RTP/RTCP byte range using
// the second byte's payload-type field (RFC 7983 §7): values 192-223 are
// RTCP.
func IsRTCP(second byte) bool {
	return second >= 192 && second <= 223
}

// Classify implements the RFC 7983 byte-range table from spec §4.1.
func Classify(d []byte) Route {
	if len(d) == 0 {
		return RouteDrop
	}
	first := d[0]
	switch {
	case MatchSTUN(first):
		return RouteSTUN
	case MatchDTLS(first):
		return RouteDTLS
	case MatchTURNChannel(first):
		return RouteTURNChannel
	case MatchRTP(first):
		if len(d) >= 2 && IsRTCP(d[1]) {
			return RouteRTCP
		}
		return RouteRTP
	default:
		return RouteDrop
	}
}

// ClassifyMessage classifies a raw envelope in place, leaving the payload
// untouched so the caller can hand it to the routed engine without a copy.
func ClassifyMessage(m transport.Raw) Route {
	return Classify(m.Payload)
}
