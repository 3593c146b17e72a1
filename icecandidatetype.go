package rtc

import "fmt"

// ICECandidateType is the RFC 8445 §5.1.1 candidate type: how a candidate's
// address/port pair was obtained (spec §3 "ICE candidate").
type ICECandidateType int

const (
	// ICECandidateTypeHost is bound directly to a local interface address
	// (RFC 8445 §5.1.1.1) — no NAT or relay involved.
	ICECandidateTypeHost ICECandidateType = iota + 1

	// ICECandidateTypeSrflx is the address/port a NAT mapped a local
	// socket to, as observed via a STUN binding request (RFC 8445
	// §5.1.1.2).
	ICECandidateTypeSrflx

	// ICECandidateTypePrflx is a NAT mapping discovered from an inbound
	// connectivity check rather than a STUN binding request — the peer
	// saw a different source address/port than any candidate we'd
	// advertised.
	ICECandidateTypePrflx

	// ICECandidateTypeRelay is allocated on a TURN server and forwards
	// traffic on our behalf (RFC 8445 §5.1.1.2); TURN allocation itself
	// is out of scope here (spec Non-goals), but the candidate type still
	// needs representing for SDP interop.
	ICECandidateTypeRelay
)

const (
	iceCandidateTypeHostStr  = "host"
	iceCandidateTypeSrflxStr = "srflx"
	iceCandidateTypePrflxStr = "prflx"
	iceCandidateTypeRelayStr = "relay"
)

func newICECandidateType(raw string) (ICECandidateType, error) {
	switch raw {
	case iceCandidateTypeHostStr:
		return ICECandidateTypeHost, nil
	case iceCandidateTypeSrflxStr:
		return ICECandidateTypeSrflx, nil
	case iceCandidateTypePrflxStr:
		return ICECandidateTypePrflx, nil
	case iceCandidateTypeRelayStr:
		return ICECandidateTypeRelay, nil
	default:
		return ICECandidateType(Unknown), fmt.Errorf("unknown ICE candidate type: %s", raw)
	}
}

func (t ICECandidateType) String() string {
	switch t {
	case ICECandidateTypeHost:
		return iceCandidateTypeHostStr
	case ICECandidateTypeSrflx:
		return iceCandidateTypeSrflxStr
	case ICECandidateTypePrflx:
		return iceCandidateTypePrflxStr
	case ICECandidateTypeRelay:
		return iceCandidateTypeRelayStr
	default:
		return ErrUnknownType.Error()
	}
}
