package rtc

// RTCPMuxPolicy affects what ICE candidates are gathered to support
// non-multiplexed RTCP.
type RTCPMuxPolicy int

const (
	// RTCPMuxPolicyNegotiate gathers ICE candidates for both RTP and RTCP.
	// If the remote endpoint is capable of multiplexing RTCP, multiplex
	// RTCP on the RTP candidates; otherwise use both separately.
	RTCPMuxPolicyNegotiate RTCPMuxPolicy = iota + 1

	// RTCPMuxPolicyRequire gathers ICE candidates only for RTP and
	// multiplexes RTCP on the RTP candidates unconditionally.
	RTCPMuxPolicyRequire
)

// NewRTCPMuxPolicy creates an RTCPMuxPolicy from its raw string name.
func NewRTCPMuxPolicy(raw string) RTCPMuxPolicy {
	switch raw {
	case "negotiate":
		return RTCPMuxPolicyNegotiate
	case "require":
		return RTCPMuxPolicyRequire
	default:
		return RTCPMuxPolicy(Unknown)
	}
}

func (t RTCPMuxPolicy) String() string {
	switch t {
	case RTCPMuxPolicyNegotiate:
		return "negotiate"
	case RTCPMuxPolicyRequire:
		return "require"
	default:
		return ErrUnknownType.Error()
	}
}
