package rtc

// ICETransportPolicy restricts which gathered candidates a PeerConnection
// is allowed to use for connectivity checks (spec §6 "Construction":
// Configuration.ICETransportPolicy).
type ICETransportPolicy int

// ICEGatherPolicy is the ORTC equivalent of ICETransportPolicy.
type ICEGatherPolicy = ICETransportPolicy

const (
	// ICETransportPolicyAll permits every candidate type.
	ICETransportPolicyAll ICETransportPolicy = iota

	// ICETransportPolicyRelay restricts connectivity checks to relay
	// candidates, forcing media through a TURN server (e.g. to avoid
	// leaking a host's direct IP).
	ICETransportPolicyRelay
)

const (
	iceTransportPolicyRelayStr = "relay"
	iceTransportPolicyAllStr   = "all"
)

// NewICETransportPolicy takes a string and converts it to ICETransportPolicy
func NewICETransportPolicy(raw string) ICETransportPolicy {
	switch raw {
	case iceTransportPolicyRelayStr:
		return ICETransportPolicyRelay
	case iceTransportPolicyAllStr:
		return ICETransportPolicyAll
	default:
		return ICETransportPolicy(Unknown)
	}
}

func (t ICETransportPolicy) String() string {
	switch t {
	case ICETransportPolicyRelay:
		return iceTransportPolicyRelayStr
	case ICETransportPolicyAll:
		return iceTransportPolicyAllStr
	default:
		return ErrUnknownType.Error()
	}
}
