package rtc

// BundlePolicy affects what ICE candidates are gathered across the
// transports this library multiplexes together (spec §2 notes the whole
// pipeline, ICE/DTLS/SCTP/SRTP, shares a single selected candidate pair).
// Kept for W3C API surface parity even though every PeerConnection here
// bundles onto one transport regardless of policy.
type BundlePolicy int

const (
	// BundlePolicyBalanced gathers ICE candidates for each media type in
	// use.
	BundlePolicyBalanced BundlePolicy = iota + 1

	// BundlePolicyMaxCompat gathers ICE candidates for each track.
	BundlePolicyMaxCompat

	// BundlePolicyMaxBundle gathers ICE candidates for only one track.
	BundlePolicyMaxBundle
)

const (
	bundlePolicyBalancedStr  = "balanced"
	bundlePolicyMaxCompatStr = "max-compat"
	bundlePolicyMaxBundleStr = "max-bundle"
)

func newBundlePolicy(raw string) BundlePolicy {
	switch raw {
	case bundlePolicyBalancedStr:
		return BundlePolicyBalanced
	case bundlePolicyMaxCompatStr:
		return BundlePolicyMaxCompat
	case bundlePolicyMaxBundleStr:
		return BundlePolicyMaxBundle
	default:
		return BundlePolicy(Unknown)
	}
}

func (t BundlePolicy) String() string {
	switch t {
	case BundlePolicyBalanced:
		return bundlePolicyBalancedStr
	case BundlePolicyMaxCompat:
		return bundlePolicyMaxCompatStr
	case BundlePolicyMaxBundle:
		return bundlePolicyMaxBundleStr
	default:
		return ErrUnknownType.Error()
	}
}
