package rtc

import (
	"errors"

	"github.com/sansio/rtc/pkg/rtcerr"
)

// Unknown is the zero value shared by every enum in this package whose
// string form falls through to ErrUnknownType.
const Unknown = 0

// ErrUnknownType is returned by an enum's String method when the value
// does not match any known constant.
var ErrUnknownType = errors.New("unknown")

// Sentinel errors wrapped by pkg/rtcerr's classified types at call sites
// in iceserver.go, datachannel.go, and peerconnection.go.
var (
	ErrConnectionClosed              = errors.New("peer connection closed")
	ErrNoConfig                      = errors.New("no configuration provided")
	ErrCertificateExpired            = errors.New("certificate expired")
	ErrNoTurnCredentials             = errors.New("turn server credentials required")
	ErrTurnCredentials               = errors.New("invalid turn server credentials")
	ErrModifyingPeerIdentity         = errors.New("peerIdentity cannot be modified")
	ErrModifyingCertificates         = errors.New("certificates cannot be modified")
	ErrModifyingBundlePolicy         = errors.New("bundle policy cannot be modified")
	ErrModifyingICECandidatePoolSize = errors.New("ice candidate pool size cannot be modified")
	ErrMaxDataChannels               = errors.New("maximum number of data channels reached")
	ErrDataChannelNotOpen            = errors.New("data channel not open")
	ErrInvalidValue                  = errors.New("invalid value")

	// Driver-ordering errors from spec §3 invariants: "DTLS handshake
	// cannot start before ICE reports a selected pair", "SRTP contexts are
	// populated exactly when DTLS completes".
	ErrICENotReady  = errors.New("ice agent has not selected a candidate pair")
	ErrDTLSNotReady = errors.New("dtls handshake has not completed")

	// Signaling-state ordering errors (spec §4.8 state machine).
	ErrWrongSignalingState = errors.New("operation invalid in current signaling state")

	errInvalidICEServerURL            = errors.New("invalid ice server url scheme")
	errInvalidICECredentialTypeString = errors.New("invalid ice credential type")
)

// classify wraps err as a pkg/rtcerr.Classified of the given kind, matching
// the taxonomy in spec §7.
func classify(kind rtcerr.Kind, err error) error {
	if err == nil {
		return nil
	}
	return rtcerr.New(kind, err)
}
