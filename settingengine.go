package rtc

import (
	"errors"
	"time"

	"github.com/pion/logging"
)

// SettingEngine allows influencing behavior in ways that are not
// supported by the public W3C-shaped API (spec §6 "Construction":
// "setting-engine knobs"). Everything here configures an internal engine
// directly rather than going through Configuration.
type SettingEngine struct {
	ephemeralUDP struct {
		PortMin uint16
		PortMax uint16
	}
	timeout struct {
		ICEConnection *time.Duration
		ICEKeepalive  *time.Duration
	}
	candidates struct {
		ICENetworkTypes  []NetworkType
		UsernameFragment string
		Password         string
	}
	answeringDTLSRole                         DTLSRole
	disableCertificateFingerprintVerification bool
	srtpReplayWindow                          int
	sctpMaxMessageSize                        int
	interceptors                              []string
	LoggerFactory                             logging.LoggerFactory
}

// SetConnectionTimeout sets the amount of silence needed on a given
// candidate pair before the ICE agent considers the pair timed out.
func (e *SettingEngine) SetConnectionTimeout(connectionTimeout, keepAlive time.Duration) {
	e.timeout.ICEConnection = &connectionTimeout
	e.timeout.ICEKeepalive = &keepAlive
}

// SetEphemeralUDPPortRange limits the pool of ephemeral ports the host's
// socket layer should allocate from for ICE candidates; the ICE agent
// itself never opens a socket (sans-I/O), so this is advisory metadata the
// host's transport layer reads when gathering host candidates.
func (e *SettingEngine) SetEphemeralUDPPortRange(portMin, portMax uint16) error {
	if portMax < portMin {
		return errInvalidPortRange
	}
	e.ephemeralUDP.PortMin = portMin
	e.ephemeralUDP.PortMax = portMax
	return nil
}

// SetICECredentials sets a static ufrag/pwd instead of generating one on
// construction, useful for a reproducible environment or a signalless
// session.
func (e *SettingEngine) SetICECredentials(usernameFragment, password string) {
	e.candidates.UsernameFragment = usernameFragment
	e.candidates.Password = password
}

// SetNetworkTypes restricts which network types (spec §3 "ICE candidate")
// host candidates are gathered for. Remote candidates passed to
// AddRemoteCandidate are not filtered by it.
func (e *SettingEngine) SetNetworkTypes(candidateTypes []NetworkType) {
	e.candidates.ICENetworkTypes = candidateTypes
}

// SetAnsweringDTLSRole sets the DTLS role to resolve to when
// Configuration.Certificates / ICE leave it auto-resolved (spec §3 "DTLS
// handshake state" names role as explicit agent state).
func (e *SettingEngine) SetAnsweringDTLSRole(role DTLSRole) error {
	if role != DTLSRoleClient && role != DTLSRoleServer {
		return errAnsweringDTLSRole
	}
	e.answeringDTLSRole = role
	return nil
}

// DisableCertificateFingerprintVerification records whether fingerprint
// verification is disabled. PeerConnection does not read the flag, and it
// gives its DTLS endpoint no peer fingerprint, so no fingerprint check
// runs whether or not the flag is set.
func (e *SettingEngine) DisableCertificateFingerprintVerification(isDisabled bool) {
	e.disableCertificateFingerprintVerification = isDisabled
}

// SetSRTPReplayProtectionWindow records an SRTP/SRTCP replay-window size
// (spec §3 "SRTP context" / §8 property 6). The value stays on the
// SettingEngine: internal/srtp.Context always uses a fixed replay window
// of 128 packets.
func (e *SettingEngine) SetSRTPReplayProtectionWindow(n int) {
	e.srtpReplayWindow = n
}

// SetSCTPMaxMessageSize bounds the payload size SendMessage accepts
// before returning a Capacity error (spec §5 "Backpressure": "reject
// application write when the outbound association buffer is full").
func (e *SettingEngine) SetSCTPMaxMessageSize(n int) {
	e.sctpMaxMessageSize = n
}

var (
	errInvalidPortRange  = errors.New("port max must be >= port min")
	errAnsweringDTLSRole = errors.New("answering dtls role must be DTLSRoleClient or DTLSRoleServer")
)
