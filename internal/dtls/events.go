package dtls

// EventKind enumerates the outward-facing events an Endpoint surfaces via
// PollEvent (spec §4.4 "Events", mirrored after the ICE agent's event
// shape in internal/ice/events.go).
type EventKind int

const (
	EventHandshakeComplete EventKind = iota
	EventHandshakeFailed
	EventClosed
)

// Event is a single polled occurrence.
type Event struct {
	Kind EventKind

	// Populated on EventHandshakeComplete.
	SRTPProfile    SRTPProtectionProfile
	SRTPKeys       SRTPKeyingMaterial
	PeerCertificate []byte

	// Populated on EventHandshakeFailed.
	Err error
}
