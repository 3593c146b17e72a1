// Package transport defines the single envelope type that crosses every
// sans-I/O protocol engine boundary in this module. Every engine's
// handle_read/poll_write surface consumes and produces Message values so
// that routing information (addresses, protocol, ECN, arrival time) is
// never dropped on the way through the pipeline.
package transport

import (
	"net"

	"golang.org/x/net/ipv4"
)

// Protocol is the transport-layer protocol a Message travelled over.
type Protocol int

const (
	// ProtocolUDP is a datagram transport.
	ProtocolUDP Protocol = iota
	// ProtocolTCP is a stream transport framed by RFC 4571 length prefixes
	// upstream of the engines in this module.
	ProtocolTCP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolUDP:
		return "udp"
	case ProtocolTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// ECN re-exports golang.org/x/net/ipv4's explicit-congestion-notification
// codepoints as the wire representation carried on every Message. The core
// never touches a socket, but ECN is still meaningful state a host reads
// off its datagram and threads through for congestion-aware interceptors.
type ECN = ipv4.ECNCodepoint

const (
	ECNNotECT = ipv4.ECNNotECT
	ECNECT1   = ipv4.ECNECT1
	ECNECT0   = ipv4.ECNECT0
	ECNCE     = ipv4.ECNCE
)

// Tuple describes the local/peer address pair and protocol a Message was
// read from or should be written to.
type Tuple struct {
	Local    net.Addr
	Peer     net.Addr
	Protocol Protocol
	ECN      ECN
}

// Message is the generic sans-I/O envelope. T is typically []byte at the
// demultiplexer boundary and a decoded value (a STUN message, a DTLS
// record, an RTP packet, ...) once an engine has parsed its payload.
type Message[T any] struct {
	Now       int64 // unix nanoseconds; engines never call time.Now themselves
	Transport Tuple
	Payload   T
}

// Raw is the envelope shape the demultiplexer consumes and the shape every
// engine's poll_write emits back to the host.
type Raw = Message[[]byte]

// New builds a Message, useful at call sites that construct an envelope in
// one expression.
func New[T any](now int64, tr Tuple, payload T) Message[T] {
	return Message[T]{Now: now, Transport: tr, Payload: payload}
}

// WithPayload rewraps an envelope around a new payload, preserving Now and
// Transport. Used when an engine decodes Payload from []byte into a typed
// value, or re-encodes a typed value back to []byte for poll_write.
func WithPayload[T, U any](m Message[T], payload U) Message[U] {
	return Message[U]{Now: m.Now, Transport: m.Transport, Payload: payload}
}
