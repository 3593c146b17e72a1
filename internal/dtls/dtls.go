// Package dtls implements a sans-I/O DTLS 1.2 endpoint (spec §4.4): a
// flight-numbered handshake state machine, a record layer with replay
// protection, fingerprint verification, and SRTP keying-material export.
// It owns exactly one handshake/record-layer instance per peer connection
// (spec §3 invariant; DESIGN.md Open Question 1).
package dtls

import "time"

// Role is the DTLS handshake role.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Flight is the numbered handshake step (RFC 6347).
type Flight int

const (
	Flight0 Flight = iota // server: waiting for ClientHello
	Flight1               // client: waiting for HelloVerifyRequest
	Flight2               // server: sent HelloVerifyRequest
	Flight3               // client: sent cookie-bearing ClientHello
	Flight4               // server: sent ServerHello..ServerHelloDone
	Flight5               // client: sent ClientKeyExchange..Finished
	Flight6               // server: sent ChangeCipherSpec+Finished
	FlightDone
)

// HandshakeState is the mutable handshake-in-progress state (spec §3
// "DTLS handshake state").
type HandshakeState struct {
	Flight Flight
	Role   Role

	LocalRandom, RemoteRandom [32]byte
	LocalEpoch, RemoteEpoch   uint16

	CipherSuite   CipherSuiteID
	NamedCurve    NamedCurve
	MasterSecret  []byte
	SRTPProfile   SRTPProtectionProfile
	UseSRTP       bool
	ExtendedMasterSecret bool

	Cookie []byte

	SeqNo uint16 // handshake message_seq counter for the local side

	retransmitBuf   [][]byte
	retransmitTimer time.Duration
	retransmitDue   int64
}

const (
	initialRetransmitTimeout = 1 * time.Second
	maxRetransmitTimeout     = 60 * time.Second
)

// CipherSuiteID enumerates the cipher suites this endpoint negotiates.
type CipherSuiteID uint16

const (
	TLS_PSK_WITH_AES_128_CCM_8              CipherSuiteID = 0xC0A8
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256 CipherSuiteID = 0xC02B
)

// NamedCurve enumerates the ECDHE curves this endpoint negotiates.
type NamedCurve uint16

const (
	NamedCurveP256 NamedCurve = 23
)

// SRTPProtectionProfile enumerates use_srtp profiles (RFC 5764).
type SRTPProtectionProfile uint16

const (
	SRTP_AES128_CM_HMAC_SHA1_80 SRTPProtectionProfile = 0x0001
	SRTP_AES128_CM_HMAC_SHA1_32 SRTPProtectionProfile = 0x0002
	SRTP_AEAD_AES_128_GCM       SRTPProtectionProfile = 0x0007
	SRTP_AEAD_AES_256_GCM       SRTPProtectionProfile = 0x0008
)
