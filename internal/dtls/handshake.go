package dtls

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// HandshakeType is the DTLS handshake message type (RFC 6347 §4.3.2).
type HandshakeType byte

const (
	HandshakeHelloRequest       HandshakeType = 0
	HandshakeClientHello        HandshakeType = 1
	HandshakeServerHello        HandshakeType = 2
	HandshakeHelloVerifyRequest HandshakeType = 3
	HandshakeCertificate        HandshakeType = 11
	HandshakeServerKeyExchange  HandshakeType = 12
	HandshakeCertificateRequest HandshakeType = 13
	HandshakeServerHelloDone    HandshakeType = 14
	HandshakeCertificateVerify  HandshakeType = 15
	HandshakeClientKeyExchange  HandshakeType = 16
	HandshakeFinished           HandshakeType = 20
)

const handshakeHeaderLen = 12

// HandshakeHeader is the per-message header that rides atop the record
// layer: msg_type, length, message_seq, and the fragment offset/length
// pair (RFC 6347 §4.2.2). This endpoint never fragments a handshake
// message across records (spec §4.4 Non-goals), so fragment_offset is
// always 0 and fragment_length always equals length.
type HandshakeHeader struct {
	Type           HandshakeType
	Length         uint32 // 24 bits on the wire
	MessageSeq     uint16
	FragmentOffset uint32 // 24 bits on the wire
	FragmentLength uint32 // 24 bits on the wire
}

// HandshakeMessage pairs a header with its body.
type HandshakeMessage struct {
	Header HandshakeHeader
	Body   []byte
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// EncodeHandshakeMessage serializes a header+body as a single unfragmented
// handshake message.
func EncodeHandshakeMessage(msgType HandshakeType, seq uint16, body []byte) []byte {
	buf := make([]byte, handshakeHeaderLen+len(body))
	buf[0] = byte(msgType)
	putUint24(buf[1:4], uint32(len(body)))
	binary.BigEndian.PutUint16(buf[4:6], seq)
	putUint24(buf[6:9], 0)
	putUint24(buf[9:12], uint32(len(body)))
	copy(buf[handshakeHeaderLen:], body)
	return buf
}

// DecodeHandshakeMessage parses a single (unfragmented) handshake message
// out of a record body.
func DecodeHandshakeMessage(raw []byte) (*HandshakeMessage, error) {
	if len(raw) < handshakeHeaderLen {
		return nil, fmt.Errorf("dtls: handshake header truncated")
	}
	h := HandshakeHeader{
		Type:           HandshakeType(raw[0]),
		Length:         uint24(raw[1:4]),
		MessageSeq:     binary.BigEndian.Uint16(raw[4:6]),
		FragmentOffset: uint24(raw[6:9]),
		FragmentLength: uint24(raw[9:12]),
	}
	if handshakeHeaderLen+int(h.FragmentLength) > len(raw) {
		return nil, fmt.Errorf("dtls: handshake body truncated")
	}
	body := append([]byte{}, raw[handshakeHeaderLen:handshakeHeaderLen+int(h.FragmentLength)]...)
	return &HandshakeMessage{Header: h, Body: body}, nil
}

// ClientHello is the subset of RFC 6347 ClientHello fields this endpoint
// negotiates: no compression methods beyond "null", and only the
// extensions relevant to WebRTC (supported_groups, use_srtp,
// extended_master_secret) (spec §4.4, §4.6).
type ClientHello struct {
	Random         [32]byte
	Cookie         []byte
	CipherSuites   []CipherSuiteID
	NamedCurves    []NamedCurve
	SRTPProfiles   []SRTPProtectionProfile
	UseExtendedMS  bool
}

// EncodeClientHello serializes a ClientHello body (legacy_version fixed to
// DTLS 1.2, {254,253}).
func EncodeClientHello(ch ClientHello) []byte {
	buf := []byte{254, 253}
	buf = append(buf, ch.Random[:]...)
	buf = append(buf, 0) // session_id length
	buf = append(buf, byte(len(ch.Cookie)))
	buf = append(buf, ch.Cookie...)

	csLen := len(ch.CipherSuites) * 2
	buf = append(buf, byte(csLen>>8), byte(csLen))
	for _, cs := range ch.CipherSuites {
		buf = append(buf, byte(cs>>8), byte(cs))
	}
	buf = append(buf, 1, 0) // compression_methods: [null]

	ext := encodeClientExtensions(ch)
	buf = append(buf, byte(len(ext)>>8), byte(len(ext)))
	buf = append(buf, ext...)
	return buf
}

const (
	extSupportedGroups     uint16 = 10
	extUseSRTP             uint16 = 14
	extExtendedMasterSecret uint16 = 23
)

func encodeClientExtensions(ch ClientHello) []byte {
	var ext []byte

	if len(ch.NamedCurves) > 0 {
		var groups []byte
		for _, g := range ch.NamedCurves {
			groups = append(groups, byte(g>>8), byte(g))
		}
		ext = appendExtension(ext, extSupportedGroups, prefixed16(groups))
	}
	if len(ch.SRTPProfiles) > 0 {
		var profiles []byte
		for _, p := range ch.SRTPProfiles {
			profiles = append(profiles, byte(p>>8), byte(p))
		}
		body := append(prefixed16(profiles), 0) // empty MKI
		ext = appendExtension(ext, extUseSRTP, body)
	}
	if ch.UseExtendedMS {
		ext = appendExtension(ext, extExtendedMasterSecret, nil)
	}
	return ext
}

func prefixed16(b []byte) []byte {
	return append([]byte{byte(len(b) >> 8), byte(len(b))}, b...)
}

func appendExtension(dst []byte, id uint16, body []byte) []byte {
	dst = append(dst, byte(id>>8), byte(id))
	dst = append(dst, byte(len(body)>>8), byte(len(body)))
	return append(dst, body...)
}

// DecodeClientHello parses a ClientHello body with cryptobyte's
// length-prefixed string reader, the same parser-combinator style the
// standard library's own TLS 1.2 ClientHello decoder uses.
func DecodeClientHello(body []byte) (*ClientHello, error) {
	s := cryptobyte.String(body)
	ch := &ClientHello{}

	var legacyVersion uint16
	var random []byte
	var sessionID, cookie, cipherSuites, compressionMethods cryptobyte.String
	if !s.ReadUint16(&legacyVersion) ||
		!s.ReadBytes(&random, 32) ||
		!s.ReadUint8LengthPrefixed(&sessionID) ||
		!s.ReadUint8LengthPrefixed(&cookie) ||
		!s.ReadUint16LengthPrefixed(&cipherSuites) ||
		!s.ReadUint8LengthPrefixed(&compressionMethods) {
		return nil, fmt.Errorf("dtls: ClientHello truncated")
	}
	copy(ch.Random[:], random)
	ch.Cookie = append([]byte{}, cookie...)

	for !cipherSuites.Empty() {
		var cs uint16
		if !cipherSuites.ReadUint16(&cs) {
			return nil, fmt.Errorf("dtls: ClientHello cipher_suites malformed")
		}
		ch.CipherSuites = append(ch.CipherSuites, CipherSuiteID(cs))
	}

	if s.Empty() {
		return ch, nil
	}
	var extensions cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&extensions) {
		return nil, fmt.Errorf("dtls: ClientHello extensions malformed")
	}
	if err := parseClientExtensions(extensions, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func parseClientExtensions(extensions cryptobyte.String, ch *ClientHello) error {
	for !extensions.Empty() {
		var id uint16
		var extData cryptobyte.String
		if !extensions.ReadUint16(&id) || !extensions.ReadUint16LengthPrefixed(&extData) {
			return fmt.Errorf("dtls: ClientHello extension header malformed")
		}
		switch id {
		case extSupportedGroups:
			var groups cryptobyte.String
			if !extData.ReadUint16LengthPrefixed(&groups) {
				continue
			}
			for !groups.Empty() {
				var g uint16
				if !groups.ReadUint16(&g) {
					break
				}
				ch.NamedCurves = append(ch.NamedCurves, NamedCurve(g))
			}
		case extUseSRTP:
			var profiles cryptobyte.String
			if !extData.ReadUint16LengthPrefixed(&profiles) {
				continue
			}
			for !profiles.Empty() {
				var p uint16
				if !profiles.ReadUint16(&p) {
					break
				}
				ch.SRTPProfiles = append(ch.SRTPProfiles, SRTPProtectionProfile(p))
			}
		case extExtendedMasterSecret:
			ch.UseExtendedMS = true
		}
	}
	return nil
}

// HelloVerifyRequest carries the server's anti-DoS cookie (RFC 6347 §4.2.1).
type HelloVerifyRequest struct {
	Cookie []byte
}

func EncodeHelloVerifyRequest(h HelloVerifyRequest) []byte {
	buf := []byte{254, 253, byte(len(h.Cookie))}
	return append(buf, h.Cookie...)
}

func DecodeHelloVerifyRequest(body []byte) (*HelloVerifyRequest, error) {
	if len(body) < 3 {
		return nil, fmt.Errorf("dtls: HelloVerifyRequest truncated")
	}
	l := int(body[2])
	if 3+l > len(body) {
		return nil, fmt.Errorf("dtls: HelloVerifyRequest cookie truncated")
	}
	return &HelloVerifyRequest{Cookie: append([]byte{}, body[3:3+l]...)}, nil
}

// ServerHello is the server's negotiated-parameter response (RFC 6347 §4.3.1).
type ServerHello struct {
	Random        [32]byte
	CipherSuite   CipherSuiteID
	UseSRTP       SRTPProtectionProfile
	HasSRTP       bool
	UseExtendedMS bool
}

func EncodeServerHello(sh ServerHello) []byte {
	buf := []byte{254, 253}
	buf = append(buf, sh.Random[:]...)
	buf = append(buf, 0) // session_id
	buf = append(buf, byte(sh.CipherSuite>>8), byte(sh.CipherSuite))
	buf = append(buf, 0) // compression_method: null

	var ext []byte
	if sh.HasSRTP {
		body := append([]byte{0, 2, byte(sh.UseSRTP >> 8), byte(sh.UseSRTP)}, 0)
		ext = appendExtension(ext, extUseSRTP, body)
	}
	if sh.UseExtendedMS {
		ext = appendExtension(ext, extExtendedMasterSecret, nil)
	}
	buf = append(buf, byte(len(ext)>>8), byte(len(ext)))
	buf = append(buf, ext...)
	return buf
}

func DecodeServerHello(body []byte) (*ServerHello, error) {
	s := cryptobyte.String(body)
	sh := &ServerHello{}

	var legacyVersion uint16
	var random []byte
	var sessionID cryptobyte.String
	var cipherSuite uint16
	var compressionMethod uint8
	if !s.ReadUint16(&legacyVersion) ||
		!s.ReadBytes(&random, 32) ||
		!s.ReadUint8LengthPrefixed(&sessionID) ||
		!s.ReadUint16(&cipherSuite) ||
		!s.ReadUint8(&compressionMethod) {
		return nil, fmt.Errorf("dtls: ServerHello truncated")
	}
	copy(sh.Random[:], random)
	sh.CipherSuite = CipherSuiteID(cipherSuite)

	if s.Empty() {
		return sh, nil
	}
	var extensions cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&extensions) {
		return nil, fmt.Errorf("dtls: ServerHello extensions malformed")
	}
	for !extensions.Empty() {
		var id uint16
		var extData cryptobyte.String
		if !extensions.ReadUint16(&id) || !extensions.ReadUint16LengthPrefixed(&extData) {
			return nil, fmt.Errorf("dtls: ServerHello extension header malformed")
		}
		switch id {
		case extUseSRTP:
			var profiles cryptobyte.String
			var profile uint16
			if extData.ReadUint16LengthPrefixed(&profiles) && profiles.ReadUint16(&profile) {
				sh.HasSRTP = true
				sh.UseSRTP = SRTPProtectionProfile(profile)
			}
		case extExtendedMasterSecret:
			sh.UseExtendedMS = true
		}
	}
	return sh, nil
}

// Finished carries the verify_data computed over the handshake transcript
// (RFC 6347 §4.2.9 adjacent, RFC 5246 §7.4.9).
type Finished struct {
	VerifyData []byte
}

func EncodeFinished(f Finished) []byte {
	return append([]byte{}, f.VerifyData...)
}

func DecodeFinished(body []byte) *Finished {
	return &Finished{VerifyData: append([]byte{}, body...)}
}

// VerifyData computes the Finished message content (RFC 5246 §7.4.9):
// PRF(master_secret, label, Hash(handshake_messages))[0:12].
func VerifyData(masterSecret []byte, label string, transcriptHash []byte) []byte {
	return PRF12(masterSecret, label, transcriptHash, 12)
}

const (
	LabelClientFinished = "client finished"
	LabelServerFinished = "server finished"
)
