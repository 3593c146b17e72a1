package dtls

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// EncodeCertificateMessage wraps a single DER certificate in the
// RFC 6347 Certificate message's certificate_list framing (this endpoint
// never sends a chain, only the leaf, consistent with WebRTC's
// fingerprint-only trust model).
func EncodeCertificateMessage(der []byte) []byte {
	buf := make([]byte, 3+3+len(der))
	putUint24(buf[3:6], uint32(len(der)))
	copy(buf[6:], der)
	putUint24(buf[0:3], uint32(3+len(der)))
	return buf
}

// DecodeCertificateMessage extracts the leaf certificate DER.
func DecodeCertificateMessage(body []byte) ([]byte, error) {
	if len(body) < 6 {
		return nil, fmt.Errorf("dtls: Certificate message truncated")
	}
	certLen := uint24(body[3:6])
	if 6+int(certLen) > len(body) {
		return nil, fmt.Errorf("dtls: certificate truncated")
	}
	return append([]byte{}, body[6:6+certLen]...), nil
}

// EncodeServerKeyExchange builds an ECDHE ServerKeyExchange: named curve,
// ephemeral public key, and an ECDSA signature over
// client_random||server_random||curve_params||pubkey (RFC 4492-style
// framing, adapted for the single curve this endpoint negotiates).
func EncodeServerKeyExchange(curve NamedCurve, pub *ecdh.PublicKey, signer *ecdsa.PrivateKey, clientRandom, serverRandom [32]byte) ([]byte, error) {
	pubBytes := pub.Bytes()
	params := []byte{3 /* named_curve */, byte(curve >> 8), byte(curve), byte(len(pubBytes))}
	params = append(params, pubBytes...)

	digest := sha256.New()
	digest.Write(clientRandom[:])
	digest.Write(serverRandom[:])
	digest.Write(params)
	sig, err := ecdsa.SignASN1(rand.Reader, signer, digest.Sum(nil))
	if err != nil {
		return nil, err
	}

	buf := append([]byte{}, params...)
	buf = append(buf, 4, 3) // SignatureAndHashAlgorithm: ecdsa+sha256
	buf = append(buf, byte(len(sig)>>8), byte(len(sig)))
	buf = append(buf, sig...)
	return buf, nil
}

// DecodedServerKeyExchange is the parsed result of DecodeServerKeyExchange.
type DecodedServerKeyExchange struct {
	Curve     NamedCurve
	PublicKey []byte
	Signature []byte
	Params    []byte
}

func DecodeServerKeyExchange(body []byte) (*DecodedServerKeyExchange, error) {
	if len(body) < 4 || body[0] != 3 {
		return nil, fmt.Errorf("dtls: ServerKeyExchange: unsupported curve encoding")
	}
	curve := NamedCurve(binary.BigEndian.Uint16(body[1:3]))
	pubLen := int(body[3])
	if 4+pubLen > len(body) {
		return nil, fmt.Errorf("dtls: ServerKeyExchange pubkey truncated")
	}
	params := body[0 : 4+pubLen]
	pub := body[4 : 4+pubLen]
	off := 4 + pubLen
	if off+4 > len(body) {
		return nil, fmt.Errorf("dtls: ServerKeyExchange signature header truncated")
	}
	off += 2 // signature_algorithm
	sigLen := int(binary.BigEndian.Uint16(body[off : off+2]))
	off += 2
	if off+sigLen > len(body) {
		return nil, fmt.Errorf("dtls: ServerKeyExchange signature truncated")
	}
	return &DecodedServerKeyExchange{
		Curve:     curve,
		PublicKey: append([]byte{}, pub...),
		Signature: append([]byte{}, body[off:off+sigLen]...),
		Params:    append([]byte{}, params...),
	}, nil
}

// VerifyServerKeyExchangeSignature checks the ECDSA signature against the
// peer certificate's public key.
func VerifyServerKeyExchangeSignature(peerCert []byte, dske *DecodedServerKeyExchange, clientRandom, serverRandom [32]byte) error {
	cert, err := ParseCertificate(peerCert)
	if err != nil {
		return err
	}
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("dtls: peer certificate is not ECDSA")
	}
	digest := sha256.New()
	digest.Write(clientRandom[:])
	digest.Write(serverRandom[:])
	digest.Write(dske.Params)
	if !ecdsa.VerifyASN1(pub, digest.Sum(nil), dske.Signature) {
		return fmt.Errorf("dtls: ServerKeyExchange signature verification failed")
	}
	return nil
}

// EncodeClientKeyExchange carries the client's ephemeral ECDHE public key
// (RFC 4492 §5.7, ClientECDiffieHellmanPublic, explicit form).
func EncodeClientKeyExchange(pub *ecdh.PublicKey) []byte {
	b := pub.Bytes()
	return append([]byte{byte(len(b))}, b...)
}

func DecodeClientKeyExchange(body []byte) ([]byte, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("dtls: ClientKeyExchange truncated")
	}
	l := int(body[0])
	if 1+l > len(body) {
		return nil, fmt.Errorf("dtls: ClientKeyExchange pubkey truncated")
	}
	return append([]byte{}, body[1:1+l]...), nil
}

// curveP256 is the only named curve this endpoint negotiates (spec §4.6).
func curveP256() ecdh.Curve { return ecdh.P256() }
