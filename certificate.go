package rtc

import (
	"crypto/x509"
	"time"

	"github.com/google/uuid"
	"github.com/sansio/rtc/internal/dtls"
)

// DTLSFingerprint specifies the hash function algorithm and certificate
// fingerprint as described in RFC 4572.
type DTLSFingerprint struct {
	// Algorithm names one of the 'Hash function Textual Names' registry
	// entries this library supports (internal/dtls.FingerprintAlgorithm).
	Algorithm string

	// Value is the certificate fingerprint, lowercase colon-separated hex,
	// per RFC 4572 §5.
	Value string
}

// Certificate represents the certificate used to authenticate a
// PeerConnection's DTLS endpoint (spec §3 "DTLS handshake state" names the
// certificate implicitly via the handshake's local identity).
type Certificate struct {
	id   string
	cert *dtls.Certificate
	x509 *x509.Certificate
}

// newCertificate wraps an internal/dtls.Certificate with a stable id for
// the public surface. The DER form is pre-parsed once so Expires/Equals
// don't re-parse on every call.
func newCertificate(cert *dtls.Certificate) Certificate {
	parsed, _ := x509.ParseCertificate(cert.DER)
	return Certificate{id: uuid.NewString(), cert: cert, x509: parsed}
}

// GenerateCertificate creates a fresh self-signed ECDSA P-256 certificate
// (internal/dtls.GenerateSelfSigned), the only key type this endpoint
// negotiates (spec §4.4 lists ECDHE/ECDSA as the implemented suite).
func GenerateCertificate() (Certificate, error) {
	cert, err := dtls.GenerateSelfSigned()
	if err != nil {
		return Certificate{}, err
	}
	return newCertificate(cert), nil
}

// Expires returns the timestamp after which this certificate is no longer
// valid.
func (c Certificate) Expires() time.Time {
	if c.x509 == nil {
		return time.Time{}
	}
	return c.x509.NotAfter
}

// GetFingerprints returns this certificate's fingerprint under every
// algorithm internal/dtls supports, for inclusion in a local session
// description (the description's text form is out of scope; this library
// hands back the structured fields, spec §1 Non-goals "SDP text").
func (c Certificate) GetFingerprints() ([]DTLSFingerprint, error) {
	algos := []dtls.FingerprintAlgorithm{
		dtls.FingerprintSHA256,
		dtls.FingerprintSHA384,
		dtls.FingerprintSHA512,
	}
	out := make([]DTLSFingerprint, 0, len(algos))
	for _, algo := range algos {
		value, err := dtls.Fingerprint(c.cert.DER, algo)
		if err != nil {
			return nil, err
		}
		out = append(out, DTLSFingerprint{Algorithm: string(algo), Value: value})
	}
	return out, nil
}

// Equals determines if two certificates are identical by comparing their
// full DER encodings (x509.Certificate.Equal).
func (c Certificate) Equals(o Certificate) bool {
	if c.x509 == nil || o.x509 == nil {
		return false
	}
	return c.x509.Equal(o.x509)
}
