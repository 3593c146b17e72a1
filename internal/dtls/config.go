package dtls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"
)

// Certificate is the self-signed certificate/key pair this endpoint
// presents in its Certificate handshake message (spec §4.4, §8 scenario
// S2). WebRTC never validates a certificate chain; only the out-of-band
// fingerprint matters (VerifyFingerprint in fingerprint.go).
type Certificate struct {
	PrivateKey *ecdsa.PrivateKey
	DER        []byte
}

// GenerateSelfSigned creates a short-lived ECDSA P-256 self-signed
// certificate suitable for a DTLS endpoint (spec §4.4 "Certificate").
func GenerateSelfSigned() (*Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "sansio-rtc"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return &Certificate{PrivateKey: key, DER: der}, nil
}

// Config configures a new Endpoint (spec §4.4 "Configuration").
type Config struct {
	Role        Role
	Certificate *Certificate

	// PeerFingerprint and PeerFingerprintAlgorithm are the value/hash the
	// remote side advertised out of band (e.g. via SDP, outside this
	// package's scope). A client endpoint checks them against the server's
	// Certificate message when ServerHelloDone arrives; a server endpoint
	// does not request or check a client certificate.
	PeerFingerprint          string
	PeerFingerprintAlgorithm FingerprintAlgorithm

	// LocalFingerprintAlgorithm selects the hash used when this endpoint
	// reports its own certificate's fingerprint via LocalFingerprint.
	LocalFingerprintAlgorithm FingerprintAlgorithm

	SRTPProfiles []SRTPProtectionProfile

	ExtendedMasterSecret bool

	ReplayWindow uint

	InitialRetransmitTimeout time.Duration
	MaxRetransmitTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Certificate == nil {
		cert, err := GenerateSelfSigned()
		if err == nil {
			c.Certificate = cert
		}
	}
	if len(c.SRTPProfiles) == 0 {
		c.SRTPProfiles = []SRTPProtectionProfile{SRTP_AEAD_AES_128_GCM, SRTP_AES128_CM_HMAC_SHA1_80}
	}
	if c.LocalFingerprintAlgorithm == "" {
		c.LocalFingerprintAlgorithm = FingerprintSHA256
	}
	if c.ReplayWindow == 0 {
		c.ReplayWindow = DefaultReplayWindow
	}
	if c.InitialRetransmitTimeout == 0 {
		c.InitialRetransmitTimeout = initialRetransmitTimeout
	}
	if c.MaxRetransmitTimeout == 0 {
		c.MaxRetransmitTimeout = maxRetransmitTimeout
	}
	return c
}

// LocalFingerprint returns this endpoint's own certificate fingerprint,
// for the host to advertise out of band.
func (c Config) LocalFingerprint() (string, error) {
	return Fingerprint(c.Certificate.DER, c.LocalFingerprintAlgorithm)
}
