package dtls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientHelloRoundTrip(t *testing.T) {
	ch := ClientHello{
		CipherSuites:  []CipherSuiteID{TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256},
		NamedCurves:   []NamedCurve{NamedCurveP256},
		SRTPProfiles:  []SRTPProtectionProfile{SRTP_AEAD_AES_128_GCM, SRTP_AES128_CM_HMAC_SHA1_80},
		UseExtendedMS: true,
		Cookie:        []byte{1, 2, 3, 4},
	}
	ch.Random[0] = 0xAB

	decoded, err := DecodeClientHello(EncodeClientHello(ch))
	require.NoError(t, err)
	assert.Equal(t, ch.Random, decoded.Random)
	assert.Equal(t, ch.Cookie, decoded.Cookie)
	assert.Equal(t, ch.CipherSuites, decoded.CipherSuites)
	assert.Equal(t, ch.NamedCurves, decoded.NamedCurves)
	assert.Equal(t, ch.SRTPProfiles, decoded.SRTPProfiles)
	assert.True(t, decoded.UseExtendedMS)
}

func TestServerHelloRoundTrip(t *testing.T) {
	sh := ServerHello{
		CipherSuite:   TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		UseSRTP:       SRTP_AEAD_AES_128_GCM,
		HasSRTP:       true,
		UseExtendedMS: true,
	}
	sh.Random[1] = 0xCD

	decoded, err := DecodeServerHello(EncodeServerHello(sh))
	require.NoError(t, err)
	assert.Equal(t, sh.Random, decoded.Random)
	assert.Equal(t, sh.CipherSuite, decoded.CipherSuite)
	assert.True(t, decoded.HasSRTP)
	assert.Equal(t, sh.UseSRTP, decoded.UseSRTP)
	assert.True(t, decoded.UseExtendedMS)
}

func TestHandshakeMessageRoundTrip(t *testing.T) {
	body := []byte("fake-body")
	msg := EncodeHandshakeMessage(HandshakeCertificate, 3, body)
	decoded, err := DecodeHandshakeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, HandshakeCertificate, decoded.Header.Type)
	assert.Equal(t, uint16(3), decoded.Header.MessageSeq)
	assert.Equal(t, body, decoded.Body)
}
