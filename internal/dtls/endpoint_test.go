package dtls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drive pumps writes from src into dst's HandleRead until src has nothing
// queued, simulating the socket layer a real host provides.
func drive(t *testing.T, now int64, src, dst *Endpoint) {
	t.Helper()
	for {
		w, ok := src.PollWrite()
		if !ok {
			return
		}
		require.NoError(t, dst.HandleRead(now, w.Payload))
	}
}

// TestHandshakeSelfSigned exercises spec §8 scenario S2: a client and
// server endpoint, each with a self-signed certificate whose fingerprint
// the other side has out of band, complete a handshake and derive
// matching SRTP keying material.
func TestHandshakeSelfSigned(t *testing.T) {
	serverCert, err := GenerateSelfSigned()
	require.NoError(t, err)
	clientCert, err := GenerateSelfSigned()
	require.NoError(t, err)

	serverFP, err := Fingerprint(serverCert.DER, FingerprintSHA256)
	require.NoError(t, err)

	server, err := NewEndpoint(Config{
		Role:        RoleServer,
		Certificate: serverCert,
	})
	require.NoError(t, err)

	client, err := NewEndpoint(Config{
		Role:                     RoleClient,
		Certificate:              clientCert,
		PeerFingerprint:          serverFP,
		PeerFingerprintAlgorithm: FingerprintSHA256,
	})
	require.NoError(t, err)

	now := int64(0)
	for i := 0; i < 6 && !(client.HandshakeComplete() && server.HandshakeComplete()); i++ {
		now++
		drive(t, now, client, server)
		drive(t, now, server, client)
	}

	require.True(t, client.HandshakeComplete())
	require.True(t, server.HandshakeComplete())

	var clientEvt, serverEvt Event
	for {
		e, ok := client.PollEvent()
		if !ok {
			break
		}
		clientEvt = e
	}
	for {
		e, ok := server.PollEvent()
		if !ok {
			break
		}
		serverEvt = e
	}

	require.Equal(t, EventHandshakeComplete, clientEvt.Kind)
	require.Equal(t, EventHandshakeComplete, serverEvt.Kind)
	assert.Equal(t, clientEvt.SRTPKeys, serverEvt.SRTPKeys)
	assert.NotEmpty(t, clientEvt.SRTPKeys.ClientMasterKey)
}

func TestRecordRoundTrip(t *testing.T) {
	r := Record{Type: ContentTypeApplicationData, Version: [2]byte{254, 253}, Epoch: 1, SeqNo: 42, Body: []byte("hello")}
	buf := EncodeRecord(r)
	decoded, err := DecodeRecords(buf)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, r, decoded[0])
}

func TestEpochReplayProtection(t *testing.T) {
	e := NewEpochState(1, 64)
	require.NoError(t, e.SetAEADKey(make([]byte, 16)))
	var salt [4]byte

	sealed, seq, err := e.SealApplicationData(salt, []byte("payload"), nil)
	require.NoError(t, err)

	plain, err := e.OpenApplicationData(salt, seq, sealed, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), plain)

	_, err = e.OpenApplicationData(salt, seq, sealed, nil)
	assert.Error(t, err, "replayed sequence number must be rejected")
}

func TestFingerprintRoundTrip(t *testing.T) {
	cert, err := GenerateSelfSigned()
	require.NoError(t, err)
	fp, err := Fingerprint(cert.DER, FingerprintSHA256)
	require.NoError(t, err)

	ok, err := VerifyFingerprint(cert.DER, FingerprintSHA256, fp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyFingerprint(cert.DER, FingerprintSHA256, "00:11:22")
	require.NoError(t, err)
	assert.False(t, ok)
}
