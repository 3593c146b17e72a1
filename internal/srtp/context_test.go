package srtp

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys() ([]byte, []byte) {
	return make([]byte, keyLen), make([]byte, saltLen)
}

func TestProtectUnprotectRTPRoundTrip(t *testing.T) {
	key, salt := testKeys()
	ctx, err := NewContext(key, salt)
	require.NoError(t, err)

	pkt := &rtp.Packet{
		Header:  rtp.Header{Version: 2, SequenceNumber: 100, Timestamp: 1000, SSRC: 42},
		Payload: []byte("audio-frame"),
	}
	protected, err := ctx.ProtectRTPPacket(pkt)
	require.NoError(t, err)

	decoded, err := ctx.UnprotectRTPPacket(protected)
	require.NoError(t, err)
	assert.Equal(t, pkt.Payload, decoded.Payload)
	assert.Equal(t, pkt.SSRC, decoded.SSRC)
}

// TestReplayProtection exercises spec §8 property 6: a second delivery of
// the same (SSRC, seq) must be rejected.
func TestReplayProtection(t *testing.T) {
	key, salt := testKeys()
	ctx, err := NewContext(key, salt)
	require.NoError(t, err)

	pkt := &rtp.Packet{Header: rtp.Header{SequenceNumber: 7, SSRC: 1}, Payload: []byte("x")}
	protected, err := ctx.ProtectRTPPacket(pkt)
	require.NoError(t, err)

	_, err = ctx.UnprotectRTPPacket(protected)
	require.NoError(t, err)

	_, err = ctx.UnprotectRTPPacket(protected)
	assert.Error(t, err)
}

func TestRolloverCounterWraps(t *testing.T) {
	st := &ssrcState{}
	st.updateROC(65530)
	roc := st.updateROC(5) // wrapped past 65535 -> 0
	assert.Equal(t, uint32(1), roc)
}
