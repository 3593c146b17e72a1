package sctp

import (
	"testing"

	"github.com/sansio/rtc/pkg/rtcerr"
	"github.com/sansio/rtc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drive(t *testing.T, now int64, src, dst *Association) {
	t.Helper()
	for {
		w, ok := src.PollWrite()
		if !ok {
			return
		}
		from := transport.Tuple{Peer: w.Transport.Local, Local: w.Transport.Peer}
		require.NoError(t, dst.HandleRead(now, w.Payload, from))
	}
}

func newPair(t *testing.T) (client, server *Association) {
	t.Helper()
	client, err := NewAssociation(Config{})
	require.NoError(t, err)
	server, err = NewAssociation(Config{})
	require.NoError(t, err)
	require.NoError(t, client.Associate(0, transport.Tuple{Protocol: transport.ProtocolUDP}))
	return client, server
}

// TestAssociationHandshake exercises spec §8 scenario S4's setup: the
// four-way INIT/INIT-ACK/COOKIE-ECHO/COOKIE-ACK exchange reaches
// Established on both sides.
func TestAssociationHandshake(t *testing.T) {
	client, server := newPair(t)

	now := int64(0)
	for i := 0; i < 4; i++ {
		now++
		drive(t, now, client, server)
		drive(t, now, server, client)
	}

	assert.Equal(t, StateEstablished, client.State())
	assert.Equal(t, StateEstablished, server.State())
}

// TestDataEchoRoundTrip exercises spec §8 scenario S4: a DATA chunk sent
// on an open stream is delivered and SACKed.
func TestDataEchoRoundTrip(t *testing.T) {
	client, server := newPair(t)
	now := int64(0)
	for i := 0; i < 4; i++ {
		now++
		drive(t, now, client, server)
		drive(t, now, server, client)
	}

	client.OpenStream(1, "chat", true, true)
	server.OpenStream(1, "chat", true, true)

	require.NoError(t, client.SendMessage(now, 1, PPIDString, []byte("hello")))
	drive(t, now, client, server)

	var got Event
	for {
		e, ok := server.PollEvent()
		if !ok {
			break
		}
		if e.Kind == EventStreamMessage {
			got = e
		}
	}
	assert.Equal(t, []byte("hello"), got.Payload)

	drive(t, now, server, client) // SACK back to client
}

func TestChunkRoundTrip(t *testing.T) {
	dc := DataChunk{TSN: 5, StreamID: 2, StreamSeq: 1, PPID: PPIDString, Payload: []byte("x"), Flags: DataFlagBeginning | DataFlagEnd}
	encoded := EncodeDataChunk(dc)
	decoded, err := DecodeDataChunk(encoded)
	require.NoError(t, err)
	assert.Equal(t, dc.TSN, decoded.TSN)
	assert.Equal(t, dc.Payload, decoded.Payload)
}

func TestDataChannelOpenRoundTrip(t *testing.T) {
	open := DataChannelOpen{ChannelType: ChannelReliable, Label: "chat", Protocol: ""}
	decoded, err := DecodeDataChannelOpen(EncodeDataChannelOpen(open))
	require.NoError(t, err)
	assert.Equal(t, "chat", decoded.Label)
	assert.True(t, decoded.ChannelType.Ordered())
}

func TestPacketChecksumRejectsCorruption(t *testing.T) {
	raw := EncodePacket(CommonHeader{VerificationTag: 1}, EncodeChunk(Chunk{Type: ChunkTypeCookieAck}))
	raw[len(raw)-1] ^= 0xFF
	_, _, err := DecodePacket(raw)
	assert.Error(t, err)
}

// TestT3RtxRetransmitsWithoutRTTSample exercises spec §8 testable property
// 5: a DATA chunk that goes unacked past t3RtxDue gets resent with a
// backed-off RTO, and the SACK that later covers the retransmitted chunk
// retires it and stops T3-RTX without feeding an RTT sample into the RTO
// manager (Karn's algorithm).
func TestT3RtxRetransmitsWithoutRTTSample(t *testing.T) {
	client, server := newPair(t)
	now := int64(0)
	for i := 0; i < 4; i++ {
		now++
		drive(t, now, client, server)
		drive(t, now, server, client)
	}

	client.OpenStream(1, "chat", true, true)
	server.OpenStream(1, "chat", true, true)

	require.NoError(t, client.SendMessage(now, 1, PPIDString, []byte("hi")))
	require.Len(t, client.outstanding, 1)
	_, hadWrite := client.PollWrite() // drop the first send, simulating loss
	require.True(t, hadWrite)

	assert.False(t, client.rto.hasSample)
	rtoBefore := client.rto.RTO()

	now = client.t3RtxDue
	client.HandleTimeout(now)
	assert.Equal(t, 1, client.t3Attempts)
	assert.True(t, client.outstanding[0].retransmitted)
	assert.Greater(t, client.rto.RTO(), rtoBefore) // backed off

	w, ok := client.PollWrite()
	require.True(t, ok)
	from := transport.Tuple{Peer: w.Transport.Local, Local: w.Transport.Peer}
	require.NoError(t, server.HandleRead(now, w.Payload, from))
	drive(t, now, server, client) // SACK back

	assert.Empty(t, client.outstanding)
	assert.Zero(t, client.t3RtxDue)
	assert.Zero(t, client.t3Attempts)
	// Karn's algorithm: the acked chunk was retransmitted, so no RTT
	// sample should have been taken from it.
	assert.False(t, client.rto.hasSample)
}

// TestT1InitExhaustionAbortsWithTimeoutError exercises spec §7: a
// handshake that never gets an INIT-ACK aborts once Max.Init.Retransmits
// is reached instead of retrying forever.
func TestT1InitExhaustionAbortsWithTimeoutError(t *testing.T) {
	client, err := NewAssociation(Config{})
	require.NoError(t, err)
	require.NoError(t, client.Associate(0, transport.Tuple{Protocol: transport.ProtocolUDP}))

	now := int64(0)
	for i := 0; i < maxInitRetransmits; i++ {
		now = client.t1InitDue
		client.HandleTimeout(now)
	}

	assert.Equal(t, StateClosed, client.State())
	ev, ok := client.PollEvent()
	require.True(t, ok)
	assert.Equal(t, EventAssociationClosed, ev.Kind)
	require.Error(t, ev.Err)
	assert.True(t, rtcerr.As(ev.Err, rtcerr.KindTimeout))
}

// TestSendMessageRejectsOversizedPayload exercises spec §5 Backpressure:
// SettingEngine.SetSCTPMaxMessageSize bounds application writes, but not
// DCEP control traffic.
func TestSendMessageRejectsOversizedPayload(t *testing.T) {
	client, server := newPair(t)
	now := int64(0)
	for i := 0; i < 4; i++ {
		now++
		drive(t, now, client, server)
		drive(t, now, server, client)
	}
	client.cfg.MaxMessageSize = 4
	client.OpenStream(1, "chat", true, true)

	err := client.SendMessage(now, 1, PPIDString, []byte("too long"))
	require.Error(t, err)
	assert.True(t, rtcerr.As(err, rtcerr.KindCapacity))

	require.NoError(t, client.SendMessage(now, 1, PPIDString, []byte("ok")))
}
