package interceptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNACKGeneratorDetectsGap(t *testing.T) {
	g := NewNACKGenerator()
	assert.Nil(t, g.OnReceive(1, 1))
	missing := g.OnReceive(1, 4)
	assert.Equal(t, []uint16{2, 3}, missing)
}

// TestNACKIdempotence exercises spec §8 property 4: querying the send
// buffer for the same sequence number twice returns the same answer.
func TestNACKIdempotence(t *testing.T) {
	buf := NewSendBuffer(16)
	buf.Add(5, []byte("payload"))

	p1, ok1 := buf.Get(5)
	p2, ok2 := buf.Get(5)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, p1, p2)
}

func TestSendBufferOverwriteOnWrap(t *testing.T) {
	buf := NewSendBuffer(4)
	buf.Add(0, []byte("a"))
	buf.Add(4, []byte("b")) // same slot (0 & 3 == 0)
	v, ok := buf.Get(4)
	require.True(t, ok)
	assert.Equal(t, []byte("b"), v)
	_, ok = buf.Get(0)
	assert.False(t, ok)
}

func TestBuildNACKPacksAdjacentLoss(t *testing.T) {
	nack := BuildNACK(1, 2, []uint16{10, 11, 12})
	require.Len(t, nack.Nacks, 1)
	assert.Equal(t, uint16(10), nack.Nacks[0].PacketID)
}
