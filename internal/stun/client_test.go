package stun

import (
	"testing"
	"time"

	"github.com/sansio/rtc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAgentRoundTrip exercises Start/Process/Collect/Close directly
// (spec §4.2 Agent operations).
func TestAgentRoundTrip(t *testing.T) {
	a := NewAgent()
	id := newTID(1)
	require.NoError(t, a.Start(id, 1000))
	assert.Equal(t, 1, a.Outstanding())

	m := &Message{TransactionID: id}
	assert.True(t, a.Process(m))
	assert.Equal(t, 0, a.Outstanding())

	e, ok := a.PollEvent()
	require.True(t, ok)
	assert.Equal(t, EventTransactionSuccess, e.Kind)
}

func TestAgentDuplicateStartFails(t *testing.T) {
	a := NewAgent()
	id := newTID(2)
	require.NoError(t, a.Start(id, 1000))
	assert.Error(t, a.Start(id, 2000))
}

func TestAgentCollectTimesOut(t *testing.T) {
	a := NewAgent()
	id := newTID(3)
	require.NoError(t, a.Start(id, 100))
	a.Collect(50)
	assert.Equal(t, 1, a.Outstanding())
	a.Collect(150)
	assert.Equal(t, 0, a.Outstanding())
	e, ok := a.PollEvent()
	require.True(t, ok)
	assert.Equal(t, EventTransactionTimeOut, e.Kind)
}

func TestAgentCloseEmitsAgentClosed(t *testing.T) {
	a := NewAgent()
	id := newTID(4)
	require.NoError(t, a.Start(id, 1000))
	a.Close()
	e, ok := a.PollEvent()
	require.True(t, ok)
	assert.Equal(t, EventAgentClosed, e.Kind)
	assert.Error(t, a.Start(newTID(5), 1000))
}

// TestClientRetransmitThenTimeout mirrors spec §8 scenario S5: a client
// configured with a short RTO and few attempts against an unreachable peer
// must emit a terminal timeout once attempts are exhausted, with the
// transaction map left empty.
func TestClientRetransmitThenTimeout(t *testing.T) {
	c := NewClient(ClientConfig{RTO: 10 * time.Millisecond, MaxAttempts: 2})
	id, err := GenerateTransactionID()
	require.NoError(t, err)

	peer := transport.Tuple{}
	require.NoError(t, c.Send(0, peer, id, []byte("req")))

	// drain first queued write (the original attempt)
	_, ok := c.PollWrite()
	require.True(t, ok)

	now := int64(0)
	for i := 0; i < 3; i++ {
		now += int64(15 * time.Millisecond)
		c.HandleTimeout(now)
	}

	var sawTimeout bool
	for {
		e, ok := c.PollEvent()
		if !ok {
			break
		}
		if e.Kind == ClientEventTimeout {
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout)
	assert.Equal(t, 0, c.Outstanding())
}

func TestClientSuccessResolvesTransaction(t *testing.T) {
	c := NewClient(ClientConfig{})
	id, err := GenerateTransactionID()
	require.NoError(t, err)
	require.NoError(t, c.Send(0, transport.Tuple{}, id, []byte("req")))

	c.HandleRead(&Message{TransactionID: id})
	e, ok := c.PollEvent()
	require.True(t, ok)
	assert.Equal(t, ClientEventSuccess, e.Kind)
	assert.Equal(t, 0, c.Outstanding())
}
