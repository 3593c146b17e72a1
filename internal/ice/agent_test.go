package ice

import (
	"net"
	"testing"
	"time"

	"github.com/sansio/rtc/internal/stun"
	"github.com/sansio/rtc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPairPriorityFormula checks spec §8 property 3: the pair priority
// formula is deterministic and independent of calling order.
func TestPairPriorityFormula(t *testing.T) {
	g := uint32(1000)
	d := uint32(2000)

	p1 := PairPriority(g, d, true)  // local is controlling (G=g)
	p2 := PairPriority(d, g, false) // same pair, local is controlled (G stays g via remote)

	assert.Equal(t, p1, p2)

	min, max := uint64(g), uint64(d)
	want := (uint64(1)<<32)*min + 2*max
	assert.Equal(t, want, p1)
}

func TestPairPriorityTieBit(t *testing.T) {
	g, d := uint32(500), uint32(500)
	p := PairPriority(g, d, true)
	want := (uint64(1)<<32)*uint64(g) + 2*uint64(d)
	assert.Equal(t, want, p) // G == D: no tie bit, G > D false
}

func newLoopbackAgent(t *testing.T, role Role) *Agent {
	t.Helper()
	a, err := NewAgent(Config{Role: role, CheckInterval: 50 * time.Millisecond})
	require.NoError(t, err)
	return a
}

// TestHostPairConnectivity exercises spec §8 scenario S3: two agents, each
// with one UDP host candidate on loopback, reach a shared selected pair
// and Connected state within a handful of check intervals; with no other
// pair left to check, both then move on to Completed.
func TestHostPairConnectivity(t *testing.T) {
	a := newLoopbackAgent(t, RoleControlling)
	b := newLoopbackAgent(t, RoleControlled)

	aAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40001}
	bAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40002}

	ca := NewHostCandidate(NetworkTypeUDP4, "127.0.0.1", aAddr.Port, 1)
	ca.ResolvedAddr = aAddr
	cb := NewHostCandidate(NetworkTypeUDP4, "127.0.0.1", bAddr.Port, 1)
	cb.ResolvedAddr = bAddr

	a.AddLocalCandidate(ca)
	b.AddLocalCandidate(cb)

	aUfrag, aPwd := a.LocalCredentials()
	bUfrag, bPwd := b.LocalCredentials()
	a.SetRemoteCredentials(bUfrag, bPwd)
	b.SetRemoteCredentials(aUfrag, aPwd)

	a.AddRemoteCandidate(cb)
	b.AddRemoteCandidate(ca)

	now := int64(0)
	for i := 0; i < 5; i++ {
		now += int64(60 * time.Millisecond)
		a.HandleTimeout(now)
		b.HandleTimeout(now)
		relay(t, now, a, b)
		relay(t, now, b, a)
	}

	_, _, aOK := a.SelectedPair()
	_, _, bOK := b.SelectedPair()
	assert.True(t, aOK)
	assert.True(t, bOK)
	want := []ConnectionState{ConnectionChecking, ConnectionConnected, ConnectionCompleted}
	assert.Equal(t, want, connectionStates(a))
	assert.Equal(t, want, connectionStates(b))
}

// connectionStates drains a's queued events and returns the connection
// states it moved through, in order.
func connectionStates(a *Agent) []ConnectionState {
	var states []ConnectionState
	for {
		e, ok := a.PollEvent()
		if !ok {
			break
		}
		if e.Kind == EventConnectionStateChange {
			states = append(states, e.ConnectionState)
		}
	}
	return states
}

// relay drains src's queued writes and feeds decoded STUN messages into
// dst, standing in for the socket layer a real host would provide.
func relay(t *testing.T, now int64, src, dst *Agent) {
	t.Helper()
	for {
		w, ok := src.PollWrite()
		if !ok {
			return
		}
		m, err := stun.Decode(w.Payload)
		require.NoError(t, err)
		from := transport.Tuple{Peer: w.Transport.Local, Local: w.Transport.Peer}
		dst.HandleRead(now, m, &from)
	}
}
