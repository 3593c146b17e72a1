package interceptor

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	written []*rtp.Packet
}

func (w *recordingWriter) WriteRTP(pkt *rtp.Packet) error {
	w.written = append(w.written, pkt)
	return nil
}

type countingInterceptor struct {
	closed bool
}

func (c *countingInterceptor) BindRTPWriter(next RTPWriter) RTPWriter {
	return rtpWriterFunc(func(pkt *rtp.Packet) error {
		pkt.Extension = true
		return next.WriteRTP(pkt)
	})
}

func (c *countingInterceptor) BindRTPReader(next RTPReader) RTPReader {
	return next
}

func (c *countingInterceptor) Close() error {
	c.closed = true
	return nil
}

type rtpWriterFunc func(pkt *rtp.Packet) error

func (f rtpWriterFunc) WriteRTP(pkt *rtp.Packet) error { return f(pkt) }

func TestChainWrapsWriterInOrder(t *testing.T) {
	terminal := &recordingWriter{}
	ic := &countingInterceptor{}
	chain := NewChain([]Interceptor{ic})

	w := chain.WrapWriter(terminal)
	require.NoError(t, w.WriteRTP(&rtp.Packet{Header: rtp.Header{SequenceNumber: 1}}))

	require.Len(t, terminal.written, 1)
	assert.True(t, terminal.written[0].Extension)
}

func TestChainClosePropagates(t *testing.T) {
	ic := &countingInterceptor{}
	chain := NewChain([]Interceptor{ic})
	require.NoError(t, chain.Close())
	assert.True(t, ic.closed)
}

func TestReportGeneratorJitterAndLoss(t *testing.T) {
	g := NewReportGenerator()
	ssrc := uint32(42)

	g.OnReceive(1000, &rtp.Packet{Header: rtp.Header{SequenceNumber: 0, Timestamp: 0, SSRC: ssrc}})
	g.OnReceive(2000, &rtp.Packet{Header: rtp.Header{SequenceNumber: 1, Timestamp: 0, SSRC: ssrc}})
	// sequence 2 lost
	g.OnReceive(4000, &rtp.Packet{Header: rtp.Header{SequenceNumber: 3, Timestamp: 0, SSRC: ssrc}})

	rr := g.ReceiverReport(5000, ssrc)
	assert.Equal(t, ssrc, rr.SSRC)
	assert.Equal(t, uint32(1), rr.TotalLost)
	assert.Equal(t, uint32(3), rr.LastSequenceNumber)
}

func TestReportGeneratorSequenceCycle(t *testing.T) {
	g := NewReportGenerator()
	ssrc := uint32(7)

	g.OnReceive(1, &rtp.Packet{Header: rtp.Header{SequenceNumber: 65534, SSRC: ssrc}})
	g.OnReceive(2, &rtp.Packet{Header: rtp.Header{SequenceNumber: 2, SSRC: ssrc}})

	rr := g.ReceiverReport(3, ssrc)
	// one cycle wrapped: extended seq = 1<<16 | 2
	assert.Equal(t, uint32(1)<<16|uint32(2), rr.LastSequenceNumber)
}

func TestTWCCSenderAssignsMonotonicSequence(t *testing.T) {
	var s TWCCSender
	assert.Equal(t, uint16(0), s.NextSequenceNumber())
	assert.Equal(t, uint16(1), s.NextSequenceNumber())
	assert.Equal(t, uint16(2), s.NextSequenceNumber())
}

func TestTWCCReceiverFeedbackDrainsLatestArrivals(t *testing.T) {
	r := NewTWCCReceiver()
	r.OnReceive(5, 100)
	r.OnReceive(3, 110)
	r.OnReceive(5, 120) // re-arrival, updates timestamp but not order

	fb := r.Feedback()
	require.Len(t, fb, 2)
	assert.Equal(t, int64(120), fb[5])
	assert.Equal(t, int64(110), fb[3])

	// draining clears pending state
	assert.Empty(t, r.Feedback())
}
