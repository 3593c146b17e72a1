// Package interceptor implements the sans-I/O RTP/RTCP interceptor chain
// (spec §4.7): Sender/Receiver Report generation, a NACK ring buffer with
// generator/responder halves, and TWCC sender/receiver bookkeeping.
package interceptor

import "github.com/pion/rtp"

// RTPWriter is one link in the outbound interceptor chain.
type RTPWriter interface {
	WriteRTP(pkt *rtp.Packet) error
}

// RTPReader is one link in the inbound interceptor chain.
type RTPReader interface {
	ReadRTP(pkt *rtp.Packet) error
}

// RTPWriterFunc adapts a plain function to RTPWriter.
type RTPWriterFunc func(pkt *rtp.Packet) error

// WriteRTP implements RTPWriter.
func (f RTPWriterFunc) WriteRTP(pkt *rtp.Packet) error { return f(pkt) }

// RTPReaderFunc adapts a plain function to RTPReader.
type RTPReaderFunc func(pkt *rtp.Packet) error

// ReadRTP implements RTPReader.
func (f RTPReaderFunc) ReadRTP(pkt *rtp.Packet) error { return f(pkt) }

// Interceptor composes into a chain via Bind*, mirroring the registry
// pattern the teacher's pkg/interceptor uses (spec §4.7 "Chain").
type Interceptor interface {
	BindRTPWriter(next RTPWriter) RTPWriter
	BindRTPReader(next RTPReader) RTPReader
	Close() error
}

// Chain links a sequence of Interceptors into one RTPWriter/RTPReader
// pair, outermost-first: the first Interceptor in the slice is the first
// to see each packet, and the last is bound directly to the terminal
// writer/reader.
type Chain struct {
	interceptors []Interceptor
}

// NewChain builds a Chain from a slice of Interceptors, each of which
// wraps the ones after it.
func NewChain(interceptors []Interceptor) *Chain {
	return &Chain{interceptors: interceptors}
}

// WrapWriter wraps a terminal writer (the actual SRTP-protect step) with
// every interceptor in the chain.
func (c *Chain) WrapWriter(w RTPWriter) RTPWriter {
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		w = c.interceptors[i].BindRTPWriter(w)
	}
	return w
}

// WrapReader wraps a terminal reader (the decoded-from-SRTP step) with
// every interceptor in the chain.
func (c *Chain) WrapReader(r RTPReader) RTPReader {
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		r = c.interceptors[i].BindRTPReader(r)
	}
	return r
}

// Close closes every interceptor in the chain, collecting the first error.
func (c *Chain) Close() error {
	var first error
	for _, ic := range c.interceptors {
		if err := ic.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
