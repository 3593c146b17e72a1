package interceptor

import (
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

const ntpEpochOffset = 2208988800 // seconds between 1900 and 1970 epochs

// streamStats accumulates the RFC 3550 §A.8 running statistics a
// Sender/Receiver Report needs: jitter, cumulative loss, and the
// extended highest sequence number.
type streamStats struct {
	ssrc uint32

	packetsReceived uint32
	octetsReceived  uint32

	baseSeq          uint16
	haveBaseSeq      bool
	maxSeq           uint16
	cycles           uint32
	expectedPrior    uint32
	receivedPrior    uint32

	lastTransit int64
	jitter      float64

	lastSRNTP uint64
	lastSRRecvTime int64
}

// ReportGenerator produces Sender/Receiver Reports from observed RTP
// traffic (spec §4.7 "Sender/Receiver reports"), grounded on RFC 3550
// Appendix A.8's reference jitter/loss algorithm.
type ReportGenerator struct {
	streams map[uint32]*streamStats
}

// NewReportGenerator constructs an empty generator.
func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{streams: make(map[uint32]*streamStats)}
}

func (g *ReportGenerator) streamFor(ssrc uint32) *streamStats {
	s, ok := g.streams[ssrc]
	if !ok {
		s = &streamStats{ssrc: ssrc}
		g.streams[ssrc] = s
	}
	return s
}

// OnReceive updates jitter/sequence bookkeeping for one inbound RTP
// packet (RFC 3550 §A.8).
func (g *ReportGenerator) OnReceive(now int64, pkt *rtp.Packet) {
	s := g.streamFor(pkt.SSRC)
	s.packetsReceived++
	s.octetsReceived += uint32(len(pkt.Payload))

	seq := pkt.SequenceNumber
	if !s.haveBaseSeq {
		s.haveBaseSeq = true
		s.baseSeq = seq
		s.maxSeq = seq
	} else if seq < s.maxSeq && s.maxSeq-seq > 1<<15 {
		s.cycles++
		s.maxSeq = seq
	} else if seq > s.maxSeq {
		s.maxSeq = seq
	}

	// jitter: arrival time (in RTP clock units, caller supplies `now` in
	// nanoseconds and a clock rate is applied by the caller before RTCP
	// emission; this package tracks transit delta in raw nanoseconds,
	// consistent with treating "clock rate = 1e9" for tests).
	transit := now - int64(pkt.Timestamp)
	if s.lastTransit != 0 {
		d := transit - s.lastTransit
		if d < 0 {
			d = -d
		}
		s.jitter += (float64(d) - s.jitter) / 16
	}
	s.lastTransit = transit
}

// OnSenderReport records the NTP/RTP-time pair from a received Sender
// Report, needed to compute this receiver's own RR's LSR/DLSR.
func (g *ReportGenerator) OnSenderReport(now int64, sr *rtcp.SenderReport) {
	s := g.streamFor(sr.SSRC)
	s.lastSRNTP = sr.NTPTime
	s.lastSRRecvTime = now
}

// ReceiverReport builds one RFC 3550 §6.4.2 Receiver Report block for
// the given SSRC.
func (g *ReportGenerator) ReceiverReport(now int64, ssrc uint32) rtcp.ReceptionReport {
	s := g.streamFor(ssrc)
	expected := uint32(s.cycles)<<16 + uint32(s.maxSeq) - uint32(s.baseSeq) + 1
	lost := int32(expected) - int32(s.packetsReceived)
	if lost < 0 {
		lost = 0
	}
	expectedInterval := expected - s.expectedPrior
	receivedInterval := s.packetsReceived - s.receivedPrior
	lostInterval := int32(expectedInterval) - int32(receivedInterval)
	var fractionLost uint8
	if expectedInterval > 0 && lostInterval > 0 {
		fractionLost = uint8(256 * lostInterval / int32(expectedInterval))
	}
	s.expectedPrior = expected
	s.receivedPrior = s.packetsReceived

	var dlsr uint32
	if s.lastSRRecvTime != 0 {
		dlsr = uint32((now - s.lastSRRecvTime) / 1000 * 65536 / 1e6)
	}

	return rtcp.ReceptionReport{
		SSRC:               ssrc,
		FractionLost:       fractionLost,
		TotalLost:          uint32(lost),
		LastSequenceNumber: uint32(s.cycles)<<16 | uint32(s.maxSeq),
		Jitter:             uint32(s.jitter),
		LastSenderReport:   uint32(s.lastSRNTP >> 16),
		Delay:              dlsr,
	}
}

// SenderReport builds an RFC 3550 §6.4.1 Sender Report for a locally
// originated SSRC.
func SenderReport(ssrc uint32, ntpTime uint64, rtpTime, packetCount, octetCount uint32) *rtcp.SenderReport {
	return &rtcp.SenderReport{
		SSRC:        ssrc,
		NTPTime:     ntpTime,
		RTPTime:     rtpTime,
		PacketCount: packetCount,
		OctetCount:  octetCount,
	}
}
