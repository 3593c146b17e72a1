// Package sctp implements a sans-I/O SCTP association (RFC 4960) carrying
// WebRTC data channels (RFC 8832 DCEP): chunk codec, the four-way
// INIT/INIT-ACK/COOKIE-ECHO/COOKIE-ACK handshake, a stream table, an RTO
// manager, and a reduced timer table (spec §4.5). Each stream's ordered
// flag is recorded, but inbound DATA is delivered in TSN order on every
// stream; the DATA chunk's unordered flag is neither set on send nor
// acted on when received.
package sctp

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// ChunkType is the SCTP chunk type field (RFC 4960 §3.2).
type ChunkType byte

const (
	ChunkTypeData          ChunkType = 0
	ChunkTypeInit          ChunkType = 1
	ChunkTypeInitAck       ChunkType = 2
	ChunkTypeSack          ChunkType = 3
	ChunkTypeHeartbeat     ChunkType = 4
	ChunkTypeHeartbeatAck  ChunkType = 5
	ChunkTypeAbort         ChunkType = 6
	ChunkTypeShutdown      ChunkType = 7
	ChunkTypeShutdownAck   ChunkType = 8
	ChunkTypeError         ChunkType = 9
	ChunkTypeCookieEcho    ChunkType = 10
	ChunkTypeCookieAck     ChunkType = 11
	ChunkTypeShutdownComplete ChunkType = 14
	ChunkTypeForwardTSN    ChunkType = 192
	ChunkTypeReConfig      ChunkType = 130
)

const chunkHeaderLen = 4

// Chunk is a generic, undecoded SCTP chunk (RFC 4960 §3.2): type, flags,
// and a value whose interpretation depends on the type.
type Chunk struct {
	Type  ChunkType
	Flags byte
	Value []byte
}

func pad4Len(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}

// EncodeChunk serializes one chunk with its RFC 4960 §3.2 TLV header,
// padded to a 4-byte boundary.
func EncodeChunk(c Chunk) []byte {
	length := chunkHeaderLen + len(c.Value)
	padded := pad4Len(length)
	buf := make([]byte, padded)
	buf[0] = byte(c.Type)
	buf[1] = c.Flags
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))
	copy(buf[4:], c.Value)
	return buf
}

// DecodeChunks splits an SCTP packet's chunk area into individual chunks.
func DecodeChunks(raw []byte) ([]Chunk, error) {
	var out []Chunk
	for len(raw) > 0 {
		if len(raw) < chunkHeaderLen {
			return nil, fmt.Errorf("sctp: chunk header truncated")
		}
		length := int(binary.BigEndian.Uint16(raw[2:4]))
		if length < chunkHeaderLen || length > len(raw) {
			return nil, fmt.Errorf("sctp: chunk length invalid (%d)", length)
		}
		out = append(out, Chunk{
			Type:  ChunkType(raw[0]),
			Flags: raw[1],
			Value: append([]byte{}, raw[chunkHeaderLen:length]...),
		})
		padded := pad4Len(length)
		if padded > len(raw) {
			padded = len(raw)
		}
		raw = raw[padded:]
	}
	return out, nil
}

const commonHeaderLen = 12

// CommonHeader is the SCTP packet's fixed common header (RFC 4960 §3.1).
type CommonHeader struct {
	SourcePort      uint16
	DestinationPort uint16
	VerificationTag uint32
	Checksum        uint32
}

// EncodePacket assembles a full SCTP packet: common header (with CRC32c
// checksum per RFC 4960 Appendix B) followed by the chunk area.
func EncodePacket(h CommonHeader, chunks []byte) []byte {
	buf := make([]byte, commonHeaderLen+len(chunks))
	binary.BigEndian.PutUint16(buf[0:2], h.SourcePort)
	binary.BigEndian.PutUint16(buf[2:4], h.DestinationPort)
	binary.BigEndian.PutUint32(buf[4:8], h.VerificationTag)
	copy(buf[12:], chunks)
	checksum := crc32.Checksum(buf, crc32.MakeTable(crc32.Castagnoli))
	binary.BigEndian.PutUint32(buf[8:12], checksum)
	return buf
}

// DecodePacket validates the checksum and splits common header from chunks.
func DecodePacket(raw []byte) (CommonHeader, []Chunk, error) {
	if len(raw) < commonHeaderLen {
		return CommonHeader{}, nil, fmt.Errorf("sctp: packet shorter than common header")
	}
	h := CommonHeader{
		SourcePort:      binary.BigEndian.Uint16(raw[0:2]),
		DestinationPort: binary.BigEndian.Uint16(raw[2:4]),
		VerificationTag: binary.BigEndian.Uint32(raw[4:8]),
		Checksum:        binary.BigEndian.Uint32(raw[8:12]),
	}
	check := append([]byte{}, raw...)
	binary.BigEndian.PutUint32(check[8:12], 0)
	want := crc32.Checksum(check, crc32.MakeTable(crc32.Castagnoli))
	if want != h.Checksum {
		return h, nil, fmt.Errorf("sctp: checksum mismatch")
	}
	chunks, err := DecodeChunks(raw[commonHeaderLen:])
	return h, chunks, err
}

// DataChunkFlags (RFC 4960 §3.3.1).
const (
	DataFlagEnd       = 1 << 0
	DataFlagBeginning = 1 << 1
	DataFlagUnordered = 1 << 2
)

// DataChunk is the decoded form of a DATA chunk's value.
type DataChunk struct {
	TSN       uint32
	StreamID  uint16
	StreamSeq uint16
	PPID      uint32
	Payload   []byte
	Flags     byte
}

func EncodeDataChunk(d DataChunk) Chunk {
	v := make([]byte, 12+len(d.Payload))
	binary.BigEndian.PutUint32(v[0:4], d.TSN)
	binary.BigEndian.PutUint16(v[4:6], d.StreamID)
	binary.BigEndian.PutUint16(v[6:8], d.StreamSeq)
	binary.BigEndian.PutUint32(v[8:12], d.PPID)
	copy(v[12:], d.Payload)
	return Chunk{Type: ChunkTypeData, Flags: d.Flags, Value: v}
}

func DecodeDataChunk(c Chunk) (*DataChunk, error) {
	if len(c.Value) < 12 {
		return nil, fmt.Errorf("sctp: DATA chunk truncated")
	}
	return &DataChunk{
		TSN:       binary.BigEndian.Uint32(c.Value[0:4]),
		StreamID:  binary.BigEndian.Uint16(c.Value[4:6]),
		StreamSeq: binary.BigEndian.Uint16(c.Value[6:8]),
		PPID:      binary.BigEndian.Uint32(c.Value[8:12]),
		Payload:   append([]byte{}, c.Value[12:]...),
		Flags:     c.Flags,
	}, nil
}

// SackChunk is the decoded form of a SACK chunk's value (gap-ack blocks
// omitted: this endpoint's reassembly queue reports only cumulative TSN
// and a duplicate-TSN list, matching the WebRTC data-channel use case of
// few, usually in-order streams — spec §4.5 Non-goals).
type SackChunk struct {
	CumulativeTSNAck uint32
	ARWND            uint32
	DuplicateTSNs    []uint32
}

func EncodeSackChunk(s SackChunk) Chunk {
	v := make([]byte, 12+4*len(s.DuplicateTSNs))
	binary.BigEndian.PutUint32(v[0:4], s.CumulativeTSNAck)
	binary.BigEndian.PutUint32(v[4:8], s.ARWND)
	// gap-ack-block count = 0, duplicate-tsn count follows
	binary.BigEndian.PutUint16(v[10:12], uint16(len(s.DuplicateTSNs)))
	off := 12
	for _, d := range s.DuplicateTSNs {
		binary.BigEndian.PutUint32(v[off:off+4], d)
		off += 4
	}
	return Chunk{Type: ChunkTypeSack, Value: v}
}

func DecodeSackChunk(c Chunk) (*SackChunk, error) {
	if len(c.Value) < 12 {
		return nil, fmt.Errorf("sctp: SACK chunk truncated")
	}
	s := &SackChunk{
		CumulativeTSNAck: binary.BigEndian.Uint32(c.Value[0:4]),
		ARWND:            binary.BigEndian.Uint32(c.Value[4:8]),
	}
	dupCount := int(binary.BigEndian.Uint16(c.Value[10:12]))
	off := 12
	for i := 0; i < dupCount && off+4 <= len(c.Value); i++ {
		s.DuplicateTSNs = append(s.DuplicateTSNs, binary.BigEndian.Uint32(c.Value[off:off+4]))
		off += 4
	}
	return s, nil
}

// InitChunk is the decoded form of INIT/INIT-ACK values (RFC 4960 §3.3.2,
// minus optional parameters beyond what this endpoint negotiates).
type InitChunk struct {
	InitiateTag    uint32
	ARWND          uint32
	OutboundStreams uint16
	InboundStreams  uint16
	InitialTSN      uint32
	Cookie          []byte // only set/used on INIT-ACK
}

func EncodeInitChunk(typ ChunkType, i InitChunk) Chunk {
	v := make([]byte, 16)
	binary.BigEndian.PutUint32(v[0:4], i.InitiateTag)
	binary.BigEndian.PutUint32(v[4:8], i.ARWND)
	binary.BigEndian.PutUint16(v[8:10], i.OutboundStreams)
	binary.BigEndian.PutUint16(v[10:12], i.InboundStreams)
	binary.BigEndian.PutUint32(v[12:16], i.InitialTSN)
	if typ == ChunkTypeInitAck && len(i.Cookie) > 0 {
		// State Cookie optional parameter (type 7).
		param := make([]byte, 4+len(i.Cookie))
		binary.BigEndian.PutUint16(param[0:2], 7)
		binary.BigEndian.PutUint16(param[2:4], uint16(4+len(i.Cookie)))
		copy(param[4:], i.Cookie)
		v = append(v, param...)
	}
	return Chunk{Type: typ, Value: v}
}

func DecodeInitChunk(c Chunk) (*InitChunk, error) {
	if len(c.Value) < 16 {
		return nil, fmt.Errorf("sctp: INIT chunk truncated")
	}
	i := &InitChunk{
		InitiateTag:     binary.BigEndian.Uint32(c.Value[0:4]),
		ARWND:           binary.BigEndian.Uint32(c.Value[4:8]),
		OutboundStreams: binary.BigEndian.Uint16(c.Value[8:10]),
		InboundStreams:  binary.BigEndian.Uint16(c.Value[10:12]),
		InitialTSN:      binary.BigEndian.Uint32(c.Value[12:16]),
	}
	rest := c.Value[16:]
	for len(rest) >= 4 {
		pType := binary.BigEndian.Uint16(rest[0:2])
		pLen := int(binary.BigEndian.Uint16(rest[2:4]))
		if pLen < 4 || pLen > len(rest) {
			break
		}
		if pType == 7 {
			i.Cookie = append([]byte{}, rest[4:pLen]...)
		}
		adv := pad4Len(pLen)
		if adv > len(rest) {
			adv = len(rest)
		}
		rest = rest[adv:]
	}
	return i, nil
}
