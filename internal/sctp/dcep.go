package sctp

import (
	"encoding/binary"
	"fmt"
)

// DCEP message types (RFC 8832 §5.1) and the PPID values that mark an
// SCTP DATA chunk as carrying DCEP control vs. user data (RFC 8832 §8).
const (
	DCEPMessageTypeOpen uint8 = 0x03
	DCEPMessageTypeAck  uint8 = 0x02

	PPIDControl       uint32 = 50
	PPIDString        uint32 = 51
	PPIDBinary        uint32 = 53
	PPIDStringEmpty   uint32 = 56
	PPIDBinaryEmpty   uint32 = 57
)

// ChannelType is the DATA_CHANNEL_OPEN reliability/ordering selector
// (RFC 8832 §5.1 Table 1).
type ChannelType uint8

const (
	ChannelReliable             ChannelType = 0x00
	ChannelReliableUnordered    ChannelType = 0x80
	ChannelPartialRetransmit    ChannelType = 0x01
	ChannelPartialUnordered     ChannelType = 0x81
	ChannelPartialTimed         ChannelType = 0x02
	ChannelPartialTimedUnordered ChannelType = 0x82
)

func (t ChannelType) Ordered() bool { return t&0x80 == 0 }

// DataChannelOpen is the decoded DATA_CHANNEL_OPEN message (RFC 8832 §5.1).
type DataChannelOpen struct {
	ChannelType  ChannelType
	Priority     uint16
	Reliability  uint32
	Label        string
	Protocol     string
}

// EncodeDataChannelOpen serializes a DATA_CHANNEL_OPEN message.
func EncodeDataChannelOpen(o DataChannelOpen) []byte {
	buf := make([]byte, 12, 12+len(o.Label)+len(o.Protocol))
	buf[0] = DCEPMessageTypeOpen
	buf[1] = byte(o.ChannelType)
	binary.BigEndian.PutUint16(buf[2:4], o.Priority)
	binary.BigEndian.PutUint32(buf[4:8], o.Reliability)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(o.Label)))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(o.Protocol)))
	buf = append(buf, []byte(o.Label)...)
	buf = append(buf, []byte(o.Protocol)...)
	return buf
}

// DecodeDataChannelOpen parses a DATA_CHANNEL_OPEN message.
func DecodeDataChannelOpen(body []byte) (*DataChannelOpen, error) {
	if len(body) < 12 || body[0] != DCEPMessageTypeOpen {
		return nil, fmt.Errorf("sctp/dcep: not a DATA_CHANNEL_OPEN message")
	}
	labelLen := int(binary.BigEndian.Uint16(body[8:10]))
	protoLen := int(binary.BigEndian.Uint16(body[10:12]))
	if 12+labelLen+protoLen > len(body) {
		return nil, fmt.Errorf("sctp/dcep: DATA_CHANNEL_OPEN truncated")
	}
	return &DataChannelOpen{
		ChannelType: ChannelType(body[1]),
		Priority:    binary.BigEndian.Uint16(body[2:4]),
		Reliability: binary.BigEndian.Uint32(body[4:8]),
		Label:       string(body[12 : 12+labelLen]),
		Protocol:    string(body[12+labelLen : 12+labelLen+protoLen]),
	}, nil
}

// EncodeDataChannelAck serializes the single-byte DATA_CHANNEL_ACK
// message (RFC 8832 §5.2).
func EncodeDataChannelAck() []byte {
	return []byte{DCEPMessageTypeAck}
}

// IsDataChannelAck reports whether body is a DATA_CHANNEL_ACK message.
func IsDataChannelAck(body []byte) bool {
	return len(body) == 1 && body[0] == DCEPMessageTypeAck
}
