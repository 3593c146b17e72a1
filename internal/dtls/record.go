package dtls

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/pion/transport/v4/replaydetector"
)

// ContentType is the DTLS record content type.
type ContentType byte

const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
)

// Record is one DTLS record (spec §4.4 "Record layer").
type Record struct {
	Type    ContentType
	Version [2]byte
	Epoch   uint16
	SeqNo   uint64 // 48 bits on the wire
	Body    []byte
}

const recordHeaderLen = 13

// EncodeRecord serializes a plaintext (or already-AEAD-sealed) record.
func EncodeRecord(r Record) []byte {
	buf := make([]byte, recordHeaderLen+len(r.Body))
	buf[0] = byte(r.Type)
	buf[1], buf[2] = r.Version[0], r.Version[1]
	binary.BigEndian.PutUint16(buf[3:5], r.Epoch)
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, r.SeqNo)
	copy(buf[5:11], seq[2:8])
	binary.BigEndian.PutUint16(buf[11:13], uint16(len(r.Body)))
	copy(buf[13:], r.Body)
	return buf
}

// DecodeRecords splits a datagram (which may carry several coalesced
// records) into individual Records.
func DecodeRecords(raw []byte) ([]Record, error) {
	var out []Record
	for len(raw) > 0 {
		if len(raw) < recordHeaderLen {
			return nil, fmt.Errorf("dtls: record header truncated")
		}
		length := int(binary.BigEndian.Uint16(raw[11:13]))
		if recordHeaderLen+length > len(raw) {
			return nil, fmt.Errorf("dtls: record body truncated")
		}
		seqBytes := make([]byte, 8)
		copy(seqBytes[2:8], raw[5:11])
		r := Record{
			Type:    ContentType(raw[0]),
			Version: [2]byte{raw[1], raw[2]},
			Epoch:   binary.BigEndian.Uint16(raw[3:5]),
			SeqNo:   binary.BigEndian.Uint64(seqBytes),
			Body:    append([]byte{}, raw[recordHeaderLen:recordHeaderLen+length]...),
		}
		out = append(out, r)
		raw = raw[recordHeaderLen+length:]
	}
	return out, nil
}

// DefaultReplayWindow is the default anti-replay window size (spec §4.4,
// §3 "SRTP context").
const DefaultReplayWindow = 64

// EpochState tracks per-epoch sequence numbering and AEAD state, plus
// replay protection over (epoch, seq_no) using
// github.com/pion/transport/v4/replaydetector (spec §4.4 "Record layer").
type EpochState struct {
	Epoch       uint16
	WriteSeq    uint64
	GCM         cipher.AEAD
	replay      replaydetector.ReplayDetector
	windowSize  uint
}

// NewEpochState constructs epoch state with a replay window of the given
// size (0 selects DefaultReplayWindow).
func NewEpochState(epoch uint16, window uint) *EpochState {
	if window == 0 {
		window = DefaultReplayWindow
	}
	return &EpochState{
		Epoch:      epoch,
		replay:     replaydetector.New(window, 1<<48-1),
		windowSize: window,
	}
}

// SetAEADKey configures the epoch's encryption once a cipher suite has
// negotiated keys (master-secret derived keys are supplied by prf.go).
func (e *EpochState) SetAEADKey(key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	e.GCM = gcm
	return nil
}

// Accept runs the replay check for an inbound record's sequence number;
// the returned accept function must be invoked once the record also
// passes authentication, sliding the window (spec §8 property 6).
func (e *EpochState) Accept(seqNo uint64) (accept func(), ok bool) {
	return e.replay.Check(seqNo)
}

// NextWriteSeq returns the next sequence number to stamp on an outbound
// record in this epoch and advances the counter.
func (e *EpochState) NextWriteSeq() uint64 {
	seq := e.WriteSeq
	e.WriteSeq++
	return seq
}

// recordNonce builds the 12-byte AEAD nonce from epoch+seqNo (the DTLS 1.2
// AEAD record nonce construction, RFC 7905-adjacent convention used by
// most DTLS 1.2 AEAD suites: implicit 4-byte salt || explicit 8-byte
// epoch+seq).
func recordNonce(salt [4]byte, epoch uint16, seqNo uint64) []byte {
	nonce := make([]byte, 12)
	copy(nonce[:4], salt[:])
	binary.BigEndian.PutUint16(nonce[4:6], epoch)
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, seqNo)
	copy(nonce[6:12], seqBytes[2:8])
	return nonce
}

// SealApplicationData AEAD-seals plaintext application data (or a DATA
// chunk carried for SCTP) as the record body.
func (e *EpochState) SealApplicationData(salt [4]byte, plaintext, aad []byte) ([]byte, uint64, error) {
	if e.GCM == nil {
		return nil, 0, fmt.Errorf("dtls: epoch %d has no cipher", e.Epoch)
	}
	seq := e.NextWriteSeq()
	nonce := recordNonce(salt, e.Epoch, seq)
	sealed := e.GCM.Seal(nil, nonce, plaintext, aad)
	return sealed, seq, nil
}

// OpenApplicationData authenticates and decrypts a record body, running
// replay protection first and only sliding the window on success.
func (e *EpochState) OpenApplicationData(salt [4]byte, seqNo uint64, ciphertext, aad []byte) ([]byte, error) {
	accept, ok := e.Accept(seqNo)
	if !ok {
		return nil, fmt.Errorf("dtls: replayed or out-of-window record (seq %d)", seqNo)
	}
	if e.GCM == nil {
		return nil, fmt.Errorf("dtls: epoch %d has no cipher", e.Epoch)
	}
	nonce := recordNonce(salt, e.Epoch, seqNo)
	plaintext, err := e.GCM.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("dtls: record auth failed: %w", err)
	}
	accept()
	return plaintext, nil
}
